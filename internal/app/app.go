// Package app runs one pass of the pipeline:
//
//	COLLECTING -> CLASSIFYING -> GROUPING -> DEDUPING -> TRANSFORMING -> PUBLISHING -> INDEX-UPDATED
//
// Every stage after collection is single-threaded.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/newsdesk/internal/aggregator"
	"github.com/deusflow/newsdesk/internal/classify"
	"github.com/deusflow/newsdesk/internal/config"
	"github.com/deusflow/newsdesk/internal/dedup"
	"github.com/deusflow/newsdesk/internal/grouping"
	"github.com/deusflow/newsdesk/internal/metrics"
	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/publish"
	"github.com/deusflow/newsdesk/internal/ratelimit"
	"github.com/deusflow/newsdesk/internal/retry"
	"github.com/deusflow/newsdesk/internal/scraper"
	"github.com/deusflow/newsdesk/internal/storage"
	"github.com/deusflow/newsdesk/internal/transform"
)

const wordsPerMinute = 200

// Announcer is told about every published article.
type Announcer interface {
	Announce(ctx context.Context, a news.PublishedArticle) error
}

// Enricher fetches the full text of an anchor's page for the prompt.
type Enricher interface {
	ExtractArticle(ctx context.Context, url string) (*scraper.ArticleContent, error)
}

// Deps are the collaborators of a run. Fetcher, Transformer and Titles are
// required.
type Deps struct {
	Fetcher     aggregator.Fetcher
	Detector    aggregator.LanguageDetector
	Transformer transform.Transformer
	Titles      storage.TitleStore
	Announcer   Announcer
	Enricher    Enricher
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

// Pipeline is one configured run.
type Pipeline struct {
	cfg     *config.Config
	catalog *config.Catalog
	deps    Deps
	gate    *transform.Gate
}

// NewPipeline wraps the transformer in a Gate sized from cfg.
func NewPipeline(cfg *config.Config, catalog *config.Catalog, deps Deps) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Global
	}
	gate := transform.NewGate(
		deps.Transformer,
		cfg.TransformSpacing,
		ratelimit.NewQuota(cfg.MaxTransformCalls),
		retry.RetryConfig{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: true},
	)
	return &Pipeline{cfg: cfg, catalog: catalog, deps: deps, gate: gate}
}

type draft struct {
	group   news.SourceGroup
	article news.PublishedArticle
}

// Run executes every stage once. The report is returned in all cases; the
// error is news.ErrNoData when nothing usable was collected and a
// *news.RunError for run-level failures.
func (p *Pipeline) Run(ctx context.Context) (report news.RunReport, err error) {
	report = news.RunReport{
		RunID:     uuid.NewString(),
		Stage:     news.StageCollecting,
		StartedAt: p.deps.Now().UTC(),
	}
	defer func() {
		report.FinishedAt = p.deps.Now().UTC()
		p.deps.Metrics.RecordRun(report)
		if err != nil && !errors.Is(err, news.ErrNoData) {
			p.deps.Metrics.SetError(err.Error())
		} else {
			p.deps.Metrics.SetLastRun()
		}
		slog.Info("Run finished",
			"run_id", report.RunID,
			"stage", report.Stage,
			"collected", report.Collected,
			"groups", report.Groups,
			"duplicates", report.Duplicates,
			"published", report.Published,
			"errored", report.Errored(),
			"took", report.FinishedAt.Sub(report.StartedAt))
	}()

	slog.Info("Run started", "run_id", report.RunID, "sources", len(p.catalog.Enabled()))

	items := p.collect(ctx, &report)

	report.Stage = news.StageClassifying
	classifier := classify.New(p.catalog.Categories, p.catalog.Exclude, p.catalog.DefaultCategory)
	items, report.Excluded = classifier.Apply(items)
	report.Classified = len(items)
	if len(items) == 0 {
		slog.Warn("No usable items collected", "run_id", report.RunID, "fetch_errors", report.FetchErrors)
		return report, news.ErrNoData
	}

	report.Stage = news.StageGrouping
	groups := grouping.Group(items, grouping.Options{
		MinShared: p.cfg.GroupMinShared,
		Cutoff:    p.cfg.GroupCutoff,
		MaxSize:   p.cfg.GroupMaxSize,
	})
	report.Groups = len(groups)

	report.Stage = news.StageDeduping
	dd := dedup.New(p.deps.Titles, p.cfg.TitlesLimit, p.cfg.DedupThreshold)
	if lerr := dd.Load(ctx); lerr != nil {
		slog.Warn("Titles-seen state unusable, starting empty", "store", p.deps.Titles.Name(), "error", lerr)
	}
	groups, report.Duplicates = dd.Filter(groups)
	groups = p.prioritize(groups)

	report.Stage = news.StageTransforming
	drafts := p.transform(ctx, groups, &report)

	report.Stage = news.StagePublishing
	pub := publish.New(publish.Options{
		Dir:             p.cfg.DataDir,
		IndexLimit:      p.cfg.IndexLimit,
		ShardLimit:      p.cfg.ShardLimit,
		SiteURL:         p.cfg.SiteURL,
		SiteTitle:       p.cfg.SiteTitle,
		SiteDescription: p.cfg.SiteDescription,
		Now:             p.deps.Now,
	})
	if lerr := pub.Load(); lerr != nil {
		slog.Warn("Continuing with empty publication index", "error", lerr)
	}

	published, perr := p.publish(ctx, pub, dd, drafts, &report)

	if serr := dd.Save(ctx); serr != nil && perr == nil {
		perr = fmt.Errorf("save titles-seen: %w", serr)
	}
	if perr != nil {
		return report, &news.RunError{
			Stage:     report.Stage,
			Processed: report.Processed(),
			Published: report.Published,
			Errored:   report.Errored(),
			Err:       perr,
		}
	}

	report.Stage = news.StageIndexUpdated
	p.announce(ctx, published)
	return report, nil
}

// collect bounds only the fetch stage by the run deadline so completed
// results survive a slow tail.
func (p *Pipeline) collect(ctx context.Context, report *news.RunReport) []news.CandidateItem {
	sources := p.catalog.Enabled()
	report.Sources = len(sources)

	cctx := ctx
	if p.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
		defer cancel()
	}

	agg := aggregator.New(p.deps.Fetcher, aggregator.Options{
		Workers:  p.cfg.FetchWorkers,
		Timeout:  p.cfg.FetchTimeout,
		Keywords: p.catalog.PriorityKeywords,
		Detector: p.deps.Detector,
		Now:      p.deps.Now,
	})
	res := agg.Collect(cctx, sources)
	report.FetchErrors = len(res.Failed)
	report.Collected = len(res.Items)
	report.URLDuplicates = res.Duplicates
	for _, e := range res.Errors {
		slog.Debug("Fetch error", "error", e)
	}
	return res.Items
}

// prioritize orders groups by their best member and applies the per-run cap.
func (p *Pipeline) prioritize(groups []news.SourceGroup) []news.SourceGroup {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].MaxPriority() > groups[j].MaxPriority()
	})
	if p.cfg.MaxPublishPerRun > 0 && len(groups) > p.cfg.MaxPublishPerRun {
		slog.Info("Capping groups for this run", "groups", len(groups), "max", p.cfg.MaxPublishPerRun)
		groups = groups[:p.cfg.MaxPublishPerRun]
	}
	return groups
}

// transform writes every group up. Quota exhaustion stops the stage but
// keeps what was already produced.
func (p *Pipeline) transform(ctx context.Context, groups []news.SourceGroup, report *news.RunReport) []draft {
	var drafts []draft
	for i, g := range groups {
		if ctx.Err() != nil {
			report.TransformErrors += len(groups) - i
			break
		}
		if !p.gate.Quota().CanUse() {
			report.QuotaHit = true
			slog.Warn("Transform quota spent, stopping", "done", len(drafts), "remaining", len(groups)-i)
			break
		}

		req := transform.Request{Group: g, Category: g.Category, Language: p.language(g)}
		if p.deps.Enricher != nil {
			req.Context = p.enrich(ctx, g.Anchor())
		}

		out, err := p.gate.Transform(ctx, req)
		if err != nil {
			if news.IsQuota(err) {
				report.QuotaHit = true
				slog.Warn("Transform quota reached, stopping", "done", len(drafts), "remaining", len(groups)-i, "error", err)
				break
			}
			report.TransformErrors++
			slog.Error("Transform failed", "anchor", g.Anchor().Title, "error", err)
			continue
		}

		report.Transformed++
		drafts = append(drafts, draft{group: g, article: p.toArticle(g, req.Language, out)})
	}

	quota := p.gate.Quota()
	report.TransformCalls = quota.Used()
	p.deps.Metrics.SetQuota(quota.GetStats())
	return drafts
}

// publish persists drafts in priority order. A failed index write stops the
// stage; other per-article failures are counted and skipped.
func (p *Pipeline) publish(ctx context.Context, pub *publish.Publisher, dd *dedup.Deduplicator, drafts []draft, report *news.RunReport) ([]news.PublishedArticle, error) {
	var published []news.PublishedArticle
	for _, d := range drafts {
		a, err := pub.Publish(ctx, d.article)
		var iwe *news.IndexWriteError
		if err != nil && !errors.As(err, &iwe) {
			report.PublishErrors++
			slog.Error("Publish failed", "title", d.article.Title, "error", err)
			continue
		}
		if a.ID != "" {
			// The index already holds a, so its titles must be remembered
			// even if a derived view failed afterwards. Members go in too so
			// a late copy of any of them is caught next run.
			titles := make([]string, 0, len(d.group.Items)+1)
			for _, it := range d.group.Items {
				titles = append(titles, it.Title)
			}
			dd.Remember(append(titles, a.Title)...)
			published = append(published, a)
			report.Published++
		}
		if err != nil {
			return published, err
		}
	}
	return published, nil
}

func (p *Pipeline) announce(ctx context.Context, articles []news.PublishedArticle) {
	if p.deps.Announcer == nil {
		return
	}
	for _, a := range articles {
		if err := p.deps.Announcer.Announce(ctx, a); err != nil {
			slog.Error("Announcement failed", "id", a.ID, "error", err)
			continue
		}
		p.deps.Metrics.IncrementMessagesSent()
	}
}

func (p *Pipeline) enrich(ctx context.Context, anchor news.CandidateItem) string {
	if anchor.SourceURL == "" {
		return ""
	}
	content, err := p.deps.Enricher.ExtractArticle(ctx, anchor.SourceURL)
	if err != nil {
		slog.Debug("Article text unavailable", "url", anchor.SourceURL, "error", err)
		return ""
	}
	return content.Content
}

func (p *Pipeline) language(g news.SourceGroup) string {
	if p.cfg.TargetLanguage != "" {
		return strings.ToLower(p.cfg.TargetLanguage)
	}
	return g.Anchor().Language
}

func (p *Pipeline) toArticle(g news.SourceGroup, lang string, out *transform.Output) news.PublishedArticle {
	category := g.Category
	if category == "" {
		category = out.Category
	}

	a := news.PublishedArticle{
		Title:       out.Title,
		Excerpt:     out.Excerpt,
		Body:        out.Body,
		Tags:        out.Tags,
		Category:    category,
		Language:    lang,
		ReadingTime: readingTime(out.Body),
	}
	for _, it := range g.Items {
		if a.Image == "" && it.ImageURL != "" {
			a.Image = it.ImageURL
		}
		a.Sources = append(a.Sources, news.SourceRef{Name: it.SourceName, URL: it.SourceURL})
	}
	return a
}

// readingTime is whole minutes at wordsPerMinute, never below one.
func readingTime(body string) int {
	minutes := len(strings.Fields(body)) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}
