package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdesk/internal/aggregator"
	"github.com/deusflow/newsdesk/internal/classify"
	"github.com/deusflow/newsdesk/internal/config"
	"github.com/deusflow/newsdesk/internal/metrics"
	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/publish"
	"github.com/deusflow/newsdesk/internal/source"
	"github.com/deusflow/newsdesk/internal/storage"
	"github.com/deusflow/newsdesk/internal/transform"
)

type recordingAnnouncer struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingAnnouncer) Announce(ctx context.Context, a news.PublishedArticle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, a.ID)
	return nil
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		DataDir:           dir,
		IndexLimit:        200,
		ShardLimit:        50,
		TitlesLimit:       1000,
		TitlesStore:       config.StoreFile,
		TitlesFile:        filepath.Join(dir, "titles.json"),
		DedupThreshold:    0.75,
		GroupCutoff:       0.4,
		GroupMinShared:    2,
		GroupMaxSize:      4,
		FetchWorkers:      2,
		FetchTimeout:      time.Second,
		RunTimeout:        5 * time.Second,
		TransformProvider: config.ProviderExtractive,
		TransformSpacing:  time.Millisecond,
		RetryAttempts:     1,
		RetryDelay:        time.Millisecond,
	}
}

func testCatalog(names ...string) *config.Catalog {
	cat := &config.Catalog{
		DefaultCategory: "general",
		Categories: []classify.Rule{
			{Category: "sports", Keywords: []string{"flamengo", "palmeiras"}},
			{Category: "economy", Keywords: []string{"inflação"}},
		},
		Exclude:          []string{"horóscopo"},
		PriorityKeywords: []aggregator.Keyword{{Term: "inflação", Weight: 50}},
	}
	for _, n := range names {
		cat.Sources = append(cat.Sources, source.Config{
			Name: n, Kind: source.KindFeed, Endpoint: "https://" + n + ".example/rss", Language: "pt",
		})
	}
	return cat
}

var storyTime = time.Now().Add(-72 * time.Hour).UTC()

var feeds = map[string][]news.CandidateItem{
	"ge": {
		{Title: "Flamengo vence o Palmeiras no Maracanã", Snippet: "O Flamengo venceu o Palmeiras por dois a zero no Maracanã lotado.", SourceURL: "https://ge.example/1", ImageURL: "https://ge.example/1.jpg", PublishedAt: storyTime},
		{Title: "Horóscopo do dia", SourceURL: "https://ge.example/2", PublishedAt: storyTime},
	},
	"g1": {
		{Title: "Inflação recua em março segundo IBGE", Snippet: "O índice oficial de inflação desacelerou pelo segundo mês seguido.", SourceURL: "https://g1.example/1", PublishedAt: storyTime},
		{Title: "Flamengo vence Palmeiras e assume liderança", Snippet: "Com a vitória o time carioca chegou à liderança do campeonato.", SourceURL: "https://g1.example/2", PublishedAt: storyTime},
	},
	"late": {
		{Title: "Flamengo vence Palmeiras e assume liderança", Snippet: "Republicado horas depois por outro portal.", SourceURL: "https://late.example/9", PublishedAt: storyTime},
	},
	"mirror": {
		{Title: "Inflação recua em março segundo IBGE", SourceURL: "https://g1.example/1", PublishedAt: storyTime},
	},
}

func feedGuard(failing map[string]error) *source.Guard {
	return source.NewGuard(map[source.Kind]source.Connector{
		source.KindFeed: source.ConnectorFunc(func(ctx context.Context, cfg source.Config) ([]news.CandidateItem, error) {
			if cfg.Name == "panics" {
				panic("malformed feed")
			}
			if err := failing[cfg.Name]; err != nil {
				return nil, err
			}
			return feeds[cfg.Name], nil
		}),
	})
}

func newTestPipeline(t *testing.T, cfg *config.Config, cat *config.Catalog, fetcher aggregator.Fetcher) (*Pipeline, *recordingAnnouncer) {
	t.Helper()
	ann := &recordingAnnouncer{}
	p := NewPipeline(cfg, cat, Deps{
		Fetcher:     fetcher,
		Transformer: transform.Extractive{},
		Titles:      storage.NewFileTitles(cfg.TitlesFile),
		Announcer:   ann,
		Metrics:     &metrics.Metrics{IsHealthy: true},
	})
	return p, ann
}

func TestRunPublishesGroupsOnce(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cat := testCatalog("ge", "g1")

	p, ann := newTestPipeline(t, cfg, cat, feedGuard(nil))
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, news.StageIndexUpdated, report.Stage)
	assert.Equal(t, 2, report.Sources)
	assert.Equal(t, 4, report.Collected)
	assert.Equal(t, 1, report.Excluded)
	assert.Equal(t, 2, report.Groups)
	assert.Equal(t, 0, report.Duplicates)
	assert.Equal(t, 2, report.Published)
	assert.NotEmpty(t, report.RunID)
	assert.Len(t, ann.ids, 2)

	idx, err := publish.ReadIndex(filepath.Join(dir, "index.json"))
	require.NoError(t, err)
	require.Len(t, idx.Articles, 2)
	// Newest first; the keyword-weighted economy story was published first.
	assert.Equal(t, "sports", idx.Articles[0].Category)
	assert.Equal(t, "economy", idx.Articles[1].Category)
	assert.True(t, idx.Articles[0].PublishedAt.After(idx.Articles[1].PublishedAt))
	assert.Empty(t, idx.Articles[0].Body)

	sports := idx.Articles[0]
	assert.Equal(t, "pt", sports.Language)
	assert.Equal(t, "https://ge.example/1.jpg", sports.Image)
	assert.Len(t, sports.Sources, 2)
	assert.Equal(t, 1, sports.ReadingTime)

	_, err = os.Stat(filepath.Join(dir, "articles", "pt", "sports", sports.Slug+".json"))
	assert.NoError(t, err)

	// Same input again: everything is a duplicate and nothing new appears.
	p2, ann2 := newTestPipeline(t, cfg, cat, feedGuard(nil))
	report, err = p2.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Duplicates)
	assert.Equal(t, 0, report.Published)
	assert.Empty(t, ann2.ids)

	idx, err = publish.ReadIndex(filepath.Join(dir, "index.json"))
	require.NoError(t, err)
	assert.Len(t, idx.Articles, 2)
}

func TestRunRemembersGroupMembers(t *testing.T) {
	cfg := testConfig(t.TempDir())

	p, _ := newTestPipeline(t, cfg, testCatalog("ge", "g1"), feedGuard(nil))
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	// Only a member of the published sports group, never its anchor.
	p2, ann := newTestPipeline(t, cfg, testCatalog("late"), feedGuard(nil))
	report, err := p2.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 0, report.Published)
	assert.Empty(t, ann.ids)
}

func TestRunSurvivesFailingSources(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cat := testCatalog("down", "panics", "ge")

	p, _ := newTestPipeline(t, cfg, cat, feedGuard(map[string]error{"down": errors.New("503")}))
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.FetchErrors)
	assert.Equal(t, 1, report.Published)
	assert.Equal(t, 2, report.Errored())
}

func TestRunNoData(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cat := testCatalog("down")

	p, _ := newTestPipeline(t, cfg, cat, feedGuard(map[string]error{"down": errors.New("timeout")}))
	report, err := p.Run(context.Background())
	assert.ErrorIs(t, err, news.ErrNoData)
	assert.Equal(t, news.StageClassifying, report.Stage)
	assert.Equal(t, 0, report.Published)

	_, statErr := os.Stat(filepath.Join(cfg.DataDir, "index.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunStopsTransformsAtQuota(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.MaxTransformCalls = 1
	cat := testCatalog("ge", "g1")

	p, _ := newTestPipeline(t, cfg, cat, feedGuard(nil))
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.QuotaHit)
	assert.Equal(t, 1, report.Transformed)
	assert.Equal(t, 1, report.Published)
	assert.Equal(t, 0, report.TransformErrors)
}

func TestRunCapsGroupsPerRun(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.MaxPublishPerRun = 1
	cat := testCatalog("ge", "g1")

	p, _ := newTestPipeline(t, cfg, cat, feedGuard(nil))
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Published)

	idx, err := publish.ReadIndex(filepath.Join(cfg.DataDir, "index.json"))
	require.NoError(t, err)
	assert.Equal(t, "economy", idx.Articles[0].Category)
}

func TestRunFailsOnIndexWrite(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	// A directory where index.json belongs makes the rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "index.json", "x"), 0o755))
	cat := testCatalog("ge")

	p, ann := newTestPipeline(t, cfg, cat, feedGuard(nil))
	report, err := p.Run(context.Background())
	require.Error(t, err)

	var runErr *news.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, news.StagePublishing, runErr.Stage)
	var iwe *news.IndexWriteError
	assert.ErrorAs(t, err, &iwe)
	assert.Equal(t, 0, report.Published)
	assert.Empty(t, ann.ids)
}

func TestRunReportsBudgetAndFeed(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.SiteDescription = "Resumo diário"
	cat := testCatalog("ge", "g1", "mirror")

	p, _ := newTestPipeline(t, cfg, cat, feedGuard(nil))
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.URLDuplicates)
	assert.Equal(t, 4, report.Collected)
	assert.Equal(t, 2, report.TransformCalls)

	stats := p.deps.Metrics.GetStats()
	assert.EqualValues(t, 1, stats["url_duplicates"])
	assert.EqualValues(t, 2, stats["transform_calls"])
	quota, ok := stats["transform_quota"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2, quota["total_used"])
	assert.Equal(t, false, quota["exhausted"])

	rss, err := os.ReadFile(filepath.Join(cfg.DataDir, "feed.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(rss), "<description>Resumo diário</description>")
}

func TestReadingTime(t *testing.T) {
	assert.Equal(t, 1, readingTime("short"))
	long := make([]byte, 0, 4000)
	for i := 0; i < 450; i++ {
		long = append(long, "word "...)
	}
	assert.Equal(t, 2, readingTime(string(long)))
}

func TestCollectStats(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cat := testCatalog("ge", "g1")

	p, _ := newTestPipeline(t, cfg, cat, feedGuard(nil))
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	st, err := CollectStats(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Articles)
	assert.Equal(t, map[string]int{"sports": 1, "economy": 1}, st.Categories)
	assert.Equal(t, []string{"economy", "sports"}, st.CategoryNames())
	assert.Equal(t, 2, st.Languages["pt"])
	assert.Equal(t, "file", st.TitlesStore)
	assert.GreaterOrEqual(t, st.TitlesSeen, 2)
	assert.Empty(t, st.IndexError)
}

func TestCollectStatsCorruptIndex(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte("{not json"), 0o644))

	st, err := CollectStats(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Articles)
	assert.NotEmpty(t, st.IndexError)
}
