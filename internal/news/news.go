// Package news holds the records that flow through a pipeline run.
package news

import (
	"time"
)

// CandidateItem is one story picked up from a source during a run.
type CandidateItem struct {
	Title       string    `json:"title"`
	Snippet     string    `json:"snippet,omitempty"`
	SourceURL   string    `json:"source_url"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
	SourceName  string    `json:"source_name"`
	Language    string    `json:"language,omitempty"`
	Category    string    `json:"category,omitempty"`
	Priority    float64   `json:"priority"`
}

// SourceGroup is a set of candidates believed to cover the same story.
// Items[0] is the anchor.
type SourceGroup struct {
	Category string          `json:"category"`
	Items    []CandidateItem `json:"items"`
}

// Anchor returns the first item added to the group.
func (g SourceGroup) Anchor() CandidateItem {
	if len(g.Items) == 0 {
		return CandidateItem{}
	}
	return g.Items[0]
}

// MaxPriority is the highest priority of any member.
func (g SourceGroup) MaxPriority() float64 {
	var best float64
	for i, it := range g.Items {
		if i == 0 || it.Priority > best {
			best = it.Priority
		}
	}
	return best
}

// SourceRef credits an original source inside a published article.
type SourceRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PublishedArticle is the durable output of a run.
type PublishedArticle struct {
	ID          string      `json:"id"`
	Slug        string      `json:"slug"`
	Title       string      `json:"title"`
	Excerpt     string      `json:"excerpt"`
	Body        string      `json:"body,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Category    string      `json:"category"`
	Language    string      `json:"language"`
	URL         string      `json:"url"`
	Image       string      `json:"image,omitempty"`
	PublishedAt time.Time   `json:"published_at"`
	ReadingTime int         `json:"reading_time"`
	Sources     []SourceRef `json:"sources,omitempty"`
}

// Summary strips the body so the record can sit in the index.
func (a PublishedArticle) Summary() PublishedArticle {
	a.Body = ""
	return a
}

// Stage names a step of the run state machine.
type Stage string

const (
	StageCollecting   Stage = "COLLECTING"
	StageClassifying  Stage = "CLASSIFYING"
	StageGrouping     Stage = "GROUPING"
	StageDeduping     Stage = "DEDUPING"
	StageTransforming Stage = "TRANSFORMING"
	StagePublishing   Stage = "PUBLISHING"
	StageIndexUpdated Stage = "INDEX-UPDATED"
)

// RunReport summarizes one pipeline run.
type RunReport struct {
	RunID           string    `json:"run_id"`
	Stage           Stage     `json:"stage"`
	Sources         int       `json:"sources"`
	FetchErrors     int       `json:"fetch_errors"`
	Collected       int       `json:"collected"`
	URLDuplicates   int       `json:"url_duplicates"`
	Excluded        int       `json:"excluded"`
	Classified      int       `json:"classified"`
	Groups          int       `json:"groups"`
	Duplicates      int       `json:"duplicates"`
	TransformCalls  int       `json:"transform_calls"`
	Transformed     int       `json:"transformed"`
	TransformErrors int       `json:"transform_errors"`
	QuotaHit        bool      `json:"quota_hit"`
	Published       int       `json:"published"`
	PublishErrors   int       `json:"publish_errors"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// Processed counts groups that reached the transform step.
func (r RunReport) Processed() int {
	return r.Transformed + r.TransformErrors
}

// Errored counts every per-item failure in the run.
func (r RunReport) Errored() int {
	return r.FetchErrors + r.TransformErrors + r.PublishErrors
}
