package news

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when collection yields nothing usable.
var ErrNoData = errors.New("no data collected")

// FetchError reports a source that failed to deliver items.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TransformError reports a content generation failure for one group.
type TransformError struct {
	Anchor string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %q: %v", e.Anchor, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// IndexCorruptError reports persisted state that could not be read back.
// Callers recover by starting from an empty state.
type IndexCorruptError struct {
	Path string
	Err  error
}

func (e *IndexCorruptError) Error() string {
	return fmt.Sprintf("corrupt state %s: %v", e.Path, e.Err)
}

func (e *IndexCorruptError) Unwrap() error { return e.Err }

// QuotaExceededError is returned once the transform budget is spent.
type QuotaExceededError struct {
	Limit int
	Used  int
}

func (e *QuotaExceededError) Error() string {
	if e.Limit <= 0 {
		return "transform quota exceeded upstream"
	}
	return fmt.Sprintf("transform quota exceeded (%d/%d)", e.Used, e.Limit)
}

// IndexWriteError is a failed write of the publication index. It fails the run.
type IndexWriteError struct {
	Path string
	Err  error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("write index %s: %v", e.Path, e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }

// RunError is a run-level failure carrying the partial counts.
type RunError struct {
	Stage     Stage
	Processed int
	Published int
	Errored   int
	Err       error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run failed at %s (processed=%d published=%d errored=%d): %v",
		e.Stage, e.Processed, e.Published, e.Errored, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// IsQuota reports whether err is or wraps a QuotaExceededError.
func IsQuota(err error) bool {
	var q *QuotaExceededError
	return errors.As(err, &q)
}
