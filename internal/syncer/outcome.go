package syncer

import (
	"errors"
	"fmt"
)

// OutcomeKind classifies what a sync pass did with one item.
type OutcomeKind int

const (
	Added OutcomeKind = iota + 1
	Updated
	Unchanged
	Deleted
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	case Deleted:
		return "deleted"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of a sync pass for a single item.
// Reason is set only for Failed outcomes.
type Outcome struct {
	ID     string
	Kind   OutcomeKind
	Reason string
}

// Stage names the step of item work that failed.
type Stage string

const (
	StageValidate Stage = "validate"
	StageMkdir    Stage = "mkdir"
	StageDownload Stage = "download"
	StageWrite    Stage = "write"
	StageDelete   Stage = "delete"
)

// ItemError is a failure confined to one item.
type ItemError struct {
	ID    string
	Stage Stage
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %s: %s: %v", e.ID, e.Stage, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// retryable reports whether err is a download failure worth another round.
func retryable(err error) bool {
	var ie *ItemError
	return errors.As(err, &ie) && ie.Stage == StageDownload
}

// Summary counts outcomes by kind.
type Summary struct {
	Added     int
	Updated   int
	Unchanged int
	Deleted   int
	Failed    int
}

// Total returns the number of outcomes counted.
func (s Summary) Total() int {
	return s.Added + s.Updated + s.Unchanged + s.Deleted + s.Failed
}

func (s Summary) String() string {
	return fmt.Sprintf("added=%d updated=%d unchanged=%d deleted=%d failed=%d",
		s.Added, s.Updated, s.Unchanged, s.Deleted, s.Failed)
}

// Report is the result of syncing one target.
type Report struct {
	Target   string
	Mode     string
	Album    string
	Outcomes []Outcome

	// RenderErr is set when the shaper's final render failed. The index was
	// still saved, so the pass itself succeeded.
	RenderErr error
}

// Summary counts the report's outcomes.
func (r *Report) Summary() Summary {
	var s Summary
	for _, o := range r.Outcomes {
		switch o.Kind {
		case Added:
			s.Added++
		case Updated:
			s.Updated++
		case Unchanged:
			s.Unchanged++
		case Deleted:
			s.Deleted++
		case Failed:
			s.Failed++
		}
	}
	return s
}

// Failures returns the Failed outcomes in report order.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Kind == Failed {
			out = append(out, o)
		}
	}
	return out
}

// Outcome returns the outcome recorded for id.
func (r *Report) Outcome(id string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.ID == id {
			return o, true
		}
	}
	return Outcome{}, false
}
