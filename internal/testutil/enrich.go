package testutil

import (
	"sync"

	"albumsync/internal/model"
)

// StubExtractor returns metadata chosen by Func. A nil Func returns no metadata.
type StubExtractor struct {
	Func func(path string) (*model.Metadata, error)
}

func (e *StubExtractor) Extract(path string) (*model.Metadata, error) {
	if e.Func == nil {
		return nil, nil
	}
	return e.Func(path)
}

// StubResolver returns a fixed Place or error and counts calls.
type StubResolver struct {
	Place *model.Place
	Err   error

	mu    sync.Mutex
	calls int
}

func (r *StubResolver) Resolve(lat, lon float64) (*model.Place, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	if r.Place == nil {
		return nil, nil
	}
	p := *r.Place
	return &p, nil
}

// Calls returns the number of Resolve calls.
func (r *StubResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
