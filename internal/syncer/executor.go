package syncer

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"albumsync/internal/index"
	"albumsync/internal/model"
)

// Default pool ceilings.
const (
	DefaultProcessWorkers = 8
	DefaultDeleteWorkers  = 10
)

// ExecutorOptions bounds the executor's pools.
type ExecutorOptions struct {
	ProcessWorkers int
	DeleteWorkers  int

	// Retries is the number of extra rounds for items whose download failed.
	Retries int
	// RetryBackoff is multiplied by the round number before each retry round.
	RetryBackoff time.Duration
}

func (o ExecutorOptions) withDefaults() ExecutorOptions {
	if o.ProcessWorkers <= 0 {
		o.ProcessWorkers = DefaultProcessWorkers
	}
	if o.DeleteWorkers <= 0 {
		o.DeleteWorkers = DefaultDeleteWorkers
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	return o
}

type processResult struct {
	item    model.RemoteItem
	indexed model.IndexedItem
	err     error
}

type deleteResult struct {
	id  string
	err error
}

// collector accumulates worker results. It is the only state shared between
// workers and holds no index data.
type collector struct {
	mu        sync.Mutex
	processed []processResult
	deleted   []deleteResult
}

func (c *collector) addProcessed(r processResult) {
	c.mu.Lock()
	c.processed = append(c.processed, r)
	c.mu.Unlock()
}

func (c *collector) addDeleted(r deleteResult) {
	c.mu.Lock()
	c.deleted = append(c.deleted, r)
	c.mu.Unlock()
}

// takeProcessed returns and clears the processed results.
func (c *collector) takeProcessed() []processResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.processed
	c.processed = nil
	return out
}

// Executor runs item work through bounded pools and applies the results to the
// index in one sequential pass.
type Executor struct {
	processor *Processor
	shaper    Shaper
	clock     Clock
	logger    Logger
	opts      ExecutorOptions
}

// NewExecutor creates an Executor.
func NewExecutor(processor *Processor, shaper Shaper, clock Clock, logger Logger, opts ExecutorOptions) *Executor {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Executor{
		processor: processor,
		shaper:    shaper,
		clock:     clock,
		logger:    logger,
		opts:      opts.withDefaults(),
	}
}

// Run processes toProcess and removes toDelete, then mutates idx once.
// Outcomes are sorted by id. Ids in toDelete that are not indexed still have
// their artifacts removed.
func (e *Executor) Run(ctx context.Context, toProcess []model.RemoteItem, toDelete []string, idx *index.Index) []Outcome {
	// Snapshot orphans before any worker starts; workers never read idx.
	orphans := make([]model.IndexedItem, 0, len(toDelete))
	for _, id := range toDelete {
		it, ok := idx.Item(id)
		if !ok {
			it = model.IndexedItem{RemoteItem: model.RemoteItem{ID: id}}
		}
		orphans = append(orphans, it)
	}

	acc := &collector{}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.deleteAll(orphans, acc)
	}()

	processed := e.processAll(ctx, toProcess, acc)
	wg.Wait()

	return e.apply(idx, processed, acc.deleted)
}

func (e *Executor) deleteAll(orphans []model.IndexedItem, acc *collector) {
	var g errgroup.Group
	g.SetLimit(e.opts.DeleteWorkers)

	for _, it := range orphans {
		g.Go(func() error {
			var err error
			if rerr := e.shaper.RemoveItem(it); rerr != nil {
				err = &ItemError{ID: it.ID, Stage: StageDelete, Err: rerr}
			}
			acc.addDeleted(deleteResult{id: it.ID, err: err})
			return nil
		})
	}
	g.Wait()
}

// processAll runs rounds of processing. Items whose download failed are queued
// for the next round, up to opts.Retries extra rounds.
func (e *Executor) processAll(ctx context.Context, items []model.RemoteItem, acc *collector) []processResult {
	var final []processResult
	pending := items

	for round := 0; len(pending) > 0; round++ {
		e.processRound(ctx, pending, acc)

		pending = nil
		for _, r := range acc.takeProcessed() {
			if r.err != nil && round < e.opts.Retries && retryable(r.err) && ctx.Err() == nil {
				pending = append(pending, r.item)
				continue
			}
			final = append(final, r)
		}
		if len(pending) == 0 {
			break
		}

		wait := e.opts.RetryBackoff * time.Duration(round+1)
		e.logger.Info("retrying failed downloads", "count", len(pending), "round", round+1, "backoff", wait)
		if !sleep(ctx, wait) {
			for _, it := range pending {
				final = append(final, processResult{
					item: it,
					err:  &ItemError{ID: it.ID, Stage: StageDownload, Err: ctx.Err()},
				})
			}
			break
		}
	}
	return final
}

func (e *Executor) processRound(ctx context.Context, items []model.RemoteItem, acc *collector) {
	var g errgroup.Group
	g.SetLimit(e.opts.ProcessWorkers)

	for _, it := range items {
		g.Go(func() error {
			indexed, err := e.processor.Process(ctx, it)
			acc.addProcessed(processResult{item: it, indexed: indexed, err: err})
			return nil
		})
	}
	g.Wait()
}

// apply is the sequential mutation pass.
func (e *Executor) apply(idx *index.Index, processed []processResult, deleted []deleteResult) []Outcome {
	now := e.clock.Now()
	outcomes := make([]Outcome, 0, len(processed)+len(deleted))

	slices.SortFunc(processed, func(a, b processResult) int { return strings.Compare(a.item.ID, b.item.ID) })
	for _, r := range processed {
		id := r.item.ID
		if r.err != nil {
			e.logger.Error("item failed", "id", id, "error", r.err)
			outcomes = append(outcomes, Outcome{ID: id, Kind: Failed, Reason: r.err.Error()})
			continue
		}

		// Added or Updated follows the whole index, not the shaper's LocalView:
		// a gallery item dropped from its collection earlier is still indexed, so
		// it is Updated when it returns even though Classify called it new.
		kind := Added
		if prior, ok := idx.Item(id); ok {
			kind = Updated
			e.removeStale(prior, r.indexed)
		}
		idx.PutItem(r.indexed, now)
		e.shaper.Adopt(idx, id, now)
		outcomes = append(outcomes, Outcome{ID: id, Kind: kind})
	}

	slices.SortFunc(deleted, func(a, b deleteResult) int { return strings.Compare(a.id, b.id) })
	for _, r := range deleted {
		if r.err != nil {
			e.logger.Error("item removal failed", "id", r.id, "error", r.err)
			outcomes = append(outcomes, Outcome{ID: r.id, Kind: Failed, Reason: r.err.Error()})
			continue
		}
		e.shaper.Forget(idx, r.id, now)
		outcomes = append(outcomes, Outcome{ID: r.id, Kind: Deleted})
	}

	slices.SortStableFunc(outcomes, func(a, b Outcome) int { return strings.Compare(a.ID, b.ID) })
	return outcomes
}

// removeStale deletes the content file an item had before its media type changed.
func (e *Executor) removeStale(prior, current model.IndexedItem) {
	stale := e.shaper.ContentPath(prior.RemoteItem)
	if stale == current.LocalPath {
		return
	}
	if err := os.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.logger.Warn("removing stale content failed", "id", current.ID, "path", stale, "error", err)
	}
}

// sleep waits for d or until ctx is done. It returns false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
