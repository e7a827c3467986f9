package syncer

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"albumsync/internal/index"
	"albumsync/internal/model"
)

// Target is one album synced into one output.
type Target struct {
	Name    string
	Locator string
	Store   index.Store
	Shaper  Shaper
}

// Service orchestrates sync passes. Collaborators shared by every target are
// injected here; per-target state lives in Target.
type Service struct {
	client     AlbumClient
	downloader Downloader
	extractor  MetadataExtractor
	resolver   PlaceResolver
	logger     Logger
	clock      Clock
	opts       ExecutorOptions
}

// NewService creates a Service. extractor and resolver may be nil.
func NewService(client AlbumClient, downloader Downloader, extractor MetadataExtractor, resolver PlaceResolver, logger Logger, clock Clock, opts ExecutorOptions) *Service {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Service{
		client:     client,
		downloader: downloader,
		extractor:  extractor,
		resolver:   resolver,
		logger:     logger,
		clock:      clock,
		opts:       opts,
	}
}

// Sync runs one pass for t: load the index, fetch the album, classify, execute,
// render and persist. A returned error with a nil report means the pass was
// aborted before any item work. A render failure does not fail the pass: it is
// recorded in Report.RenderErr and the index is saved.
func (s *Service) Sync(ctx context.Context, t Target) (*Report, error) {
	log := s.logger

	idx, album, cls, err := s.plan(ctx, t)
	if err != nil {
		return nil, err
	}

	log.Info("sync started", "target", t.Name, "mode", t.Shaper.Mode(), "album", album.Name,
		"remote", len(album.Items), "new", len(cls.New), "changed", len(cls.Changed),
		"unchanged", len(cls.Unchanged), "orphaned", len(cls.Orphaned))

	processor := NewProcessor(s.downloader, s.extractor, s.resolver, t.Shaper, s.clock, log)
	executor := NewExecutor(processor, t.Shaper, s.clock, log, s.opts)

	outcomes := executor.Run(ctx, cls.ToProcess(), cls.Orphaned, idx)
	for _, id := range cls.Unchanged {
		outcomes = append(outcomes, Outcome{ID: id, Kind: Unchanged})
	}
	slices.SortStableFunc(outcomes, func(a, b Outcome) int { return strings.Compare(a.ID, b.ID) })

	report := &Report{Target: t.Name, Mode: t.Shaper.Mode(), Album: album.Name, Outcomes: outcomes}

	if err := t.Shaper.Render(idx); err != nil {
		log.Error("rendering output failed", "target", t.Name, "error", err)
		report.RenderErr = fmt.Errorf("rendering output: %w", err)
	}

	if err := t.Store.Save(idx); err != nil {
		return report, fmt.Errorf("saving index: %w", err)
	}

	log.Info("sync finished", "target", t.Name, "summary", report.Summary().String())
	return report, nil
}

// Plan classifies t's album against its index without downloading or writing anything.
type Plan struct {
	Target         string
	Mode           string
	Album          string
	Remote         int
	Classification Classification
	Stats          index.Stats
}

// Plan reports what Sync would do for t.
func (s *Service) Plan(ctx context.Context, t Target) (*Plan, error) {
	idx, album, cls, err := s.plan(ctx, t)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Target:         t.Name,
		Mode:           t.Shaper.Mode(),
		Album:          album.Name,
		Remote:         len(album.Items),
		Classification: cls,
		Stats:          idx.Stats(),
	}, nil
}

func (s *Service) plan(ctx context.Context, t Target) (*index.Index, *model.Album, Classification, error) {
	idx, err := t.Store.Load()
	if err != nil {
		return nil, nil, Classification{}, fmt.Errorf("loading index: %w", err)
	}

	album, err := s.client.Fetch(ctx, t.Locator)
	if err != nil {
		return nil, nil, Classification{}, fmt.Errorf("fetching album: %w", err)
	}

	if err := t.Shaper.Prepare(idx, album); err != nil {
		return nil, nil, Classification{}, fmt.Errorf("preparing output: %w", err)
	}

	cls := Classify(album.Items, t.Shaper.LocalView(idx))
	return idx, album, cls, nil
}

// TargetResult pairs a target with the outcome of syncing it.
type TargetResult struct {
	Target string
	Report *Report
	Err    error
}

// SyncAll syncs each target in order. A failure in one target does not stop
// the others.
func (s *Service) SyncAll(ctx context.Context, targets []Target) []TargetResult {
	results := make([]TargetResult, 0, len(targets))
	for _, t := range targets {
		report, err := s.Sync(ctx, t)
		if err != nil {
			s.logger.Error("sync failed", "target", t.Name, "error", err)
		}
		results = append(results, TargetResult{Target: t.Name, Report: report, Err: err})
	}
	return results
}
