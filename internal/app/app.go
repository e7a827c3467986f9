package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"albumsync/internal/album"
	"albumsync/internal/config"
	"albumsync/internal/download"
	"albumsync/internal/exif"
	"albumsync/internal/geocode"
	"albumsync/internal/index"
	"albumsync/internal/output"
	"albumsync/internal/syncer"
)

// App is the application layer between the CLI and the sync Service.
// It constructs all dependencies from config, builds a syncer.Target per
// configured target, and releases index stores and the log file on Close.
type App struct {
	cfg     *config.Config
	service *syncer.Service
	logger  *slog.Logger
	logFile io.Closer
	clock   syncer.Clock
	ids     syncer.IDGenerator
	op      *Operation
	closers []io.Closer
}

// Options carries the process-level inputs that do not come from the config file.
type Options struct {
	// Command names the CLI command being run, e.g. "sync" or "status".
	Command string
	// Stderr receives a copy of the log. Nil disables console logging.
	Stderr io.Writer
}

// New creates a fully wired App from the given config.
// The caller must call Close when done.
func New(cfg *config.Config, opts Options) (*App, error) {
	clock := syncer.RealClock{}
	op := NewOperation(opts.Command, clock.Now())

	logger, logFile, err := newLogger(logOptions{
		Dir:        cfg.LogDir,
		Level:      cfg.LogLevel,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Stderr:     opts.Stderr,
	}, op.ID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	client, err := album.NewClientFromConfig(cfg.Album)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating album client: %w", err)
	}

	resolver, err := geocode.NewResolverFromConfig(cfg.Geocode)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating place resolver: %w", err)
	}

	svc := syncer.NewService(
		client,
		download.NewDownloaderFromConfig(cfg.S3),
		exif.NewExtractor(cfg.FuzzMeters, nil),
		resolver,
		&slogAdapter{l: logger},
		clock,
		syncer.ExecutorOptions{
			ProcessWorkers: cfg.Sync.ProcessWorkers,
			DeleteWorkers:  cfg.Sync.DeleteWorkers,
			Retries:        cfg.Sync.Retries,
			RetryBackoff:   cfg.Sync.RetryBackoff.Duration,
		},
	)

	logger.Debug("operation started", "command", op.Command)

	return &App{
		cfg:     cfg,
		service: svc,
		logger:  logger,
		logFile: logFile,
		clock:   clock,
		ids:     syncer.UUIDGenerator{},
		op:      op,
	}, nil
}

// Operation returns the operation tracked by this App.
func (a *App) Operation() *Operation { return a.op }

// selectTargets returns the named targets, or every enabled target when names is empty.
func (a *App) selectTargets(names []string) ([]config.TargetConfig, error) {
	if len(names) == 0 {
		targets := a.cfg.EnabledTargets()
		if len(targets) == 0 {
			return nil, fmt.Errorf("no enabled targets configured")
		}
		return targets, nil
	}
	return a.cfg.TargetsByName(names)
}

// buildTarget opens the target's index store and output shaper. Stores that
// hold resources are closed by Close.
func (a *App) buildTarget(tc config.TargetConfig) (syncer.Target, error) {
	store, err := index.NewStoreFromConfig(tc.Index, a.ids.New)
	if err != nil {
		return syncer.Target{}, fmt.Errorf("target %q: opening index: %w", tc.Name, err)
	}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	shaper, err := output.NewShaperFromConfig(tc, a.ids, a.clock)
	if err != nil {
		return syncer.Target{}, fmt.Errorf("target %q: %w", tc.Name, err)
	}

	return syncer.Target{Name: tc.Name, Locator: tc.AlbumURL, Store: store, Shaper: shaper}, nil
}

// Sync runs a sync pass for each selected target. Targets are isolated: one
// failing does not stop the rest. The returned error joins every target error.
func (a *App) Sync(ctx context.Context, names []string) ([]syncer.TargetResult, error) {
	configs, err := a.selectTargets(names)
	if err != nil {
		a.op.Record(StatusError)
		return nil, err
	}

	var (
		targets []syncer.Target
		results []syncer.TargetResult
		errs    []error
	)
	for _, tc := range configs {
		a.op.Targets = append(a.op.Targets, tc.Name)
		t, err := a.buildTarget(tc)
		if err != nil {
			a.logger.Error("target setup failed", "target", tc.Name, "error", err)
			results = append(results, syncer.TargetResult{Target: tc.Name, Err: err})
			errs = append(errs, err)
			continue
		}
		targets = append(targets, t)
	}

	for _, r := range a.service.SyncAll(ctx, targets) {
		results = append(results, r)
		switch {
		case r.Err != nil:
			errs = append(errs, fmt.Errorf("target %q: %w", r.Target, r.Err))
			a.op.Record(StatusError)
		case r.Report.Summary().Failed > 0 || r.Report.RenderErr != nil:
			a.op.Record(StatusPartial)
		}
	}
	if len(errs) > 0 {
		a.op.Record(StatusError)
	}

	return results, errors.Join(errs...)
}

// StatusResult pairs a target with its sync plan.
type StatusResult struct {
	Target string
	Plan   *syncer.Plan
	Err    error
}

// Status reports what a sync would do for each selected target without
// downloading or writing anything.
func (a *App) Status(ctx context.Context, names []string) ([]StatusResult, error) {
	configs, err := a.selectTargets(names)
	if err != nil {
		return nil, err
	}

	results := make([]StatusResult, 0, len(configs))
	for _, tc := range configs {
		t, err := a.buildTarget(tc)
		if err != nil {
			results = append(results, StatusResult{Target: tc.Name, Err: err})
			continue
		}
		plan, err := a.service.Plan(ctx, t)
		results = append(results, StatusResult{Target: tc.Name, Plan: plan, Err: err})
	}
	return results, nil
}

// Close logs the operation outcome and closes all resources.
func (a *App) Close() error {
	a.logger.Info("operation finished",
		"command", a.op.Command,
		"status", a.op.Status,
		"duration", a.clock.Now().Sub(a.op.StartedAt).Round(time.Millisecond))

	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing index: %w", err))
		}
	}
	a.closers = nil

	if err := a.logFile.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing log file: %w", err))
	}
	return errors.Join(errs...)
}
