package syncer

import (
	"context"
	"fmt"
	"os"

	"albumsync/internal/model"
)

// Processor performs the per-item unit of work. It never touches the index,
// so Process is safe to call concurrently for distinct items.
type Processor struct {
	downloader Downloader
	extractor  MetadataExtractor
	resolver   PlaceResolver
	shaper     Shaper
	clock      Clock
	logger     Logger
}

// NewProcessor creates a Processor. extractor and resolver may be nil.
func NewProcessor(downloader Downloader, extractor MetadataExtractor, resolver PlaceResolver, shaper Shaper, clock Clock, logger Logger) *Processor {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Processor{
		downloader: downloader,
		extractor:  extractor,
		resolver:   resolver,
		shaper:     shaper,
		clock:      clock,
		logger:     logger,
	}
}

// Process downloads and enriches one item.
// Errors are *ItemError values; metadata and place failures are only logged.
func (p *Processor) Process(ctx context.Context, item model.RemoteItem) (model.IndexedItem, error) {
	if err := model.ValidateID(item.ID); err != nil {
		return model.IndexedItem{}, &ItemError{ID: item.ID, Stage: StageValidate, Err: err}
	}

	dir := p.shaper.ItemDir(item)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return model.IndexedItem{}, &ItemError{ID: item.ID, Stage: StageMkdir, Err: err}
	}

	dest := p.shaper.ContentPath(item)
	if err := p.downloader.Download(ctx, item.URL, dest); err != nil {
		return model.IndexedItem{}, &ItemError{ID: item.ID, Stage: StageDownload, Err: err}
	}

	indexed := model.IndexedItem{
		RemoteItem: item,
		LastSynced: p.clock.Now(),
		LocalPath:  dest,
	}

	if p.extractor != nil {
		meta, err := p.extractor.Extract(dest)
		if err != nil {
			p.logger.Warn("metadata extraction failed", "id", item.ID, "error", err)
		} else {
			indexed.Metadata = meta
		}
	}

	if p.resolver != nil && indexed.Metadata.HasCoordinates() {
		place, err := p.resolver.Resolve(*indexed.Metadata.Latitude, *indexed.Metadata.Longitude)
		if err != nil {
			p.logger.Warn("place resolution failed", "id", item.ID, "error", err)
		} else {
			indexed.Place = place
		}
	}

	if err := p.shaper.WriteItem(indexed); err != nil {
		return model.IndexedItem{}, &ItemError{ID: item.ID, Stage: StageWrite, Err: fmt.Errorf("writing item document: %w", err)}
	}

	p.logger.Debug("item processed", "id", item.ID, "path", dest)
	return indexed, nil
}
