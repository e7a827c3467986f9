package syncer

import (
	"slices"
	"strings"

	"albumsync/internal/model"
)

// Classification partitions an album against local state.
// New and Changed are sorted by id, as are Unchanged and Orphaned.
type Classification struct {
	New       []model.RemoteItem
	Changed   []model.RemoteItem
	Unchanged []string
	Orphaned  []string
}

// Classify compares remote items with local ones by id and checksum. It is pure.
//
// A remote item absent locally is new; present with a different checksum it is
// changed; otherwise it is unchanged. Local ids absent remotely are orphaned.
func Classify(remote map[string]model.RemoteItem, local map[string]model.IndexedItem) Classification {
	var c Classification

	for id, r := range remote {
		l, ok := local[id]
		switch {
		case !ok:
			c.New = append(c.New, r)
		case l.Checksum != r.Checksum:
			c.Changed = append(c.Changed, r)
		default:
			c.Unchanged = append(c.Unchanged, id)
		}
	}

	for id := range local {
		if _, ok := remote[id]; !ok {
			c.Orphaned = append(c.Orphaned, id)
		}
	}

	byID := func(a, b model.RemoteItem) int { return strings.Compare(a.ID, b.ID) }
	slices.SortFunc(c.New, byID)
	slices.SortFunc(c.Changed, byID)
	slices.Sort(c.Unchanged)
	slices.Sort(c.Orphaned)
	return c
}

// ToProcess returns the items that need a download.
func (c Classification) ToProcess() []model.RemoteItem {
	out := make([]model.RemoteItem, 0, len(c.New)+len(c.Changed))
	out = append(out, c.New...)
	return append(out, c.Changed...)
}
