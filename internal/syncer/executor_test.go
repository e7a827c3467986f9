package syncer_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"albumsync/internal/index"
	"albumsync/internal/model"
	"albumsync/internal/output"
	"albumsync/internal/syncer"
	"albumsync/internal/testutil"
)

func newExecutor(t *testing.T, dl syncer.Downloader, shaper syncer.Shaper, opts syncer.ExecutorOptions) *syncer.Executor {
	t.Helper()
	clock := testutil.FixedClock()
	p := syncer.NewProcessor(dl, nil, nil, shaper, clock, nil)
	return syncer.NewExecutor(p, shaper, clock, nil, opts)
}

func kinds(outcomes []syncer.Outcome) map[string]syncer.OutcomeKind {
	m := make(map[string]syncer.OutcomeKind, len(outcomes))
	for _, o := range outcomes {
		m[o.ID] = o.Kind
	}
	return m
}

func TestExecutor_BoundedConcurrency(t *testing.T) {
	dl := testutil.NewStubDownloader()
	dl.Delay = 20 * time.Millisecond

	var items []model.RemoteItem
	for i := range 12 {
		items = append(items, testutil.Item(fmt.Sprintf("p%02d", i), "x"))
	}

	e := newExecutor(t, dl, output.NewBundleShaper(t.TempDir()), syncer.ExecutorOptions{ProcessWorkers: 3})
	outcomes := e.Run(context.Background(), items, nil, index.New())

	if len(outcomes) != len(items) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(items))
	}
	if got := dl.MaxInFlight(); got > 3 {
		t.Errorf("MaxInFlight = %d, want <= 3", got)
	}
	if got := dl.MaxInFlight(); got < 2 {
		t.Errorf("MaxInFlight = %d, want some overlap", got)
	}
	for i := 1; i < len(outcomes); i++ {
		if outcomes[i-1].ID >= outcomes[i].ID {
			t.Fatalf("outcomes not sorted by id: %s before %s", outcomes[i-1].ID, outcomes[i].ID)
		}
	}
}

func TestExecutor_PartialFailure(t *testing.T) {
	dl := testutil.NewStubDownloader()
	items := []model.RemoteItem{testutil.Item("a", "1"), testutil.Item("b", "2"), testutil.Item("c", "3")}
	dl.FailURL(items[1].URL, -1)

	idx := index.New()
	e := newExecutor(t, dl, output.NewBundleShaper(t.TempDir()), syncer.ExecutorOptions{})
	outcomes := e.Run(context.Background(), items, nil, idx)

	got := kinds(outcomes)
	want := map[string]syncer.OutcomeKind{"a": syncer.Added, "b": syncer.Failed, "c": syncer.Added}
	for id, k := range want {
		if got[id] != k {
			t.Errorf("outcome[%s] = %v, want %v", id, got[id], k)
		}
	}
	if idx.Has("b") {
		t.Error("failed item was indexed")
	}
	if idx.ItemCount() != 2 {
		t.Errorf("ItemCount() = %d, want 2", idx.ItemCount())
	}
	for _, o := range outcomes {
		if o.ID == "b" && o.Reason == "" {
			t.Error("failed outcome has no reason")
		}
	}
}

func TestExecutor_UpdatedWhenAlreadyIndexed(t *testing.T) {
	idx := index.New()
	idx.PutItem(model.IndexedItem{RemoteItem: testutil.Item("p1", "old")}, time.Now())

	e := newExecutor(t, testutil.NewStubDownloader(), output.NewBundleShaper(t.TempDir()), syncer.ExecutorOptions{})
	outcomes := e.Run(context.Background(), []model.RemoteItem{testutil.Item("p1", "new")}, nil, idx)

	if k := kinds(outcomes)["p1"]; k != syncer.Updated {
		t.Errorf("outcome = %v, want updated", k)
	}
	it, _ := idx.Item("p1")
	if it.Checksum != "new" {
		t.Errorf("indexed checksum = %q, want new", it.Checksum)
	}
}

func TestExecutor_MediaTypeChangeRemovesStaleContent(t *testing.T) {
	root := t.TempDir()
	shaper := output.NewBundleShaper(root)
	old := testutil.Item("p1", "old")
	stale := shaper.ContentPath(old)
	if err := os.MkdirAll(filepath.Dir(stale), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("jpeg"), 0644); err != nil {
		t.Fatal(err)
	}
	idx := index.New()
	idx.PutItem(model.IndexedItem{RemoteItem: old, LocalPath: stale}, time.Now())

	changed := testutil.Item("p1", "new")
	changed.MediaType = "video/mp4"
	e := newExecutor(t, testutil.NewStubDownloader(), shaper, syncer.ExecutorOptions{})
	outcomes := e.Run(context.Background(), []model.RemoteItem{changed}, nil, idx)

	if k := kinds(outcomes)["p1"]; k != syncer.Updated {
		t.Fatalf("outcome = %v, want updated", k)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale %s still exists", filepath.Base(stale))
	}
	fresh := filepath.Join(root, "p1", "original.mp4")
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("new content missing: %v", err)
	}
	if it, _ := idx.Item("p1"); it.LocalPath != fresh {
		t.Errorf("LocalPath = %q, want %q", it.LocalPath, fresh)
	}
}

func TestExecutor_Retry(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		retries   int
		wantKind  syncer.OutcomeKind
		wantCalls int
	}{
		{name: "succeeds on retry", failures: 1, retries: 2, wantKind: syncer.Added, wantCalls: 2},
		{name: "no retries configured", failures: 1, retries: 0, wantKind: syncer.Failed, wantCalls: 1},
		{name: "exhausts retries", failures: -1, retries: 2, wantKind: syncer.Failed, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := testutil.Item("p1", "a")
			dl := testutil.NewStubDownloader()
			dl.FailURL(item.URL, tt.failures)

			e := newExecutor(t, dl, output.NewBundleShaper(t.TempDir()), syncer.ExecutorOptions{Retries: tt.retries})
			outcomes := e.Run(context.Background(), []model.RemoteItem{item}, nil, index.New())

			if k := kinds(outcomes)["p1"]; k != tt.wantKind {
				t.Errorf("outcome = %v, want %v", k, tt.wantKind)
			}
			if got := dl.Calls(item.URL); got != tt.wantCalls {
				t.Errorf("download calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestExecutor_WriteFailureIsNotRetried(t *testing.T) {
	item := testutil.Item("p1", "a")
	dl := testutil.NewStubDownloader()
	shaper := writeFailShaper{output.NewBundleShaper(t.TempDir())}

	e := newExecutor(t, dl, shaper, syncer.ExecutorOptions{Retries: 3})
	outcomes := e.Run(context.Background(), []model.RemoteItem{item}, nil, index.New())

	if k := kinds(outcomes)["p1"]; k != syncer.Failed {
		t.Errorf("outcome = %v, want failed", k)
	}
	if got := dl.Calls(item.URL); got != 1 {
		t.Errorf("download calls = %d, want 1", got)
	}
}

func TestExecutor_CancelledContextStopsRetries(t *testing.T) {
	item := testutil.Item("p1", "a")
	dl := testutil.NewStubDownloader()
	dl.FailURL(item.URL, -1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newExecutor(t, dl, output.NewBundleShaper(t.TempDir()), syncer.ExecutorOptions{Retries: 5, RetryBackoff: time.Hour})
	outcomes := e.Run(ctx, []model.RemoteItem{item}, nil, index.New())

	if k := kinds(outcomes)["p1"]; k != syncer.Failed {
		t.Errorf("outcome = %v, want failed", k)
	}
	if got := dl.Calls(item.URL); got != 1 {
		t.Errorf("download calls = %d, want 1", got)
	}
}

func TestExecutor_Deletes(t *testing.T) {
	root := t.TempDir()
	shaper := output.NewBundleShaper(root)

	orphan := testutil.Item("p3", "c")
	dir := shaper.ItemDir(orphan)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.md"), []byte("---\n---\n"), 0644); err != nil {
		t.Fatal(err)
	}

	idx := index.New()
	idx.PutItem(model.IndexedItem{RemoteItem: orphan, LocalPath: shaper.ContentPath(orphan)}, time.Now())

	e := newExecutor(t, testutil.NewStubDownloader(), shaper, syncer.ExecutorOptions{})
	outcomes := e.Run(context.Background(), nil, []string{"p3", "ghost"}, idx)

	got := kinds(outcomes)
	if got["p3"] != syncer.Deleted {
		t.Errorf("outcome[p3] = %v, want deleted", got["p3"])
	}
	if got["ghost"] != syncer.Deleted {
		t.Errorf("outcome[ghost] = %v, want deleted", got["ghost"])
	}
	if idx.Has("p3") {
		t.Error("p3 still indexed")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("bundle directory still exists: %v", err)
	}
}
