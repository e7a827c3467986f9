package syncer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"albumsync/internal/config"
	"albumsync/internal/index"
	"albumsync/internal/model"
	"albumsync/internal/output"
	"albumsync/internal/syncer"
	"albumsync/internal/testutil"
)

type fixture struct {
	client *testutil.StubAlbumClient
	dl     *testutil.StubDownloader
	clock  *testutil.StubClock
	svc    *syncer.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		client: testutil.NewStubAlbumClient(),
		dl:     testutil.NewStubDownloader(),
		clock:  testutil.FixedClock(),
	}
	f.svc = syncer.NewService(f.client, f.dl, nil, nil, nil, f.clock, syncer.ExecutorOptions{})
	return f
}

func bundleTarget(t *testing.T, locator string) (syncer.Target, *index.MemoryStore, string) {
	t.Helper()
	root := t.TempDir()
	store := index.NewMemoryStore()
	return syncer.Target{
		Name:    "photostream",
		Locator: locator,
		Store:   store,
		Shaper:  output.NewBundleShaper(root),
	}, store, root
}

func TestService_Sync(t *testing.T) {
	t.Run("adds every item to an empty index", func(t *testing.T) {
		f := newFixture(t)
		f.client.SetAlbum("album", "Trip", testutil.Item("p1", "a"), testutil.Item("p2", "b"))
		target, store, root := bundleTarget(t, "album")

		report, err := f.svc.Sync(context.Background(), target)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}

		s := report.Summary()
		if s.Added != 2 || s.Total() != 2 {
			t.Errorf("Summary() = %s, want added=2 only", s)
		}
		for _, id := range []string{"p1", "p2"} {
			if _, err := os.Stat(filepath.Join(root, id, "index.md")); err != nil {
				t.Errorf("bundle %s missing: %v", id, err)
			}
			if _, err := os.Stat(filepath.Join(root, id, "original.jpg")); err != nil {
				t.Errorf("content %s missing: %v", id, err)
			}
		}

		idx, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if idx.ItemCount() != 2 {
			t.Errorf("ItemCount() = %d, want 2", idx.ItemCount())
		}
		if report.Album != "Trip" || report.Mode != "bundle" || report.Target != "photostream" {
			t.Errorf("report header = %q/%q/%q", report.Target, report.Mode, report.Album)
		}
	})

	t.Run("second run is unchanged and downloads nothing", func(t *testing.T) {
		f := newFixture(t)
		f.client.SetAlbum("album", "Trip", testutil.Item("p1", "a"), testutil.Item("p2", "b"))
		target, _, _ := bundleTarget(t, "album")

		if _, err := f.svc.Sync(context.Background(), target); err != nil {
			t.Fatalf("first Sync() error = %v", err)
		}
		calls := f.dl.TotalCalls()

		report, err := f.svc.Sync(context.Background(), target)
		if err != nil {
			t.Fatalf("second Sync() error = %v", err)
		}
		if s := report.Summary(); s.Unchanged != 2 || s.Total() != 2 {
			t.Errorf("Summary() = %s, want unchanged=2 only", s)
		}
		if f.dl.TotalCalls() != calls {
			t.Errorf("second run downloaded %d items", f.dl.TotalCalls()-calls)
		}
	})

	t.Run("removes items gone from the album", func(t *testing.T) {
		f := newFixture(t)
		f.client.SetAlbum("album", "Trip", testutil.Item("p1", "a"), testutil.Item("p3", "c"))
		target, store, root := bundleTarget(t, "album")

		if _, err := f.svc.Sync(context.Background(), target); err != nil {
			t.Fatalf("first Sync() error = %v", err)
		}

		f.client.SetAlbum("album", "Trip", testutil.Item("p1", "a"))
		report, err := f.svc.Sync(context.Background(), target)
		if err != nil {
			t.Fatalf("second Sync() error = %v", err)
		}

		if o, _ := report.Outcome("p1"); o.Kind != syncer.Unchanged {
			t.Errorf("p1 = %v, want unchanged", o.Kind)
		}
		if o, _ := report.Outcome("p3"); o.Kind != syncer.Deleted {
			t.Errorf("p3 = %v, want deleted", o.Kind)
		}
		if _, err := os.Stat(filepath.Join(root, "p3")); !os.IsNotExist(err) {
			t.Error("p3 bundle still on disk")
		}

		idx, _ := store.Load()
		if idx.Has("p3") {
			t.Error("p3 still indexed")
		}
	})

	t.Run("changed checksum is updated", func(t *testing.T) {
		f := newFixture(t)
		f.client.SetAlbum("album", "Trip", testutil.Item("p1", "a"))
		target, _, _ := bundleTarget(t, "album")

		if _, err := f.svc.Sync(context.Background(), target); err != nil {
			t.Fatal(err)
		}
		f.client.SetAlbum("album", "Trip", testutil.Item("p1", "b"))

		report, err := f.svc.Sync(context.Background(), target)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if o, _ := report.Outcome("p1"); o.Kind != syncer.Updated {
			t.Errorf("p1 = %v, want updated", o.Kind)
		}
	})

	t.Run("item failure leaves the rest of the pass intact", func(t *testing.T) {
		f := newFixture(t)
		bad := testutil.Item("p2", "b")
		f.client.SetAlbum("album", "Trip", testutil.Item("p1", "a"), bad, testutil.Item("p3", "c"))
		f.dl.FailURL(bad.URL, -1)
		target, store, _ := bundleTarget(t, "album")

		report, err := f.svc.Sync(context.Background(), target)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if s := report.Summary(); s.Added != 2 || s.Failed != 1 {
			t.Errorf("Summary() = %s, want added=2 failed=1", s)
		}
		if fails := report.Failures(); len(fails) != 1 || fails[0].ID != "p2" {
			t.Errorf("Failures() = %+v, want p2", fails)
		}
		if store.Saves() != 1 {
			t.Errorf("Saves() = %d, want 1", store.Saves())
		}

		// The failed item is retried on the next pass.
		f.dl.FailURL(bad.URL, 0)
		report, err = f.svc.Sync(context.Background(), target)
		if err != nil {
			t.Fatalf("second Sync() error = %v", err)
		}
		if o, _ := report.Outcome("p2"); o.Kind != syncer.Added {
			t.Errorf("p2 on retry = %v, want added", o.Kind)
		}
	})

	t.Run("fetch failure aborts before saving", func(t *testing.T) {
		f := newFixture(t)
		f.client.FailWith("album", errors.New("unreachable"))
		target, store, _ := bundleTarget(t, "album")

		report, err := f.svc.Sync(context.Background(), target)
		if err == nil {
			t.Fatal("Sync() expected error")
		}
		if report != nil {
			t.Errorf("report = %+v, want nil", report)
		}
		if store.Saves() != 0 {
			t.Errorf("Saves() = %d, want 0", store.Saves())
		}
	})

	t.Run("outcomes are sorted by id", func(t *testing.T) {
		f := newFixture(t)
		f.client.SetAlbum("album", "Trip", testutil.Item("c", "1"), testutil.Item("a", "2"))
		target, _, _ := bundleTarget(t, "album")
		if _, err := f.svc.Sync(context.Background(), target); err != nil {
			t.Fatal(err)
		}
		f.client.SetAlbum("album", "Trip", testutil.Item("c", "1"), testutil.Item("b", "3"))

		report, err := f.svc.Sync(context.Background(), target)
		if err != nil {
			t.Fatal(err)
		}
		var got []string
		for _, o := range report.Outcomes {
			got = append(got, o.ID+":"+o.Kind.String())
		}
		want := []string{"a:deleted", "b:added", "c:unchanged"}
		if len(got) != len(want) {
			t.Fatalf("outcomes = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("outcomes = %v, want %v", got, want)
				break
			}
		}
	})
}

func TestService_SyncGallery(t *testing.T) {
	f := newFixture(t)
	f.client.SetAlbum("album", "Holiday", testutil.Item("p1", "a"), testutil.Item("p2", "b"))

	root := t.TempDir()
	store := index.NewMemoryStore()
	shaper := output.NewGalleryShaper(root, output.GalleryOptions{Name: config.DefaultGalleryName}, testutil.NewStubIDGenerator("gallery"), f.clock)
	target := syncer.Target{Name: "holiday", Locator: "album", Store: store, Shaper: shaper}

	report, err := f.svc.Sync(context.Background(), target)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if s := report.Summary(); s.Added != 2 {
		t.Errorf("Summary() = %s, want added=2", s)
	}
	if _, err := os.Stat(filepath.Join(root, "index.md")); err != nil {
		t.Errorf("gallery index missing: %v", err)
	}

	idx, _ := store.Load()
	c := idx.CollectionByName("Holiday")
	if c == nil {
		t.Fatal("collection Holiday not created")
	}
	if len(c.Members) != 2 {
		t.Errorf("members = %v, want 2", c.Members)
	}

	// Dropping an item removes membership but keeps the index entry.
	f.client.SetAlbum("album", "Holiday", testutil.Item("p1", "a"))
	report, err = f.svc.Sync(context.Background(), target)
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if o, _ := report.Outcome("p2"); o.Kind != syncer.Deleted {
		t.Errorf("p2 = %v, want deleted", o.Kind)
	}
	idx, _ = store.Load()
	if !idx.Has("p2") {
		t.Error("p2 dropped from index, want kept")
	}
	if c := idx.CollectionByName("Holiday"); c == nil || c.HasMember("p2") {
		t.Error("p2 still a member")
	}
	if _, err := os.Stat(filepath.Join(root, "p2.jpg")); !os.IsNotExist(err) {
		t.Error("p2 content still on disk")
	}

	// A returning item is new to the collection but already indexed.
	f.client.SetAlbum("album", "Holiday", testutil.Item("p1", "a"), testutil.Item("p2", "b"))
	plan, err := f.svc.Plan(context.Background(), target)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.Classification.New) != 1 || plan.Classification.New[0].ID != "p2" {
		t.Errorf("Plan() new = %v, want [p2]", plan.Classification.New)
	}
	report, err = f.svc.Sync(context.Background(), target)
	if err != nil {
		t.Fatalf("third Sync() error = %v", err)
	}
	if o, _ := report.Outcome("p2"); o.Kind != syncer.Updated {
		t.Errorf("p2 = %v, want updated", o.Kind)
	}
	idx, _ = store.Load()
	if c := idx.CollectionByName("Holiday"); c == nil || !c.HasMember("p2") {
		t.Error("p2 not re-adopted into the collection")
	}
}

// renderFailShaper is a bundle shaper whose final render always fails.
type renderFailShaper struct {
	*output.BundleShaper
}

var errRender = errors.New("template missing")

func (renderFailShaper) Render(*index.Index) error { return errRender }

func TestService_SyncRenderFailure(t *testing.T) {
	f := newFixture(t)
	f.client.SetAlbum("album", "Trip", testutil.Item("p1", "a"))
	root := t.TempDir()
	store := index.NewMemoryStore()
	target := syncer.Target{Name: "t", Locator: "album", Store: store, Shaper: renderFailShaper{output.NewBundleShaper(root)}}

	report, err := f.svc.Sync(context.Background(), target)
	if err != nil {
		t.Fatalf("Sync() error = %v, want nil once the index is saved", err)
	}
	if !errors.Is(report.RenderErr, errRender) {
		t.Errorf("RenderErr = %v, want %v", report.RenderErr, errRender)
	}
	if s := report.Summary(); s.Added != 1 {
		t.Errorf("Summary() = %s, want added=1", s)
	}
	if store.Saves() != 1 {
		t.Errorf("Saves() = %d, want 1", store.Saves())
	}
}

func TestService_SyncUnsafeIDs(t *testing.T) {
	t.Run("unsafe remote ids fail alone", func(t *testing.T) {
		f := newFixture(t)
		f.client.SetAlbum("album", "Trip", testutil.Item("p1", "a"), testutil.Item(".", "b"), testutil.Item("../escaped", "c"))
		target, store, root := bundleTarget(t, "album")

		report, err := f.svc.Sync(context.Background(), target)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if s := report.Summary(); s.Added != 1 || s.Failed != 2 {
			t.Errorf("Summary() = %s, want added=1 failed=2", s)
		}
		if _, err := os.Stat(filepath.Join(root, "..", "escaped")); !os.IsNotExist(err) {
			t.Errorf("item written outside the output root: %v", err)
		}
		idx, _ := store.Load()
		if idx.ItemCount() != 1 {
			t.Errorf("ItemCount() = %d, want 1", idx.ItemCount())
		}

		f.client.SetAlbum("album", "Trip", testutil.Item("p1", "a"))
		report, err = f.svc.Sync(context.Background(), target)
		if err != nil {
			t.Fatalf("second Sync() error = %v", err)
		}
		if s := report.Summary(); s.Unchanged != 1 || s.Total() != 1 {
			t.Errorf("Summary() = %s, want unchanged=1 only", s)
		}
		if _, err := os.Stat(filepath.Join(root, "p1", "index.md")); err != nil {
			t.Errorf("unchanged bundle p1 was touched: %v", err)
		}
	})

	t.Run("unsafe orphan never removes the root", func(t *testing.T) {
		f := newFixture(t)
		target, store, root := bundleTarget(t, "album")

		idx := index.New()
		now := f.clock.Now()
		for _, id := range []string{"p1", "."} {
			idx.PutItem(model.IndexedItem{RemoteItem: testutil.Item(id, "a")}, now)
		}
		if err := store.Save(idx); err != nil {
			t.Fatal(err)
		}
		if err := os.MkdirAll(filepath.Join(root, "p1"), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(root, "p1", "index.md"), []byte("---\n---\n"), 0644); err != nil {
			t.Fatal(err)
		}

		f.client.SetAlbum("album", "Trip", testutil.Item("p1", "a"))
		report, err := f.svc.Sync(context.Background(), target)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if o, _ := report.Outcome("."); o.Kind != syncer.Failed {
			t.Errorf(". = %v, want failed", o.Kind)
		}
		if o, _ := report.Outcome("p1"); o.Kind != syncer.Unchanged {
			t.Errorf("p1 = %v, want unchanged", o.Kind)
		}
		if _, err := os.Stat(filepath.Join(root, "p1", "index.md")); err != nil {
			t.Errorf("unchanged bundle p1 was removed: %v", err)
		}
		idx, _ = store.Load()
		if !idx.Has(".") {
			t.Error("failed removal dropped the index entry")
		}
	})
}

func TestService_Plan(t *testing.T) {
	f := newFixture(t)
	f.client.SetAlbum("album", "Trip", testutil.Item("p1", "a"), testutil.Item("p2", "b"))
	target, store, _ := bundleTarget(t, "album")

	plan, err := f.svc.Plan(context.Background(), target)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Remote != 2 || len(plan.Classification.New) != 2 {
		t.Errorf("plan = %+v, want 2 remote and 2 new", plan)
	}
	if f.dl.TotalCalls() != 0 {
		t.Errorf("Plan() downloaded %d items", f.dl.TotalCalls())
	}
	if store.Saves() != 0 {
		t.Errorf("Plan() saved the index")
	}
}

func TestService_SyncAll(t *testing.T) {
	f := newFixture(t)
	f.client.SetAlbum("good", "Good", testutil.Item("p1", "a"))
	f.client.FailWith("bad", errors.New("unreachable"))

	bad, _, _ := bundleTarget(t, "bad")
	bad.Name = "bad"
	good, _, _ := bundleTarget(t, "good")
	good.Name = "good"

	results := f.svc.SyncAll(context.Background(), []syncer.Target{bad, good})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Target != "bad" || results[0].Err == nil {
		t.Errorf("results[0] = %+v, want an error for bad", results[0])
	}
	if results[1].Target != "good" || results[1].Err != nil {
		t.Fatalf("results[1] = %+v, want success for good", results[1])
	}
	if results[1].Report.Summary().Added != 1 {
		t.Errorf("good summary = %s", results[1].Report.Summary())
	}
}
