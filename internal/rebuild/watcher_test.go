package rebuild

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/hagall/raido/internal/artifacts"
	"github.com/hagall/raido/internal/document"
	"github.com/hagall/raido/internal/engine"
	"github.com/hagall/raido/internal/indexer"
	"github.com/hagall/raido/internal/testutil"
)

type fakeNotifier struct {
	mu       sync.Mutex
	rebuilt  []int
	failures []string
}

func (f *fakeNotifier) PublishRebuilt(documents int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebuilt = append(f.rebuilt, documents)
}

func (f *fakeNotifier) PublishFailed(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, err.Error())
}

func (f *fakeNotifier) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rebuilt), len(f.failures)
}

func publish(t *testing.T, store artifacts.Store, code *document.Code) int {
	t.Helper()
	res, err := indexer.Build(code, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	arts, err := indexer.Export(res)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if err := artifacts.Publish(store, arts); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	return len(res.Documents)
}

func watcherEnv(t *testing.T) (string, *artifacts.FS, *engine.Holder, func() *engine.Engine) {
	t.Helper()
	dir := t.TempDir()
	store, err := artifacts.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	factory := func() *engine.Engine {
		return engine.New(engine.StoreSource{Store: store}, engine.WithLogger(logger))
	}

	publish(t, store, testutil.FixtureCode())
	first := factory()
	if err := first.Initialize(context.Background()); err != nil {
		t.Fatalf("initial engine: %v", err)
	}
	t.Cleanup(func() { first.Close() })
	return dir, store, engine.NewHolder(first), factory
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatcher_SwapsOnArtifactChange(t *testing.T) {
	dir, store, holder, factory := watcherEnv(t)
	notifier := &fakeNotifier{}
	w := New(holder, factory, store, dir, 50*time.Millisecond, testLogger(), notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	before := holder.Current()

	// Publish a smaller generation: one division only.
	code := testutil.FixtureCode()
	code.Divisions = code.Divisions[:1]
	want := publish(t, store, code)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return holder.Current() != before
	}, "engine not swapped after artifact change")

	if got := holder.Current().DocumentCount(); got != want {
		t.Errorf("new generation has %d documents, want %d", got, want)
	}
	rebuilt, failed := notifier.counts()
	if rebuilt != 1 || failed != 0 {
		t.Errorf("notifications rebuilt=%d failed=%d, want 1/0", rebuilt, failed)
	}
}

func TestWatcher_KeepsServingOnBadArtifact(t *testing.T) {
	dir, store, holder, factory := watcherEnv(t)
	notifier := &fakeNotifier{}
	w := New(holder, factory, store, dir, 50*time.Millisecond, testLogger(), notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	before := holder.Current()
	if err := store.Write(artifacts.DocumentsFile, []byte("not json at all")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, failed := notifier.counts()
		return failed > 0
	}, "no failure notification for corrupt artifact")

	if holder.Current() != before {
		t.Error("corrupt artifact must not replace the serving engine")
	}
	res, err := holder.Current().Search(ctx, engine.Query{Text: "fire"})
	if err != nil || len(res) == 0 {
		t.Errorf("previous generation stopped serving: %d results, err %v", len(res), err)
	}
}

func TestWatcher_UnchangedArtifactSkipped(t *testing.T) {
	dir, store, holder, factory := watcherEnv(t)
	notifier := &fakeNotifier{}
	w := New(holder, factory, store, dir, 50*time.Millisecond, testLogger(), notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	before := holder.Current()

	// Rewrite identical bytes; the checksum gate should skip the rebuild.
	data, err := store.Read(artifacts.DocumentsFile)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := store.Write(artifacts.DocumentsFile, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if holder.Current() != before {
		t.Error("identical artifact should not trigger a swap")
	}
	rebuilt, _ := notifier.counts()
	if rebuilt != 0 {
		t.Errorf("rebuilt notifications = %d, want 0", rebuilt)
	}
}

func TestWatcher_StopsOnContextCancel(t *testing.T) {
	dir, store, holder, factory := watcherEnv(t)
	w := New(holder, factory, store, dir, 50*time.Millisecond, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
