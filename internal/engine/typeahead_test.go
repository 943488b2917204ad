package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordingSuggester struct {
	mu      sync.Mutex
	queries []string
}

func (r *recordingSuggester) Suggestions(_ context.Context, text string, _ int) ([]Suggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, text)
	return []Suggestion{{ID: "doc", Title: text}}, nil
}

func (r *recordingSuggester) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func TestTypeahead_DebouncesBursts(t *testing.T) {
	sugg := &recordingSuggester{}
	ta := NewTypeahead(sugg, 30*time.Millisecond)
	defer ta.Stop()

	var delivered atomic.Int32
	var lastText atomic.Value
	deliver := func(s []Suggestion, err error) {
		if err != nil {
			t.Errorf("deliver error: %v", err)
		}
		delivered.Add(1)
		lastText.Store(s[0].Title)
	}

	// A typing burst: each keystroke supersedes the previous request.
	for _, q := range []string{"f", "fi", "fir", "fire"} {
		ta.Query(context.Background(), q, 5, deliver)
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if n := delivered.Load(); n != 1 {
		t.Fatalf("delivered %d times, want 1", n)
	}
	if got := lastText.Load(); got != "fire" {
		t.Errorf("delivered query = %v, want fire", got)
	}
	if seen := sugg.seen(); len(seen) != 1 || seen[0] != "fire" {
		t.Errorf("engine saw %v, want only the final query", seen)
	}
}

func TestTypeahead_SeparateQueriesBothDeliver(t *testing.T) {
	sugg := &recordingSuggester{}
	ta := NewTypeahead(sugg, 20*time.Millisecond)
	defer ta.Stop()

	var delivered atomic.Int32
	deliver := func([]Suggestion, error) { delivered.Add(1) }

	ta.Query(context.Background(), "fire", 5, deliver)
	time.Sleep(60 * time.Millisecond)
	ta.Query(context.Background(), "exit", 5, deliver)
	time.Sleep(60 * time.Millisecond)

	if n := delivered.Load(); n != 2 {
		t.Errorf("delivered %d times, want 2", n)
	}
}

func TestTypeahead_StopCancelsPending(t *testing.T) {
	sugg := &recordingSuggester{}
	ta := NewTypeahead(sugg, 20*time.Millisecond)

	var delivered atomic.Int32
	ta.Query(context.Background(), "fire", 5, func([]Suggestion, error) { delivered.Add(1) })
	ta.Stop()
	time.Sleep(60 * time.Millisecond)

	if n := delivered.Load(); n != 0 {
		t.Errorf("delivered %d times after Stop, want 0", n)
	}
}

func TestTypeahead_CancelledContextDropped(t *testing.T) {
	sugg := &recordingSuggester{}
	ta := NewTypeahead(sugg, 10*time.Millisecond)
	defer ta.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	var delivered atomic.Int32
	ta.Query(ctx, "fire", 5, func([]Suggestion, error) { delivered.Add(1) })
	cancel()
	time.Sleep(50 * time.Millisecond)

	if n := delivered.Load(); n != 0 {
		t.Errorf("delivered %d times after cancel, want 0", n)
	}
}

func TestTypeahead_DefaultDelay(t *testing.T) {
	ta := NewTypeahead(&recordingSuggester{}, 0)
	if ta.delay != DefaultTypeaheadDelay {
		t.Errorf("delay = %v, want %v", ta.delay, DefaultTypeaheadDelay)
	}
}
