package engine

import (
	"context"
	"sync"
	"time"
)

// DefaultTypeaheadDelay is the debounce window for suggestion requests.
const DefaultTypeaheadDelay = 300 * time.Millisecond

// Suggester is the subset of the engine the typeahead needs.
type Suggester interface {
	Suggestions(ctx context.Context, text string, limit int) ([]Suggestion, error)
}

// Typeahead debounces suggestion requests from a fast-typing client. Each
// Query supersedes any pending one; only the request that survives the
// debounce window reaches the engine, and a result is dropped if a newer
// query arrived while it was being computed.
type Typeahead struct {
	suggester Suggester
	delay     time.Duration

	mu    sync.Mutex
	timer *time.Timer
	seq   uint64
}

// NewTypeahead creates a typeahead over s. A non-positive delay falls back
// to the default.
func NewTypeahead(s Suggester, delay time.Duration) *Typeahead {
	if delay <= 0 {
		delay = DefaultTypeaheadDelay
	}
	return &Typeahead{suggester: s, delay: delay}
}

// Query schedules a suggestion request. deliver is invoked at most once,
// after the debounce window, and only if no newer Query has superseded this
// one by then or while the engine call was in flight.
func (t *Typeahead) Query(ctx context.Context, text string, limit int, deliver func([]Suggestion, error)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	seq := t.seq
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, func() {
		if t.stale(seq) || ctx.Err() != nil {
			return
		}
		res, err := t.suggester.Suggestions(ctx, text, limit)
		if t.stale(seq) {
			return
		}
		deliver(res, err)
	})
}

func (t *Typeahead) stale(seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return seq != t.seq
}

// Stop cancels any pending request. Subsequent Query calls still work.
func (t *Typeahead) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	if t.timer != nil {
		t.timer.Stop()
	}
}
