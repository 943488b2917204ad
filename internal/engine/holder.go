package engine

import "sync/atomic"

// Holder publishes the current engine generation. A rebuild prepares a
// fresh engine off to the side and swaps it in atomically, so readers never
// observe a half-initialized index.
type Holder struct {
	ptr atomic.Pointer[Engine]
}

// NewHolder creates a holder serving e.
func NewHolder(e *Engine) *Holder {
	h := &Holder{}
	h.ptr.Store(e)
	return h
}

// Current returns the engine generation serving requests right now.
func (h *Holder) Current() *Engine {
	return h.ptr.Load()
}

// Swap installs next and returns the previous generation so the caller can
// close it once in-flight requests drain.
func (h *Holder) Swap(next *Engine) *Engine {
	return h.ptr.Swap(next)
}
