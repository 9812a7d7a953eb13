package latest

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker discards superseded work. Starting a new request for a key cancels
// the previous one and makes its result stale.
type Tracker struct {
	gen  atomic.Uint64
	mu   sync.Mutex
	keys map[string]*slot
}

type slot struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	refs   int // guarded by Tracker.mu
}

type Ticket struct {
	t   *Tracker
	key string
	s   *slot
	gen uint64
}

func NewTracker() *Tracker {
	return &Tracker{keys: make(map[string]*slot)}
}

// Begin starts a request for key. The returned context is cancelled as soon as
// a newer request for the same key begins. Call Done when finished.
func (t *Tracker) Begin(ctx context.Context, key string) (context.Context, *Ticket) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	s, ok := t.keys[key]
	if !ok {
		s = &slot{}
		t.keys[key] = s
	}
	s.refs++
	t.mu.Unlock()

	gen := t.gen.Add(1)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen = gen
	s.cancel = cancel
	s.mu.Unlock()

	return ctx, &Ticket{t: t, key: key, s: s, gen: gen}
}

// Current reports whether no newer request for the key has begun.
func (tk *Ticket) Current() bool {
	tk.s.mu.Lock()
	defer tk.s.mu.Unlock()
	return tk.s.gen == tk.gen
}

// Apply runs fn only while the ticket is current. Requests for the same key
// cannot begin while fn runs, so a stale result never lands after a newer one.
func (tk *Ticket) Apply(fn func()) bool {
	tk.s.mu.Lock()
	defer tk.s.mu.Unlock()
	if tk.s.gen != tk.gen {
		return false
	}
	fn()
	return true
}

// Done releases the ticket. The key is forgotten once no ticket holds it.
func (tk *Ticket) Done() {
	tk.s.mu.Lock()
	if tk.s.gen == tk.gen && tk.s.cancel != nil {
		tk.s.cancel()
		tk.s.cancel = nil
	}
	tk.s.mu.Unlock()

	tk.t.mu.Lock()
	defer tk.t.mu.Unlock()
	tk.s.refs--
	if tk.s.refs <= 0 && tk.t.keys[tk.key] == tk.s {
		delete(tk.t.keys, tk.key)
		tk.s.mu.Lock()
		tk.s.gen = 0
		tk.s.mu.Unlock()
	}
}
