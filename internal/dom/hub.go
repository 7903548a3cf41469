package dom

import "sync"

// Hub fans document signals out to subscribers. Ticks are coalesced: a
// subscriber that has not drained its previous tick does not queue another.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription receives ticks for one signal until closed.
type Subscription struct {
	sig  Signal
	c    chan struct{}
	hub  *Hub
	once sync.Once
}

// Subscribe registers a new subscription.
func (h *Hub) Subscribe(sig Signal) *Subscription {
	s := &Subscription{sig: sig, c: make(chan struct{}, 1), hub: h}
	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[*Subscription]struct{})
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Publish delivers a tick to every subscriber of sig. It never blocks.
func (h *Hub) Publish(sig Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if s.sig != sig {
			continue
		}
		select {
		case s.c <- struct{}{}:
		default:
		}
	}
}

// Active returns the number of open subscriptions.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Ticks is the subscription's notification channel. It is never closed;
// select on it together with a context.
func (s *Subscription) Ticks() <-chan struct{} { return s.c }

// Signal returns the subscribed signal.
func (s *Subscription) Signal() Signal { return s.sig }

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
	})
}
