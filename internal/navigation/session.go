// Package navigation tracks which profile a tab is showing and detects
// client-side route changes.
package navigation

import (
	"sync"

	"OutreachLinkedin/internal/route"
)

// Session is the per-tab navigation state: the last URL seen, the canonical
// URL of the tracked entity, and the action latch shared by the redirect
// and the composer autopilot.
type Session struct {
	mu      sync.Mutex
	markers route.Markers
	lastURL string
	entity  string
	latched bool
}

// NewSession returns an empty session. markers are the query parameters
// that mean the one-shot action already happened.
func NewSession(markers route.Markers) *Session {
	return &Session{markers: markers}
}

// Change describes what Observe did.
type Change struct {
	URL      string
	Previous string
	Entity   string
	// Changed is false when the URL equals the last one seen.
	Changed bool
	// NewEntity is true when the canonical URL differs and the latch was reset.
	NewEntity bool
	// Marked is true when a query marker set the latch.
	Marked  bool
	Latched bool
}

// Observe records url. A different canonical URL resets the latch. The same
// canonical URL keeps it, unless an action marker newly appears, which sets
// it.
func (s *Session) Observe(url string) Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := Change{URL: url, Previous: s.lastURL}
	if url == s.lastURL {
		ch.Entity, ch.Latched = s.entity, s.latched
		return ch
	}
	ch.Changed = true
	hadMarker := s.markers.Present(s.lastURL)
	s.lastURL = url

	canonical := route.Canonical(url)
	if canonical != s.entity {
		s.entity = canonical
		s.latched = false
		ch.NewEntity = true
	} else if !hadMarker && s.markers.Present(url) && !s.latched {
		s.latched = true
		ch.Marked = true
	}
	ch.Entity, ch.Latched = s.entity, s.latched
	return ch
}

// LastURL returns the last URL passed to Observe.
func (s *Session) LastURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastURL
}

// Entity returns the tracked canonical URL.
func (s *Session) Entity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entity
}

// Latched reports the latch for the tracked entity.
func (s *Session) Latched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latched
}

// Acquire sets the latch if entity is still tracked and the latch is clear.
// Callers must Acquire before issuing an irreversible action.
func (s *Session) Acquire(entity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entity != entity || s.latched {
		return false
	}
	s.latched = true
	return true
}

// Mark sets the latch for entity without an action, e.g. when the composer
// is found already open.
func (s *Session) Mark(entity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entity == entity {
		s.latched = true
	}
}

// Release clears the latch for entity so the next trigger may retry.
func (s *Session) Release(entity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entity == entity {
		s.latched = false
	}
}
