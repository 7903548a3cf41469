// Package dom is the engine's only window onto the scraped document. A Page
// answers read-only queries, performs the two permitted writes (clicking a
// located control and replacing the location) and publishes document
// signals to subscribers.
package dom

import (
	"context"

	"github.com/rotisserie/eris"
)

// Signal is a document event the engine can wait on.
type Signal int

const (
	// Mutation fires on DOM subtree changes and same-document URL changes.
	Mutation Signal = iota
	// History fires on back/forward navigation.
	History
	// Visibility fires when the tab becomes visible again.
	Visibility
)

func (s Signal) String() string {
	switch s {
	case Mutation:
		return "mutation"
	case History:
		return "history"
	case Visibility:
		return "visibility"
	default:
		return "unknown"
	}
}

// ErrNoElement is returned by Click when no element matches.
var ErrNoElement = eris.New("dom: no matching element")

// Page is a live document.
type Page interface {
	Location(ctx context.Context) (string, error)
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Exists reports whether any selector matches at least one element.
	Exists(ctx context.Context, selectors ...string) (bool, error)
	// Visible reports whether the first match has a computed style that is
	// neither display:none nor visibility:hidden.
	Visible(ctx context.Context, selector string) (bool, error)
	Click(ctx context.Context, selector string) error
	// Replace navigates without leaving a history entry.
	Replace(ctx context.Context, url string) error
	Observe(sig Signal) *Subscription
}
