// Package route classifies LinkedIn URLs into page variants and derives the
// canonical entity URL used for navigation tracking.
package route

import (
	"net/url"
	"strings"
)

// Kind is the page variant a URL represents.
type Kind int

const (
	KindOther Kind = iota
	KindPublic
	KindGated
)

func (k Kind) String() string {
	switch k {
	case KindPublic:
		return "public"
	case KindGated:
		return "gated"
	default:
		return "other"
	}
}

// Profile reports whether the kind is one of the two profile layouts.
func (k Kind) Profile() bool { return k == KindPublic || k == KindGated }

const (
	publicSegment = "/in/"
	gatedSegment  = "/talent/profile/"

	gatedBase = "https://www.linkedin.com/talent/profile/"
	gatedTrk  = "FLAGSHIP_VIEW_IN_RECRUITER"
)

// Classify maps a URL to its page variant. It never touches the DOM and
// holds no state, so callers re-run it for every navigation.
func Classify(raw string) Kind {
	u, err := url.Parse(raw)
	if err != nil || !linkedInHost(u.Hostname()) {
		return KindOther
	}
	p := u.Path
	if strings.Contains(p, gatedSegment) {
		return KindGated
	}
	if strings.Contains(p, publicSegment) && !strings.Contains(p, "/talent/") && !strings.Contains(p, "/recruiter/") {
		return KindPublic
	}
	return KindOther
}

func linkedInHost(h string) bool {
	h = strings.ToLower(h)
	return h == "linkedin.com" || strings.HasSuffix(h, ".linkedin.com")
}

// Canonical strips the query string and fragment.
func Canonical(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}

// GatedURL builds the recruiter-variant deep link for an identifier.
func GatedURL(id string) string {
	return gatedBase + url.PathEscape(id) + "?trk=" + gatedTrk
}

// Marker is a single key=value query parameter.
type Marker struct {
	Key   string
	Value string
}

// Markers is the set of query parameters meaning "the action already happened".
type Markers []Marker

// ParseMarkers accepts "key=value" entries; entries without '=' match any value.
func ParseMarkers(specs []string) Markers {
	out := make(Markers, 0, len(specs))
	for _, s := range specs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k, v, _ := strings.Cut(s, "=")
		out = append(out, Marker{Key: k, Value: v})
	}
	return out
}

// Present reports whether any marker appears in the URL's query.
func (m Markers) Present(raw string) bool {
	if len(m) == 0 {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	q := u.Query()
	for _, mk := range m {
		vals, ok := q[mk.Key]
		if !ok {
			continue
		}
		if mk.Value == "" {
			return true
		}
		for _, v := range vals {
			if v == mk.Value {
				return true
			}
		}
	}
	return false
}
