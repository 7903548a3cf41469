package profile

import (
	"regexp"
	"strings"
)

// Name is the parsed identity part of a record.
type Name struct {
	Full        string
	First       string
	Last        string
	Credentials []string
}

// ParseName parses public-layout name text such as "Jane A. Smith, CFP®, CFA".
// The first token is the first name and the remainder is the last name.
func ParseName(raw string) Name {
	rest, creds := StripCredentials(raw)
	full := tidyName(rest)

	n := Name{Full: full, Credentials: capCredentials(creds)}
	if full == "" {
		return n
	}
	first, last, _ := strings.Cut(full, " ")
	n.First, n.Last = first, last
	return n
}

var parenthetical = regexp.MustCompile(`\s*\([^)]*\)\s*`)

// ParseCombined parses recruiter-layout text where name and credentials
// arrive as one comma-separated string: "Megan (Spain) Manzi, CFP®, CFA".
// The first and last words become first and last name, ignoring
// parenthetical nicknames.
func ParseCombined(raw string) Name {
	parts := strings.Split(raw, ",")
	head, creds := StripCredentials(parts[0])
	for _, p := range parts[1:] {
		if p = Clean(p); p != "" {
			creds = appendUnique(creds, p)
		}
	}
	full := tidyName(head)

	n := Name{Full: full, Credentials: capCredentials(creds)}
	words := strings.Fields(parenthetical.ReplaceAllString(full, " "))
	switch len(words) {
	case 0:
	case 1:
		n.First = words[0]
	default:
		n.First, n.Last = words[0], words[len(words)-1]
	}
	return n
}

func tidyName(s string) string {
	s = Clean(s)
	s = strings.TrimSuffix(s, ",")
	return strings.TrimSpace(s)
}
