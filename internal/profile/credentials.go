package profile

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxCredentials caps the credential list on a record.
const MaxCredentials = 6

// Catalog is the list of recognised professional designations. A trailing
// ® or ™ is optional when matching.
var Catalog = []string{
	"CFP", "CFA", "CPA", "ChFC", "CLU", "CIMA", "CPWA", "AIF", "CRPC",
	"RICP", "WMCP", "CAP", "CEPA", "CWS", "AWMA", "SE-AWMA",
	"MBA", "PhD", "JD", "CKA",
}

var credentialPattern = buildPattern(Catalog)

func buildPattern(tokens []string) *regexp.Regexp {
	sorted := append([]string(nil), tokens...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	alts := make([]string, len(sorted))
	for i, t := range sorted {
		alts[i] = regexp.QuoteMeta(t) + `[®™]?`
	}
	return regexp.MustCompile(`(?i)[,\s]+(` + strings.Join(alts, "|") + `)`)
}

// StripCredentials removes every catalog token (with its leading comma or
// whitespace) from raw and returns the remainder plus the removed tokens in
// order of appearance, deduplicated. A token must end at a non-alphanumeric
// character or the end of the string.
func StripCredentials(raw string) (string, []string) {
	var (
		found []string
		pos   int
	)
	s := raw
	for pos < len(s) {
		loc := credentialPattern.FindStringSubmatchIndex(s[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		tok := s[pos+loc[2] : pos+loc[3]]
		if !boundaryAt(s, end) {
			// Skip past this separator and keep scanning.
			pos = start + 1
			continue
		}
		found = appendUnique(found, tok)
		s = s[:start] + s[end:]
		pos = start
	}
	return s, found
}

func boundaryAt(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func appendUnique(list []string, tok string) []string {
	for _, have := range list {
		if strings.EqualFold(have, tok) {
			return list
		}
	}
	return append(list, tok)
}

func capCredentials(list []string) []string {
	if len(list) > MaxCredentials {
		return list[:MaxCredentials]
	}
	return list
}
