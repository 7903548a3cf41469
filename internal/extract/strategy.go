// Package extract pulls profile fields from a document snapshot. Every field
// is an ordered chain of strategies; the first non-empty result wins.
package extract

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"OutreachLinkedin/internal/dom"
	"OutreachLinkedin/internal/profile"
)

// Strategy is one way of reading a field.
type Strategy struct {
	Name string
	Pull func(snap *dom.Snapshot) string
}

// Chain is an ordered list of strategies for one field.
type Chain []Strategy

// First runs the chain and returns the first non-empty value and the name
// of the strategy that produced it.
func First(snap *dom.Snapshot, chain Chain) (string, string) {
	for _, s := range chain {
		if v := strings.TrimSpace(s.Pull(snap)); v != "" {
			return v, s.Name
		}
		zap.L().Debug("extract: strategy empty, falling through", zap.String("strategy", s.Name))
	}
	return "", ""
}

// Selector reads the text of the first element matching sel.
func Selector(sel string) Strategy {
	return Strategy{
		Name: sel,
		Pull: func(snap *dom.Snapshot) string { return snap.Text(sel) },
	}
}

// SelectorWithin reads sel inside the first element matching scope.
func SelectorWithin(scope, sel string) Strategy {
	return Strategy{
		Name: scope + " " + sel,
		Pull: func(snap *dom.Snapshot) string {
			root := snap.Find(scope).First()
			return profile.Clean(dom.Within(root, sel).First().Text())
		},
	}
}

// Pattern applies re to the text of sel and returns the first capture group.
func Pattern(sel string, re *regexp.Regexp) Strategy {
	return Strategy{
		Name: sel + " =~ " + re.String(),
		Pull: func(snap *dom.Snapshot) string { return group(re, snap.Text(sel)) },
	}
}

// TitleTag applies re to the document title.
func TitleTag(re *regexp.Regexp) Strategy {
	return Strategy{
		Name: "title =~ " + re.String(),
		Pull: func(snap *dom.Snapshot) string { return group(re, stripNotifications(snap.Title())) },
	}
}

// Map post-processes a strategy's output.
func Map(s Strategy, fn func(string) string) Strategy {
	pull := s.Pull
	return Strategy{
		Name: s.Name,
		Pull: func(snap *dom.Snapshot) string { return fn(pull(snap)) },
	}
}

func group(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

var notificationPrefix = regexp.MustCompile(`^\(\d+\+?\)\s*`)

// stripNotifications drops the "(3) " unread counter LinkedIn prepends to
// document titles.
func stripNotifications(title string) string {
	return notificationPrefix.ReplaceAllString(title, "")
}
