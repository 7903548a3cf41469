// Package identity finds the hidden member identifier that keys the
// recruiter view of a public profile.
package identity

import (
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"OutreachLinkedin/internal/dom"
	"OutreachLinkedin/internal/extract"
)

var (
	// idPattern stops at the first character outside the id alphabet, so
	// "(ACoXYZ123,3)" yields "ACoXYZ123".
	idPattern  = regexp.MustCompile(`(ACo[a-zA-Z0-9_-]+)`)
	urnPattern = regexp.MustCompile(`urn:li:fs_miniProfile:(ACo[a-zA-Z0-9_-]+)`)
)

// Chain is the ordered resolver set, cheapest first.
var Chain = extract.Chain{
	{Name: "profile-urn-anchor", Pull: fromURNAnchors},
	{Name: "talent-link", Pull: fromTalentLink},
	{Name: "code-block", Pull: fromCodeBlocks},
	{Name: "document", Pull: fromDocument},
}

// Resolve returns the identifier and the strategy that found it, or two
// empty strings.
func Resolve(snap *dom.Snapshot) (id, source string) {
	id, source = extract.First(snap, Chain)
	if id == "" {
		zap.L().Debug("identity: no identifier on page", zap.String("url", snap.URL))
		return "", ""
	}
	zap.L().Debug("identity: resolved", zap.String("source", source), zap.String("id", id))
	return id, source
}

func fromURNAnchors(snap *dom.Snapshot) string {
	var found string
	snap.Find(`a[href*="profileUrn"], a[href*="miniProfileUrn"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		found = match(idPattern, decode(href))
		return found == ""
	})
	return found
}

func fromTalentLink(snap *dom.Snapshot) string {
	href, _ := snap.Find(`a[href*="/talent/profile/"]`).First().Attr("href")
	return match(idPattern, href)
}

func fromCodeBlocks(snap *dom.Snapshot) string {
	var found string
	snap.Find("code").EachWithBreak(func(_ int, c *goquery.Selection) bool {
		found = match(urnPattern, c.Text())
		return found == ""
	})
	return found
}

func fromDocument(snap *dom.Snapshot) string {
	body, err := snap.Find("body").Html()
	if err != nil || body == "" {
		body = snap.HTML()
	}
	return match(urnPattern, body)
}

// decode percent-decodes href, returning it unchanged when malformed.
func decode(href string) string {
	if d, err := url.PathUnescape(href); err == nil {
		return d
	}
	return href
}

func match(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
