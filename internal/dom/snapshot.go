package dom

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"OutreachLinkedin/internal/profile"
)

// Snapshot is a parsed copy of the rendered document taken at one instant.
type Snapshot struct {
	URL string
	Doc *goquery.Document
	raw string
}

// NewSnapshot parses rendered markup.
func NewSnapshot(url, markup string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, eris.Wrap(err, "dom: parse snapshot")
	}
	return &Snapshot{URL: url, Doc: doc, raw: markup}, nil
}

// Find runs a selector against the whole document. An invalid selector
// matches nothing.
func (s *Snapshot) Find(selector string) *goquery.Selection {
	return find(s.Doc.Selection, selector)
}

// Text returns the cleaned text of the first match, or "".
func (s *Snapshot) Text(selector string) string {
	return profile.Clean(s.Find(selector).First().Text())
}

// Title returns the document title.
func (s *Snapshot) Title() string {
	return profile.Clean(s.Doc.Find("title").First().Text())
}

// HTML returns the markup the snapshot was built from.
func (s *Snapshot) HTML() string { return s.raw }

func find(sel *goquery.Selection, selector string) (out *goquery.Selection) {
	// cascadia panics on some malformed selectors inside goquery's Find.
	defer func() {
		if r := recover(); r != nil {
			out = sel.Slice(0, 0)
		}
	}()
	return sel.Find(selector)
}

// Within runs selector inside the given selection.
func Within(sel *goquery.Selection, selector string) *goquery.Selection {
	return find(sel, selector)
}

var simpleID = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// PathOf returns a CSS selector that addresses the first element of sel
// uniquely, anchored on the nearest ancestor with a simple id or on html.
func PathOf(sel *goquery.Selection) string {
	sel = sel.First()
	if sel.Length() == 0 {
		return ""
	}
	var steps []string
	for cur := sel; cur.Length() > 0; cur = cur.Parent() {
		node := cur.Get(0)
		if node.Type != html.ElementNode {
			break
		}
		tag := goquery.NodeName(cur)
		if id, ok := cur.Attr("id"); ok && simpleID.MatchString(id) {
			steps = append(steps, "#"+id)
			break
		}
		if tag == "html" {
			steps = append(steps, "html")
			break
		}
		steps = append(steps, fmt.Sprintf("%s:nth-child(%d)", tag, cur.Index()+1))
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return strings.Join(steps, " > ")
}
