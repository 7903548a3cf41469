package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"OutreachLinkedin/internal/dom"
	"OutreachLinkedin/internal/profile"
	"OutreachLinkedin/internal/route"
)

// Variant is the field table for one page layout.
type Variant struct {
	Kind      route.Kind
	Name      Chain
	ParseName func(raw string) profile.Name
	Headline  Chain
	Title     Chain
	Company   Chain
	Location  Chain
	Education Chain
}

const (
	experienceItem = "#experience .artdeco-list__item"
	topCardLine    = "section.artdeco-card.pv-top-card .text-body-small.inline.t-black--light"
	lockupSubtitle = ".artdeco-entity-lockup__subtitle"
	latestPosition = "[data-test-latest-position]"
	lockupCaption  = ".artdeco-entity-lockup__caption"
)

var (
	titleBeforeDash = regexp.MustCompile(`^([^-|]+)`)
	titleBeforeBar  = regexp.MustCompile(`^([^|]+)`)
	beforeAt        = regexp.MustCompile(`^(.+?)\s+at\s+`)
	afterAt         = regexp.MustCompile(`(?i)\bat\s+(.+)$`)
	leadingBullet   = regexp.MustCompile(`^[·•]\s*`)
)

// Public is the field table for /in/ profiles.
var Public = &Variant{
	Kind: route.KindPublic,
	Name: Chain{
		Selector("h1.text-heading-xlarge"),
		Selector("main section.pv-top-card h1"),
		TitleTag(titleBeforeDash),
	},
	ParseName: profile.ParseName,
	Headline: Chain{
		Selector(".text-body-medium.break-words"),
		Selector("[data-generated-suggestion-target]"),
	},
	Title: Chain{
		SelectorWithin(experienceItem, `.hoverable-link-text.t-bold span[aria-hidden="true"]`),
		Pattern(topCardLine, beforeAt),
	},
	Company: Chain{
		Map(SelectorWithin(experienceItem, `span.t-14.t-normal span[aria-hidden="true"]`), profile.CleanCompany),
		Map(Pattern(topCardLine, afterAt), profile.CleanCompany),
		Map(Selector(topCardLine), profile.CleanCompany),
	},
	Location: Chain{
		Selector("span.text-body-small.inline.t-black--light.break-words"),
		Selector(".pv-top-card--list-bullet .text-body-small"),
	},
}

// Gated is the field table for /talent/profile/ pages, where name and
// credentials arrive as one comma-separated string.
var Gated = &Variant{
	Kind: route.KindGated,
	Name: Chain{
		Selector(".artdeco-entity-lockup__title"),
		TitleTag(titleBeforeBar),
	},
	ParseName: profile.ParseCombined,
	Headline: Chain{
		Selector(lockupSubtitle),
		Selector(latestPosition),
	},
	Title: Chain{
		Pattern(lockupSubtitle, beforeAt),
		Pattern(latestPosition, beforeAt),
	},
	Company: Chain{
		Selector("[data-test-current-company], [data-test-latest-company]"),
		Map(Pattern(lockupSubtitle, afterAt), profile.CleanCompany),
	},
	Location: Chain{
		Map(Selector(".text-highlighter__text, [data-test-text-highlighter-text-only]"), func(s string) string {
			return strings.TrimSpace(leadingBullet.ReplaceAllString(s, ""))
		}),
		Selector("[data-test-location]"),
	},
	Education: Chain{
		Selector("[data-test-latest-education]"),
		captionEducation(),
	},
}

// Variants indexes the tables by page kind.
var Variants = map[route.Kind]*Variant{
	route.KindPublic: Public,
	route.KindGated:  Gated,
}

// captionEducation reads the lockup caption line that is not the location
// highlighter, for captions rendered without data-test attributes.
func captionEducation() Strategy {
	return Strategy{
		Name: lockupCaption + " (non-location line)",
		Pull: func(snap *dom.Snapshot) string {
			var out string
			snap.Find(lockupCaption).First().Children().EachWithBreak(func(_ int, el *goquery.Selection) bool {
				if el.Is(".text-highlighter__text, [data-test-text-highlighter-text-only], [data-test-location]") {
					return true
				}
				text := profile.Clean(el.Text())
				if text == "" || leadingBullet.MatchString(text) {
					return true
				}
				out = text
				return false
			})
			return out
		},
	}
}
