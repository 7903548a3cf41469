// Package outreach renders LinkedIn outreach messages from templates, a CRM
// lead and the scraped profile.
package outreach

import (
	_ "embed"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"OutreachLinkedin/internal/crm"
	"OutreachLinkedin/internal/profile"
)

// Template categories.
const (
	CategoryIntro     = "intro"
	CategoryFollowup  = "followup"
	CategoryReconnect = "reconnect"
)

// Template is one message template.
type Template struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Category  string `json:"category" yaml:"category"`
	Content   string `json:"content" yaml:"content"`
	IsDefault bool   `json:"isDefault,omitempty" yaml:"default"`
}

//go:embed templates.yaml
var defaultTemplates []byte

var defaults = sync.OnceValue(func() []Template {
	ts, err := ParseTemplates(defaultTemplates)
	if err != nil {
		panic(err)
	}
	return ts
})

// Defaults returns a copy of the built-in templates.
func Defaults() []Template {
	return append([]Template(nil), defaults()...)
}

// ParseTemplates decodes a YAML template list.
func ParseTemplates(b []byte) ([]Template, error) {
	var ts []Template
	if err := yaml.Unmarshal(b, &ts); err != nil {
		return nil, eris.Wrap(err, "outreach: parse templates")
	}
	return Normalize(ts)
}

// Normalize assigns ids to new templates and checks the rest. Templates
// without content are rejected.
func Normalize(ts []Template) ([]Template, error) {
	seen := make(map[string]bool, len(ts))
	for i := range ts {
		t := &ts[i]
		t.Name = strings.TrimSpace(t.Name)
		if strings.TrimSpace(t.Content) == "" {
			return nil, eris.Errorf("outreach: template %q has no content", t.Name)
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if seen[t.ID] {
			return nil, eris.Errorf("outreach: duplicate template id %q", t.ID)
		}
		seen[t.ID] = true
		switch t.Category {
		case CategoryIntro, CategoryFollowup, CategoryReconnect:
		case "":
			t.Category = CategoryIntro
		default:
			return nil, eris.Errorf("outreach: template %q has unknown category %q", t.Name, t.Category)
		}
	}
	return ts, nil
}

// Variables is the placeholder vocabulary, in display order.
var Variables = []string{
	"firstName", "lastName", "fullName", "company", "title",
	"location", "headline", "accreditations", "leadScore",
}

// Vars resolves every placeholder. Scraped values win over CRM values where
// both exist. rec may be nil.
func Vars(lead crm.Lead, rec *profile.Record) map[string]string {
	if rec == nil {
		rec = &profile.Record{}
	}
	score := ""
	if lead.LeadScore != nil {
		score = strconv.FormatFloat(*lead.LeadScore, 'f', -1, 64)
	}
	return map[string]string{
		"firstName":      or(lead.FirstName, rec.FirstName),
		"lastName":       or(lead.LastName, rec.LastName),
		"fullName":       or(lead.FullName(), rec.FullName),
		"company":        or(rec.Company, lead.Company),
		"title":          or(rec.Title, lead.Title),
		"location":       rec.Location,
		"headline":       rec.Headline,
		"accreditations": strings.Join(rec.Credentials, ", "),
		"leadScore":      score,
	}
}

func or(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

var placeholder = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Generate fills tmpl. Placeholders without a value, and unknown ones, are
// removed. The result is trimmed.
func Generate(tmpl string, lead crm.Lead, rec *profile.Record) string {
	vars := Vars(lead, rec)
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		return vars[placeholder.FindStringSubmatch(m)[1]]
	})
	return strings.TrimSpace(out)
}

// Missing lists the known placeholders used in tmpl that have no value.
func Missing(tmpl string, lead crm.Lead, rec *profile.Record) []string {
	vars := Vars(lead, rec)
	var missing []string
	for _, name := range Variables {
		if strings.Contains(tmpl, "{{"+name+"}}") && vars[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// AllowedEmail reports whether email belongs to domain.
func AllowedEmail(email, domain string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))
	if email == "" || domain == "" {
		return false
	}
	return strings.HasSuffix(email, "@"+domain)
}
