package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OutreachLinkedin/internal/dom"
)

func snapshot(t *testing.T, body string) *dom.Snapshot {
	t.Helper()
	snap, err := dom.NewSnapshot("https://www.linkedin.com/in/jane/", "<html><body>"+body+"</body></html>")
	require.NoError(t, err)
	return snap
}

func TestResolveStrategies(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		id     string
		source string
	}{
		{
			name:   "encoded profile urn anchor stops at comma",
			body:   `<a href="/overlay?profileUrn=urn%3Ali%3Afsd_profile%3A%28ACoXYZ123%2C3%29">x</a>`,
			id:     "ACoXYZ123",
			source: "profile-urn-anchor",
		},
		{
			name:   "mini profile urn anchor",
			body:   `<a href="/x?miniProfileUrn=urn:li:fs_miniProfile:ACoAB_c-9">x</a>`,
			id:     "ACoAB_c-9",
			source: "profile-urn-anchor",
		},
		{
			name:   "talent link",
			body:   `<a href="/talent/profile/ACoTalent1?trk=x">View in Recruiter</a>`,
			id:     "ACoTalent1",
			source: "talent-link",
		},
		{
			name:   "code block",
			body:   `<code style="display:none">{"entityUrn":"urn:li:fs_miniProfile:ACoCode42"}</code>`,
			id:     "ACoCode42",
			source: "code-block",
		},
		{
			name:   "document markup",
			body:   `<div data-urn="urn:li:fs_miniProfile:ACoBody7"></div>`,
			id:     "ACoBody7",
			source: "document",
		},
		{
			name: "nothing",
			body: `<a href="/in/jane">Jane</a><code>{}</code>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, source := Resolve(snapshot(t, tt.body))
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestResolveCheapestWins(t *testing.T) {
	body := `<code>urn:li:fs_miniProfile:ACoFromCode</code>
		<a href="/talent/profile/ACoFromTalent">r</a>
		<a href="/x?profileUrn=(ACoFromAnchor,3)">a</a>`
	id, source := Resolve(snapshot(t, body))
	assert.Equal(t, "ACoFromAnchor", id)
	assert.Equal(t, "profile-urn-anchor", source)
}

func TestResolveSkipsAnchorsWithoutID(t *testing.T) {
	body := `<a href="/x?profileUrn=none">a</a><a href="/y?profileUrn=ACoSecond">b</a>`
	id, _ := Resolve(snapshot(t, body))
	assert.Equal(t, "ACoSecond", id)
}

func TestResolveMalformedEscape(t *testing.T) {
	body := `<a href="/x?profileUrn=%E0%A4%A(ACoBroken1,2)">a</a>`
	id, _ := Resolve(snapshot(t, body))
	assert.Equal(t, "ACoBroken1", id)
}
