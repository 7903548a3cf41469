package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want Kind
	}{
		{"https://www.linkedin.com/in/jane-smith/", KindPublic},
		{"https://www.linkedin.com/in/jane-smith/?rightRail=composer", KindPublic},
		{"https://linkedin.com/in/jane", KindPublic},
		{"https://www.linkedin.com/talent/profile/ACoAAB123?trk=FLAGSHIP_VIEW_IN_RECRUITER", KindGated},
		{"https://www.linkedin.com/talent/in/jane", KindOther},
		{"https://www.linkedin.com/recruiter/in/jane", KindOther},
		{"https://www.linkedin.com/feed/", KindOther},
		{"https://www.linkedin.com/search/results/people/?keywords=cfp", KindOther},
		{"https://example.com/in/jane", KindOther},
		{"https://evil-linkedin.com/in/jane", KindOther},
		{"::not a url", KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.url))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "public", KindPublic.String())
	assert.Equal(t, "gated", KindGated.String())
	assert.Equal(t, "other", KindOther.String())
	assert.True(t, KindGated.Profile())
	assert.False(t, KindOther.Profile())
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "https://www.linkedin.com/in/jane/", Canonical("https://www.linkedin.com/in/jane/?a=1&b=2"))
	assert.Equal(t, "https://www.linkedin.com/in/jane/", Canonical("https://www.linkedin.com/in/jane/#experience"))
	assert.Equal(t, "https://www.linkedin.com/in/jane/", Canonical("https://www.linkedin.com/in/jane/"))
}

func TestGatedURL(t *testing.T) {
	assert.Equal(t,
		"https://www.linkedin.com/talent/profile/ACoAAB_x-1?trk=FLAGSHIP_VIEW_IN_RECRUITER",
		GatedURL("ACoAAB_x-1"))
	assert.Equal(t, KindGated, Classify(GatedURL("ACoXYZ")))
}

func TestMarkersPresent(t *testing.T) {
	m := ParseMarkers([]string{"rightRail=composer", " ", "openCompose"})
	assert.Len(t, m, 2)

	assert.True(t, m.Present("https://www.linkedin.com/talent/profile/ACo1?rightRail=composer"))
	assert.True(t, m.Present("https://www.linkedin.com/talent/profile/ACo1?x=1&openCompose"))
	assert.False(t, m.Present("https://www.linkedin.com/talent/profile/ACo1?rightRail=notes"))
	assert.False(t, m.Present("https://www.linkedin.com/talent/profile/ACo1"))
	assert.False(t, Markers(nil).Present("https://www.linkedin.com/?rightRail=composer"))
}
