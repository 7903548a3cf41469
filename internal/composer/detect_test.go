package composer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OutreachLinkedin/internal/dom"
	"OutreachLinkedin/internal/dom/domtest"
	"OutreachLinkedin/internal/route"
)

const gatedURL = "https://www.linkedin.com/talent/profile/ACoMegan"

var markers = route.ParseMarkers([]string{"rightRail=composer"})

func TestDetectorOpen(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		markup string
		open   bool
		via    string
	}{
		{"url marker", gatedURL + "?rightRail=composer", `<body></body>`, true, "url-marker"},
		{"visible rail", gatedURL, `<body><div class="profile__right-rail-composer"></div></body>`, true, "rail-container"},
		{"hidden rail", gatedURL, `<body><div class="profile__right-rail-composer" style="display:none"></div></body>`, false, ""},
		{"composer view", gatedURL, `<body><section data-view-name="messaging-composer"></section></body>`, true, "composer-view"},
		{"hidden composer view", gatedURL, `<body><section data-view-name="messaging-composer" style="visibility: hidden"></section></body>`, false, ""},
		{"header with text", gatedURL, `<body><h2 id="messaging-composer-header">Compose Message</h2></body>`, true, "composer-header"},
		{"header without text", gatedURL, `<body><h2 id="messaging-composer-header">Notes</h2></body>`, false, ""},
		{"editor inside message rail", gatedURL,
			`<body><div class="profile__right-rail-message-composer" hidden></div>
			<div class="profile__right-rail-message-composer"><div class="rich-text-editor__editor-elem"></div></div></body>`,
			true, "rail-editor"},
		{"editor elsewhere", gatedURL, `<body><div class="notes"><div class="rich-text-editor__editor-elem"></div></div></body>`, false, ""},
		{"nothing", gatedURL, `<body><button>Message</button></body>`, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Detector{Page: domtest.New(tt.url, tt.markup), Markers: markers}
			open, via := d.Open(context.Background())
			assert.Equal(t, tt.open, open)
			assert.Equal(t, tt.via, via)
		})
	}
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		via    string
		text   string
	}{
		{
			name:   "envelope icon ancestor",
			markup: `<div><button class="a"><span><li-icon type="envelope-icon"></li-icon></span><span>Send</span></button></div>`,
			via:    "envelope-icon",
			text:   "Send",
		},
		{
			name:   "text and svg",
			markup: `<div><button>Save</button><button><svg></svg><span>Message</span></button></div>`,
			via:    "text-and-icon",
			text:   "Message",
		},
		{
			name:   "aria label",
			markup: `<div><button aria-label="Message Megan">Contact</button></div>`,
			via:    "stable-attributes",
			text:   "Contact",
		},
		{
			name:   "text without icon is not enough",
			markup: `<div><button>Message</button></div>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := dom.NewSnapshot(gatedURL, "<html><body>"+tt.markup+"</body></html>")
			require.NoError(t, err)

			path, via := Locate(snap)
			assert.Equal(t, tt.via, via)
			if tt.via == "" {
				assert.Empty(t, path)
				return
			}
			assert.Equal(t, tt.text, snap.Text(path))
		})
	}
}
