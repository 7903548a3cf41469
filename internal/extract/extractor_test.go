package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OutreachLinkedin/internal/dom"
	"OutreachLinkedin/internal/dom/domtest"
	"OutreachLinkedin/internal/route"
)

var fixedNow = time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(b)
}

func newExtractor() *Extractor {
	e := New()
	e.Now = func() time.Time { return fixedNow }
	return e
}

func TestExtractPublicProfile(t *testing.T) {
	p := domtest.New("https://www.linkedin.com/in/jane-smith/?miniProfileUrn=x", readFixture(t, "public_profile.html"))

	rec, err := newExtractor().Extract(context.Background(), p, route.KindPublic)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "Jane A. Smith", rec.FullName)
	assert.Equal(t, "Jane", rec.FirstName)
	assert.Equal(t, "A. Smith", rec.LastName)
	assert.Equal(t, []string{"CFP®", "CFA"}, rec.Credentials)
	assert.Equal(t, "Helping families plan for retirement", rec.Headline)
	assert.Equal(t, "Senior Wealth Advisor", rec.Title)
	assert.Equal(t, "Acme Wealth", rec.Company)
	assert.Equal(t, "Austin, Texas, United States", rec.Location)
	assert.Equal(t, "https://www.linkedin.com/in/jane-smith/", rec.ProfileURL)
	assert.Equal(t, "public", rec.Variant)
	assert.Equal(t, fixedNow, rec.CapturedAt)
	assert.True(t, rec.Valid())
}

func TestExtractPublicFallsBackToTitleTag(t *testing.T) {
	p := domtest.New("https://www.linkedin.com/in/jane/", `<html><head><title>(12) John Doe, MBA - Advisor | LinkedIn</title></head><body></body></html>`)

	rec, err := newExtractor().Extract(context.Background(), p, route.KindPublic)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "John Doe", rec.FullName)
	assert.Equal(t, []string{"MBA"}, rec.Credentials)
	assert.Empty(t, rec.Company)
	assert.Empty(t, rec.Location)
}

func TestExtractPublicTopCardFallback(t *testing.T) {
	markup := `<html><body>
	<section class="artdeco-card pv-top-card">
	  <h1 class="text-heading-xlarge">Sam Roe</h1>
	  <div class="text-body-small inline t-black--light">Planner at Roe Partners.</div>
	</section></body></html>`
	p := domtest.New("https://www.linkedin.com/in/sam/", markup)

	rec, err := newExtractor().Extract(context.Background(), p, route.KindPublic)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Planner", rec.Title)
	assert.Equal(t, "Roe Partners", rec.Company)
}

func TestExtractGatedProfile(t *testing.T) {
	p := domtest.New("https://www.linkedin.com/talent/profile/ACoMegan?trk=FLAGSHIP_VIEW_IN_RECRUITER", readFixture(t, "gated_profile.html"))

	rec, err := newExtractor().Extract(context.Background(), p, route.KindGated)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "Megan (Spain) Manzi", rec.FullName)
	assert.Equal(t, "Megan", rec.FirstName)
	assert.Equal(t, "Manzi", rec.LastName)
	assert.Equal(t, []string{"CFP®", "CRPC"}, rec.Credentials)
	assert.Equal(t, "Financial Advisor at Gulf Coast Wealth", rec.Headline)
	assert.Equal(t, "Financial Advisor", rec.Title)
	assert.Equal(t, "Gulf Coast Wealth", rec.Company)
	assert.Equal(t, "Birmingham, Alabama, United States", rec.Location)
	assert.Equal(t, "Auburn University", rec.Education)
	assert.Equal(t, "https://www.linkedin.com/talent/profile/ACoMegan", rec.ProfileURL)
	assert.Equal(t, "gated", rec.Variant)
}

func TestExtractGatedEducationFromCaption(t *testing.T) {
	markup := `<html><body>
	  <div class="artdeco-entity-lockup__title">Ann Ho, CFA</div>
	  <div class="artdeco-entity-lockup__caption">
	    <span class="text-highlighter__text"> · Denver, Colorado</span>
	    <span>University of Denver</span>
	  </div>
	</body></html>`
	p := domtest.New("https://www.linkedin.com/talent/profile/ACoAnn", markup)

	rec, err := newExtractor().Extract(context.Background(), p, route.KindGated)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Denver, Colorado", rec.Location)
	assert.Equal(t, "University of Denver", rec.Education)
}

func TestExtractGatedDataTestFallbacks(t *testing.T) {
	markup := `<html><head><title>Ann Ho, CFA | LinkedIn Recruiter</title></head><body>
	  <span data-test-latest-position>Analyst at Ho Capital</span>
	  <span data-test-current-company>Ho Capital LLC</span>
	  <span data-test-location>Denver, Colorado</span>
	</body></html>`
	p := domtest.New("https://www.linkedin.com/talent/profile/ACoAnn", markup)

	rec, err := newExtractor().Extract(context.Background(), p, route.KindGated)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Ann Ho", rec.FullName)
	assert.Equal(t, []string{"CFA"}, rec.Credentials)
	assert.Equal(t, "Analyst at Ho Capital", rec.Headline)
	assert.Equal(t, "Analyst", rec.Title)
	assert.Equal(t, "Ho Capital LLC", rec.Company)
	assert.Equal(t, "Denver, Colorado", rec.Location)
}

func TestExtractNoNameIsNoRecord(t *testing.T) {
	p := domtest.New("https://www.linkedin.com/in/x/", `<html><body><div class="text-body-medium break-words">Headline only</div></body></html>`)

	rec, err := newExtractor().Extract(context.Background(), p, route.KindPublic)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestExtractUnknownVariant(t *testing.T) {
	p := domtest.New("https://www.linkedin.com/feed/", `<html></html>`)
	_, err := newExtractor().Extract(context.Background(), p, route.KindOther)
	assert.Error(t, err)
}

func TestExtractRecoversFromPanic(t *testing.T) {
	boom := &Variant{
		Kind: route.KindPublic,
		Name: Chain{{Name: "boom", Pull: func(*dom.Snapshot) string { panic("bad markup") }}},
	}
	e := newExtractor()
	e.Variants = map[route.Kind]*Variant{route.KindPublic: boom}
	p := domtest.New("https://www.linkedin.com/in/x/", `<html></html>`)

	rec, err := e.Extract(context.Background(), p, route.KindPublic)
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFirstPrefersPrimaryThenSecondary(t *testing.T) {
	chain := Chain{Selector(".primary"), Selector(".secondary"), TitleTag(titleBeforeBar)}

	both, err := dom.NewSnapshot("", `<html><body><p class="primary">P</p><p class="secondary">S</p></body></html>`)
	require.NoError(t, err)
	v, src := First(both, chain)
	assert.Equal(t, "P", v)
	assert.Equal(t, ".primary", src)

	second, err := dom.NewSnapshot("", `<html><body><p class="secondary">S</p></body></html>`)
	require.NoError(t, err)
	v, src = First(second, chain)
	assert.Equal(t, "S", v)
	assert.Equal(t, ".secondary", src)

	emptyPrimary, err := dom.NewSnapshot("", `<html><head><title>T | x</title></head><body><p class="primary">  </p></body></html>`)
	require.NoError(t, err)
	v, _ = First(emptyPrimary, chain)
	assert.Equal(t, "T", v)

	none, err := dom.NewSnapshot("", `<html><body></body></html>`)
	require.NoError(t, err)
	v, src = First(none, chain)
	assert.Empty(t, v)
	assert.Empty(t, src)
}
