package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OutreachLinkedin/internal/config"
	"OutreachLinkedin/internal/crm"
	"OutreachLinkedin/internal/egress"
	"OutreachLinkedin/internal/outreach"
	"OutreachLinkedin/internal/prefs"
	"OutreachLinkedin/internal/profile"
	"OutreachLinkedin/internal/store"
)

type fakeCRM struct {
	mu         sync.Mutex
	leads      []crm.Lead
	fetchErr   error
	logErr     error
	emails     []string
	activities []crm.Activity
	urls       [2]string
}

func (f *fakeCRM) FetchLeads(_ context.Context, email string) ([]crm.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, email)
	return f.leads, f.fetchErr
}

func (f *fakeCRM) LogActivity(_ context.Context, a crm.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logErr != nil {
		return f.logErr
	}
	f.activities = append(f.activities, a)
	return nil
}

func (f *fakeCRM) Ping(context.Context) error { return nil }

func (f *fakeCRM) seen() ([]string, []crm.Activity, [2]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.emails...), append([]crm.Activity(nil), f.activities...), f.urls
}

func (f *fakeCRM) failLogging(err error) {
	f.mu.Lock()
	f.logErr = err
	f.mu.Unlock()
}

func (f *fakeCRM) SetURLs(leads, logging string) {
	f.mu.Lock()
	f.urls = [2]string{leads, logging}
	f.mu.Unlock()
}

var fixedNow = time.Date(2026, 4, 7, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, client *fakeCRM) (*server, *store.Store, *httptest.Server) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv, err := newServer(context.Background(), st, client, config.CRMConfig{
		AllowedDomain:   "savvywealth.com",
		LeadsWebhookURL: "https://n8n.example/leads",
	})
	require.NoError(t, err)
	srv.now = func() time.Time { return fixedNow }

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return srv, st, ts
}

func do(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func sampleRecord() *profile.Record {
	return &profile.Record{
		FullName:    "Megan Manzi",
		FirstName:   "Megan",
		LastName:    "Manzi",
		Company:     "Gulf Wealth",
		Credentials: []string{"CFP®", "CFA"},
		ProfileURL:  "https://www.linkedin.com/talent/profile/ACoMegan",
		Variant:     "gated",
		CapturedAt:  fixedNow,
	}
}

func TestMessagesRoundTrip(t *testing.T) {
	_, st, ts := newTestServer(t, &fakeCRM{})

	var got map[string]*profile.Record
	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/messages", egress.Envelope{Type: egress.TypeGetScrapedProfile}, &got))
	assert.Contains(t, got, "profile")
	assert.Nil(t, got["profile"])

	// The engine's own channel posts here.
	out := egress.NewHTTP(ts.URL, time.Second)
	require.NoError(t, out.Send(context.Background(), sampleRecord()))

	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/messages", egress.Envelope{Type: egress.TypeGetScrapedProfile}, &got))
	require.NotNil(t, got["profile"])
	assert.Equal(t, "Megan", got["profile"].FirstName)

	caps, err := st.Captures(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, caps, 1)

	var ack egress.Ack
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, ts.URL+"/api/messages", egress.Envelope{Type: "GET_AUTH_STATE"}, &ack))
	assert.Equal(t, "Unknown message type", ack.Error)
}

func TestStreamDeliversProfileUpdates(t *testing.T) {
	srv, _, ts := newTestServer(t, &fakeCRM{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/x-ndjson; charset=utf-8", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Contains(t, lines.Text(), `"connected"`)
	require.Eventually(t, func() bool { return srv.events.len() == 1 }, time.Second, 5*time.Millisecond)

	env, err := egress.NewEnvelope(egress.TypeProfileScraped, sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/messages", env, nil))

	require.True(t, lines.Scan())
	var ev struct {
		Type string          `json:"type"`
		Data *profile.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(lines.Bytes(), &ev))
	assert.Equal(t, egress.TypeProfileUpdate, ev.Type)
	assert.Equal(t, "Gulf Wealth", ev.Data.Company)
}

func TestSettingsServePreferences(t *testing.T) {
	client := &fakeCRM{}
	_, _, ts := newTestServer(t, client)
	_, _, urls := client.seen()
	assert.Equal(t, [2]string{"https://n8n.example/leads", ""}, urls)

	set := store.DefaultSettings()
	set.RedirectToGated = true
	set.LoggingWebhookURL = "https://n8n.example/sent"
	set.UserEmail = " sga@savvywealth.com "
	var saved store.Settings
	assert.Equal(t, http.StatusOK, do(t, http.MethodPut, ts.URL+"/api/settings", set, &saved))
	assert.Equal(t, "sga@savvywealth.com", saved.UserEmail)
	_, _, urls = client.seen()
	assert.Equal(t, [2]string{"https://n8n.example/leads", "https://n8n.example/sent"}, urls)

	p, err := prefs.NewRemote(ts.URL, time.Second).Preferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, prefs.Preferences{RedirectToGated: true}, p)
}

func TestTemplatesEndpoint(t *testing.T) {
	_, _, ts := newTestServer(t, &fakeCRM{})

	var ts0 []outreach.Template
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/templates", nil, &ts0))
	assert.Len(t, ts0, 4)

	var saved []outreach.Template
	assert.Equal(t, http.StatusOK, do(t, http.MethodPut, ts.URL+"/api/templates",
		[]outreach.Template{{Name: "Short", Content: "Hi {{firstName}}"}}, &saved))
	require.Len(t, saved, 1)
	assert.NotEmpty(t, saved[0].ID)

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPut, ts.URL+"/api/templates",
		[]outreach.Template{{Name: "Empty"}}, nil))
}

func TestLeadsFlow(t *testing.T) {
	client := &fakeCRM{leads: []crm.Lead{
		{ID: "00Q1", FirstName: "Megan", LastName: "Manzi", Company: "Old Firm"},
		{ID: "00Q2", FirstName: "Bo", LastName: "Ng"},
	}}
	srv, _, ts := newTestServer(t, client)

	var errBody map[string]string
	assert.Equal(t, http.StatusForbidden, do(t, http.MethodPost, ts.URL+"/api/leads/sync", nil, &errBody))

	set := store.DefaultSettings()
	set.UserEmail = "sga@savvywealth.com"
	require.Equal(t, http.StatusOK, do(t, http.MethodPut, ts.URL+"/api/settings", set, nil))

	var leads leadsResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/leads/sync", nil, &leads))
	assert.Equal(t, 2, leads.Count)
	require.NotNil(t, leads.LastSync)
	assert.True(t, fixedNow.Equal(*leads.LastSync))
	emails, _, _ := client.seen()
	assert.Equal(t, []string{"sga@savvywealth.com"}, emails)

	srv.mu.Lock()
	srv.current = sampleRecord()
	srv.mu.Unlock()

	var c composeResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/leads/00Q1/compose", composeRequest{TemplateID: "intro-2"}, &c))
	assert.True(t, strings.HasPrefix(c.Message, "Hi Megan, I see you're a CFP®, CFA at Gulf Wealth"))
	assert.Empty(t, c.Missing)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPost, ts.URL+"/api/leads/nope/compose", composeRequest{TemplateID: "intro-1"}, nil))
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPost, ts.URL+"/api/leads/00Q1/compose", composeRequest{TemplateID: "nope"}, nil))

	var sent map[string]bool
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/leads/00Q1/sent", sentRequest{Message: c.Message}, &sent))
	assert.True(t, sent["success"])
	assert.True(t, sent["autoAdvance"])
	_, activities, _ := client.seen()
	require.Len(t, activities, 1)
	assert.Equal(t, crm.NewActivity("00Q1", "sga@savvywealth.com", fixedNow), activities[0])

	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/leads", nil, &leads))
	assert.True(t, leads.Leads[0].LinkedInSent)
	assert.Equal(t, c.Message, leads.Leads[0].GeneratedMessage)
	assert.False(t, leads.Leads[1].LinkedInSent)
}

func TestSentNotMarkedWhenCRMFails(t *testing.T) {
	client := &fakeCRM{leads: []crm.Lead{{ID: "00Q1", FirstName: "Ann", LastName: "Lee"}}}
	_, st, ts := newTestServer(t, client)

	set := store.DefaultSettings()
	set.UserEmail = "sga@savvywealth.com"
	require.NoError(t, st.SaveSettings(context.Background(), set))
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/leads/sync", nil, nil))

	client.failLogging(crm.ErrNotConfigured)
	assert.Equal(t, http.StatusPreconditionFailed, do(t, http.MethodPost, ts.URL+"/api/leads/00Q1/sent", sentRequest{}, nil))

	l, err := st.Lead(context.Background(), "00Q1")
	require.NoError(t, err)
	assert.False(t, l.LinkedInSent)
}

func TestExportCSV(t *testing.T) {
	_, st, ts := newTestServer(t, &fakeCRM{})
	require.NoError(t, st.SaveCapture(context.Background(), sampleRecord()))

	resp, err := http.Get(ts.URL + "/export.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "linkedin_20260407_100000.csv")

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	body := strings.TrimPrefix(buf.String(), "\ufeff")
	rows := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, rows, 2)
	assert.True(t, strings.HasPrefix(rows[0], "full_name,first_name,last_name,credentials"))
	assert.Contains(t, rows[1], "Megan Manzi,Megan,Manzi,CFP®; CFA")
	assert.Contains(t, rows[1], "2026-04-07 10:00:00")
}

func TestIndexAndHealth(t *testing.T) {
	_, _, ts := newTestServer(t, &fakeCRM{})

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, buf.String(), "@savvywealth.com")
	assert.Contains(t, buf.String(), "{{firstName}}")

	var health map[string]string
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/health", nil, &health))
	assert.Equal(t, "ok", health["status"])
}
