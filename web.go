package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"OutreachLinkedin/internal/config"
	"OutreachLinkedin/internal/crm"
	"OutreachLinkedin/internal/egress"
	"OutreachLinkedin/internal/outreach"
	"OutreachLinkedin/internal/profile"
	"OutreachLinkedin/internal/store"
)

// =================== TYPES ===================

type streamEvent struct {
	Type string `json:"type"`
	Msg  string `json:"msg,omitempty"`
	Data any    `json:"data,omitempty"`
}

type leadsResponse struct {
	Leads    []store.CachedLead `json:"leads"`
	Count    int                `json:"count"`
	LastSync *time.Time         `json:"lastSync"`
}

type composeRequest struct {
	TemplateID string `json:"templateId"`
}

type composeResponse struct {
	Message string   `json:"message"`
	Missing []string `json:"missing"`
}

type sentRequest struct {
	Message string `json:"message"`
}

// urlSetter is implemented by CRM backends whose endpoints live in settings.
type urlSetter interface {
	SetURLs(leadsURL, loggingURL string)
}

// =================== SERVER ===================

// server is the background service: it receives scraped profiles, fans them
// out to panel streams and owns settings, templates and the leads cache.
type server struct {
	store  *store.Store
	crm    crm.Client
	cfg    config.CRMConfig
	events *broadcaster
	now    func() time.Time

	mu      sync.RWMutex
	current *profile.Record
}

func newServer(ctx context.Context, st *store.Store, client crm.Client, cfg config.CRMConfig) (*server, error) {
	s := &server{
		store:  st,
		crm:    client,
		cfg:    cfg,
		events: newBroadcaster(),
		now:    time.Now,
	}
	set, err := st.Settings(ctx)
	if err != nil {
		return nil, err
	}
	s.applyURLs(set)
	return s, nil
}

// applyURLs points a webhook CRM at the saved URLs, falling back to config.
func (s *server) applyURLs(set store.Settings) {
	ws, ok := s.crm.(urlSetter)
	if !ok {
		return
	}
	leads, logging := set.LeadsWebhookURL, set.LoggingWebhookURL
	if leads == "" {
		leads = s.cfg.LeadsWebhookURL
	}
	if logging == "" {
		logging = s.cfg.LoggingWebhookURL
	}
	ws.SetURLs(leads, logging)
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/export.csv", s.handleExport)

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", s.handleMessage)
		r.Get("/stream", s.handleStream)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Get("/templates", s.handleGetTemplates)
		r.Put("/templates", s.handlePutTemplates)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", s.handleLeads)
			r.Post("/sync", s.handleSync)
			r.Post("/{id}/compose", s.handleCompose)
			r.Post("/{id}/sent", s.handleSent)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *server) profile() *profile.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// =================== MESSAGES ===================

func (s *server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var env egress.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeJSON(w, http.StatusBadRequest, egress.Ack{Error: "invalid message"})
		return
	}
	zap.L().Debug("background: message", zap.String("type", env.Type), zap.String("id", env.ID))

	switch env.Type {
	case egress.TypeProfileScraped:
		rec := &profile.Record{}
		if err := json.Unmarshal(env.Payload, rec); err != nil {
			writeJSON(w, http.StatusBadRequest, egress.Ack{Error: "invalid profile payload"})
			return
		}
		s.mu.Lock()
		s.current = rec
		s.mu.Unlock()

		if err := s.store.SaveCapture(r.Context(), rec); err != nil {
			zap.L().Warn("background: capture not saved", zap.Error(err), zap.String("url", rec.ProfileURL))
		}
		s.events.publish(streamEvent{Type: egress.TypeProfileUpdate, Data: rec})
		writeJSON(w, http.StatusOK, egress.Ack{Success: true})

	case egress.TypeGetScrapedProfile:
		writeJSON(w, http.StatusOK, map[string]*profile.Record{"profile": s.profile()})

	default:
		writeJSON(w, http.StatusBadRequest, egress.Ack{Error: "Unknown message type"})
	}
}

// handleStream writes one NDJSON line per profile update, starting with the
// cached profile when there is one.
func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Cache-Control", "no-cache")

	ch, cancel := s.events.subscribe()
	defer cancel()

	writeEvent(w, streamEvent{Type: "log", Msg: "connected"})
	if rec := s.profile(); rec != nil {
		writeEvent(w, streamEvent{Type: egress.TypeProfileUpdate, Data: rec})
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeEvent(w, ev)
		}
	}
}

func writeEvent(w http.ResponseWriter, ev streamEvent) {
	b, _ := json.Marshal(ev)
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// broadcaster fans events out to stream subscribers. Slow subscribers miss
// events rather than block the publisher.
type broadcaster struct {
	mu   sync.Mutex
	subs map[chan streamEvent]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan streamEvent]struct{})}
}

func (b *broadcaster) subscribe() (<-chan streamEvent, func()) {
	ch := make(chan streamEvent, 8)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
}

func (b *broadcaster) publish(ev streamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broadcaster) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// =================== SETTINGS / TEMPLATES ===================

func (s *server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	set, err := s.store.Settings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var set store.Settings
	if err := decodeBody(r, &set); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	set.UserEmail = strings.TrimSpace(set.UserEmail)
	if err := s.store.SaveSettings(r.Context(), set); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.applyURLs(set)
	writeJSON(w, http.StatusOK, set)
}

func (s *server) handleGetTemplates(w http.ResponseWriter, r *http.Request) {
	ts, err := s.store.Templates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *server) handlePutTemplates(w http.ResponseWriter, r *http.Request) {
	var ts []outreach.Template
	if err := decodeBody(r, &ts); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ts, err := outreach.Normalize(ts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.SaveTemplates(r.Context(), ts); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.handleGetTemplates(w, r)
}

// =================== LEADS ===================

// operator returns the configured operator email when it belongs to the
// allowed domain.
func (s *server) operator(ctx context.Context) (string, error) {
	set, err := s.store.Settings(ctx)
	if err != nil {
		return "", err
	}
	email := set.UserEmail
	if email == "" {
		email = s.cfg.UserEmail
	}
	if !outreach.AllowedEmail(email, s.cfg.AllowedDomain) {
		return "", errForbidden
	}
	return email, nil
}

var errForbidden = eris.New("operator email is missing or outside the allowed domain")

func (s *server) handleLeads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leads, err := s.store.Leads(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	at, ok, err := s.store.LastSync(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := leadsResponse{Leads: leads, Count: len(leads)}
	if resp.Leads == nil {
		resp.Leads = []store.CachedLead{}
	}
	if ok {
		resp.LastSync = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email, err := s.operator(ctx)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	leads, err := s.crm.FetchLeads(ctx, email)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := s.store.SaveLeads(ctx, leads, s.now()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	zap.L().Info("background: leads synced", zap.Int("count", len(leads)), zap.String("email", email))
	s.handleLeads(w, r)
}

func (s *server) handleCompose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req composeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	lead, err := s.store.Lead(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	tmpl, err := s.store.Template(ctx, req.TemplateID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	rec := s.profile()
	writeJSON(w, http.StatusOK, composeResponse{
		Message: outreach.Generate(tmpl.Content, lead.Lead, rec),
		Missing: nonNil(outreach.Missing(tmpl.Content, lead.Lead, rec)),
	})
}

func (s *server) handleSent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	var req sentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.store.Lead(ctx, id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	email, err := s.operator(ctx)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := s.crm.LogActivity(ctx, crm.NewActivity(id, email, s.now())); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := s.store.MarkLeadSent(ctx, id, req.Message); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	set, err := s.store.Settings(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "autoAdvance": set.AutoAdvanceOnSend})
}

// =================== EXPORT ===================

var exportHeader = []string{
	"full_name", "first_name", "last_name", "credentials", "headline", "title",
	"company", "location", "education", "profile_url", "variant", "captured_at",
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.Captures(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=linkedin_"+s.now().Format("20060102_150405")+".csv")
	if err := writeCSV(w, recs); err != nil {
		zap.L().Warn("background: csv export failed", zap.Error(err))
	}
}

// writeCSV writes recs with a UTF-8 BOM so spreadsheet tools pick the right
// encoding.
func writeCSV(out io.Writer, recs []*profile.Record) error {
	if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	w := csv.NewWriter(out)
	if err := w.Write(exportHeader); err != nil {
		return err
	}
	for _, p := range recs {
		row := []string{
			p.FullName,
			p.FirstName,
			p.LastName,
			strings.Join(p.Credentials, "; "),
			p.Headline,
			p.Title,
			p.Company,
			p.Location,
			p.Education,
			p.ProfileURL,
			p.Variant,
			p.CapturedAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// =================== HELPERS ===================

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return eris.Wrap(err, "invalid request body")
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, crm.ErrNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		zap.L().Warn("background: request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// =================== HTML (template) ===================

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = pageTmpl.Execute(w, map[string]any{
		"Domain":    s.cfg.AllowedDomain,
		"Variables": outreach.Variables,
	})
}

var pageTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en"><head>
<meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"/>
<title>Outreach • LinkedIn panel</title>
<link rel="icon" href="data:,">
<script src="https://cdn.tailwindcss.com"></script>
<script>
tailwind.config = { theme: { extend: {
  colors:{ primary:{DEFAULT:'hsl(200 98% 39%)', glow:'hsl(200 100% 50%)'}, accent:'hsl(158 64% 52%)', warning:'hsl(38 92% 50%)', success:'hsl(142 76% 36%)' },
  boxShadow:{ card:'0 2px 10px -1px rgba(18,38,63,.12)' }
}}}
</script>
<style>
.gradient-text{background:linear-gradient(135deg,hsl(200 98% 39%),hsl(200 100% 50%));-webkit-background-clip:text;background-clip:text;color:transparent}
.table-wrap{max-height:420px;overflow:auto} th,td{white-space:nowrap}
</style>
</head>
<body class="bg-gray-50 text-gray-900">
<div class="max-w-7xl mx-auto px-4 py-8">
  <header class="flex items-center justify-between mb-8">
    <h1 class="text-3xl font-bold gradient-text">Outreach</h1>
    <a href="/export.csv" class="text-sm text-primary underline">Export captures (CSV)</a>
  </header>

  <div class="grid grid-cols-1 lg:grid-cols-3 gap-6">
    <div class="lg:col-span-1 space-y-6">
      <div class="bg-white border rounded-xl shadow-card p-5">
        <h2 class="text-lg font-semibold mb-3">Current profile</h2>
        <div id="profile" class="text-sm text-gray-500">Waiting for a LinkedIn profile…</div>
      </div>

      <div class="bg-white border rounded-xl shadow-card p-5">
        <h2 class="text-lg font-semibold mb-3">Settings</h2>
        <div class="space-y-3 text-sm">
          <label class="block"><span>Operator email (@{{.Domain}})</span>
            <input id="userEmail" type="email" class="mt-1 w-full border rounded-md px-3 py-2"></label>
          <label class="block"><span>Leads webhook URL</span>
            <input id="n8nWebhookUrl" type="url" class="mt-1 w-full border rounded-md px-3 py-2"></label>
          <label class="block"><span>Message-sent webhook URL</span>
            <input id="n8nLoggingWebhookUrl" type="url" class="mt-1 w-full border rounded-md px-3 py-2"></label>
          <label class="flex items-center gap-2"><input id="recruiterRedirectEnabled" type="checkbox"> Redirect public profiles to recruiter view</label>
          <label class="flex items-center gap-2"><input id="autoOpenMessageComposer" type="checkbox"> Open the recruiter message composer</label>
          <label class="flex items-center gap-2"><input id="autoAdvanceOnSend" type="checkbox"> Advance to the next lead after sending</label>
          <button id="save" class="w-full bg-primary text-white rounded-md py-2">Save</button>
        </div>
      </div>
    </div>

    <div class="lg:col-span-2 space-y-6">
      <div class="bg-white border rounded-xl shadow-card p-5">
        <div class="flex items-center justify-between mb-3">
          <h2 class="text-lg font-semibold">Leads <span id="count" class="text-gray-400 text-sm"></span></h2>
          <button id="sync" class="bg-accent text-white rounded-md px-3 py-1 text-sm">Sync</button>
        </div>
        <div id="status" class="text-xs text-gray-500 mb-2"></div>
        <div class="table-wrap border rounded-md">
          <table class="min-w-full text-sm">
            <thead class="bg-gray-100"><tr><th class="px-3 py-2 text-left">Name</th><th class="px-3 py-2 text-left">Company</th><th class="px-3 py-2 text-left">Score</th><th class="px-3 py-2 text-left">Sent</th></tr></thead>
            <tbody id="leads"></tbody>
          </table>
        </div>
      </div>

      <div class="bg-white border rounded-xl shadow-card p-5">
        <h2 class="text-lg font-semibold mb-3">Message</h2>
        <select id="template" class="border rounded-md px-3 py-2 text-sm mb-3"></select>
        <p class="text-xs text-gray-400 mb-2">Placeholders:{{range .Variables}} <code>{{"{{"}}{{.}}{{"}}"}}</code>{{end}}</p>
        <textarea id="message" rows="6" class="w-full border rounded-md px-3 py-2 text-sm"></textarea>
        <div id="missing" class="text-xs text-warning mt-1"></div>
        <div class="flex gap-2 mt-3">
          <button id="copy" class="bg-primary text-white rounded-md px-3 py-1 text-sm">Copy</button>
          <button id="sent" class="bg-success text-white rounded-md px-3 py-1 text-sm">Mark sent</button>
        </div>
      </div>
    </div>
  </div>
</div>
<script>
(() => {
  const $ = (id) => document.getElementById(id);
  const api = async (method, path, body) => {
    const r = await fetch(path, {method, headers: {'Content-Type': 'application/json'}, body: body ? JSON.stringify(body) : undefined});
    const data = await r.json();
    if (!r.ok) throw new Error(data.error || r.statusText);
    return data;
  };
  let leads = [], selected = null;
  const flags = ['recruiterRedirectEnabled', 'autoOpenMessageComposer', 'autoAdvanceOnSend'];
  const texts = ['userEmail', 'n8nWebhookUrl', 'n8nLoggingWebhookUrl'];

  const showProfile = (p) => {
    if (!p) return;
    const creds = (p.credentials || []).join(', ');
    $('profile').innerHTML = '';
    [p.fullName + (creds ? ', ' + creds : ''), [p.title, p.company].filter(Boolean).join(' at '), p.location, p.profileUrl]
      .filter(Boolean).forEach((t) => { const d = document.createElement('div'); d.textContent = t; $('profile').appendChild(d); });
  };
  const renderLeads = (data) => {
    leads = data.leads || [];
    $('count').textContent = '(' + data.count + ')';
    $('status').textContent = data.lastSync ? 'Last sync ' + new Date(data.lastSync).toLocaleString() : 'Never synced';
    const body = $('leads'); body.innerHTML = '';
    leads.forEach((l, i) => {
      const tr = document.createElement('tr');
      tr.className = 'border-t cursor-pointer hover:bg-gray-50' + (selected === i ? ' bg-blue-50' : '');
      [l.FirstName + ' ' + l.LastName, l.Company || '', l.Savvy_Lead_Score__c ?? '', l.Prospecting_Step_LinkedIn__c ? '✓' : '']
        .forEach((v) => { const td = document.createElement('td'); td.className = 'px-3 py-2'; td.textContent = v; tr.appendChild(td); });
      tr.onclick = () => { selected = i; renderLeads(data); compose(); };
      body.appendChild(tr);
    });
  };
  const compose = async () => {
    if (selected === null || !leads[selected]) return;
    try {
      const r = await api('POST', '/api/leads/' + encodeURIComponent(leads[selected].Id) + '/compose', {templateId: $('template').value});
      $('message').value = r.message;
      $('missing').textContent = r.missing.length ? 'Missing: ' + r.missing.join(', ') : '';
    } catch (e) { $('missing').textContent = e.message; }
  };

  api('GET', '/api/settings').then((s) => {
    flags.forEach((k) => { $(k).checked = !!s[k]; });
    texts.forEach((k) => { $(k).value = s[k] || ''; });
  });
  api('GET', '/api/templates').then((ts) => {
    ts.forEach((t) => { const o = document.createElement('option'); o.value = t.id; o.textContent = t.name; $('template').appendChild(o); });
  });
  api('GET', '/api/leads').then(renderLeads).catch((e) => { $('status').textContent = e.message; });

  $('save').onclick = async () => {
    const body = {};
    flags.forEach((k) => { body[k] = $(k).checked; });
    texts.forEach((k) => { body[k] = $(k).value.trim(); });
    try { await api('PUT', '/api/settings', body); $('status').textContent = 'Settings saved'; } catch (e) { $('status').textContent = e.message; }
  };
  $('sync').onclick = async () => {
    $('status').textContent = 'Syncing…';
    try { selected = null; renderLeads(await api('POST', '/api/leads/sync')); } catch (e) { $('status').textContent = e.message; }
  };
  $('template').onchange = compose;
  $('copy').onclick = () => navigator.clipboard.writeText($('message').value);
  $('sent').onclick = async () => {
    if (selected === null) return;
    try {
      const r = await api('POST', '/api/leads/' + encodeURIComponent(leads[selected].Id) + '/sent', {message: $('message').value});
      const data = await api('GET', '/api/leads');
      if (r.autoAdvance) {
        const next = data.leads.findIndex((l, i) => i > selected && !l.Prospecting_Step_LinkedIn__c);
        selected = next >= 0 ? next : null;
      }
      renderLeads(data); compose();
    } catch (e) { $('status').textContent = e.message; }
  };

  (async function stream() {
    try {
      const resp = await fetch('/api/stream');
      const reader = resp.body.getReader();
      const dec = new TextDecoder();
      let buf = '';
      for (;;) {
        const {value, done} = await reader.read();
        if (done) break;
        buf += dec.decode(value, {stream: true});
        let nl;
        while ((nl = buf.indexOf('\n')) >= 0) {
          const line = buf.slice(0, nl).trim(); buf = buf.slice(nl + 1);
          if (!line) continue;
          const ev = JSON.parse(line);
          if (ev.type === 'PROFILE_UPDATE') { showProfile(ev.data); compose(); }
        }
      }
    } catch (e) {}
    setTimeout(stream, 2000);
  })();
})();
</script>
</body></html>`))
