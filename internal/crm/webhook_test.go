package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLeadsShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		ids  []string
	}{
		{"array", `[{"Id":"00Q1","FirstName":"Ann","LastName":"Lee"}]`, []string{"00Q1"}},
		{"leads wrapper", `{"success":true,"leads":[{"Id":"00Q2","FirstName":"Bo","LastName":"Ng"}]}`, []string{"00Q2"}},
		{"data wrapper", `{"data":[{"Id":"00Q3","FirstName":"Cy","LastName":"Oh"}]}`, []string{"00Q3"}},
		{"drops incomplete", `[{"Id":"00Q4","FirstName":"Di"},{"Id":"00Q5","FirstName":"Ed","LastName":"Po"}]`, []string{"00Q5"}},
		{"unknown object", `{"rows":[]}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leads, err := decodeLeads([]byte(tt.body))
			require.NoError(t, err)
			var ids []string
			for _, l := range leads {
				ids = append(ids, l.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}

	_, err := decodeLeads([]byte(`not json`))
	assert.Error(t, err)
}

func TestWebhookFetchLeads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sga@savvywealth.com", r.URL.Query().Get("email"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"Id":"00Q1","FirstName":"Ann","LastName":"Lee","Company":"Acme","Savvy_Lead_Score__c":87,"Prospecting_Step_LinkedIn__c":false}]`))
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL+"/leads", "", time.Second)
	leads, err := wh.FetchLeads(context.Background(), "sga@savvywealth.com")
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Ann Lee", leads[0].FullName())
	require.NotNil(t, leads[0].LeadScore)
	assert.InDelta(t, 87.0, *leads[0].LeadScore, 0.001)
}

func TestWebhookErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx := context.Background()
	wh := NewWebhook("", "", time.Second)
	_, err := wh.FetchLeads(ctx, "a@b.com")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, wh.LogActivity(ctx, NewActivity("00Q1", "a@b.com", time.Now())), ErrNotConfigured)
	assert.ErrorIs(t, wh.Ping(ctx), ErrNotConfigured)

	wh.SetURLs(srv.URL, srv.URL)
	_, err = wh.FetchLeads(ctx, "")
	assert.Error(t, err)
	_, err = wh.FetchLeads(ctx, "a@b.com")
	assert.ErrorContains(t, err, "502")
	assert.Error(t, wh.Ping(ctx))
	assert.Error(t, wh.LogActivity(ctx, NewActivity("00Q1", "a@b.com", time.Now())))
}

func TestWebhookLogActivity(t *testing.T) {
	var got Activity
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook("", srv.URL, time.Second)
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, wh.LogActivity(context.Background(), NewActivity("00Q9", "sga@savvywealth.com", at)))

	assert.Equal(t, Activity{
		LeadID:    "00Q9",
		Email:     "sga@savvywealth.com",
		Timestamp: "2026-03-01T09:30:00.000Z",
		Action:    ActionLinkedInSent,
	}, got)
}
