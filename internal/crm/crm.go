// Package crm talks to the lead system of record: either an n8n webhook
// pair or Salesforce directly.
package crm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"OutreachLinkedin/internal/config"
)

// ErrNotConfigured is returned when the backend has no endpoint to call.
var ErrNotConfigured = eris.New("crm: not configured")

// ActionLinkedInSent is the only activity the panel logs.
const ActionLinkedInSent = "linkedin_sent"

// Lead is a Salesforce Lead as the outreach panel sees it.
type Lead struct {
	ID           string   `json:"Id" salesforce:"Id"`
	FirstName    string   `json:"FirstName" salesforce:"FirstName"`
	LastName     string   `json:"LastName" salesforce:"LastName"`
	Company      string   `json:"Company" salesforce:"Company"`
	Title        string   `json:"Title" salesforce:"Title"`
	LeadScore    *float64 `json:"Savvy_Lead_Score__c" salesforce:"Savvy_Lead_Score__c"`
	LinkedInURL  string   `json:"LinkedIn_Profile_Apollo__c" salesforce:"LinkedIn_Profile_Apollo__c"`
	Status       string   `json:"Status" salesforce:"Status"`
	LinkedInSent bool     `json:"Prospecting_Step_LinkedIn__c" salesforce:"Prospecting_Step_LinkedIn__c"`
	LeadList     string   `json:"Lead_List_Name__c" salesforce:"Lead_List_Name__c"`
}

// FullName joins first and last name.
func (l Lead) FullName() string {
	switch {
	case l.FirstName == "":
		return l.LastName
	case l.LastName == "":
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}

// complete reports whether the lead carries the fields the panel needs.
func (l Lead) complete() bool {
	return l.ID != "" && l.FirstName != "" && l.LastName != ""
}

// Activity records that a LinkedIn message went out for a lead.
type Activity struct {
	LeadID    string `json:"leadId"`
	Email     string `json:"sgaEmail"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
}

// NewActivity builds a linkedin_sent activity stamped at now.
func NewActivity(leadID, email string, now time.Time) Activity {
	return Activity{
		LeadID:    leadID,
		Email:     email,
		Timestamp: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Action:    ActionLinkedInSent,
	}
}

// Client defines the CRM operations used by the background service.
type Client interface {
	FetchLeads(ctx context.Context, email string) ([]Lead, error)
	LogActivity(ctx context.Context, a Activity) error
	Ping(ctx context.Context) error
}

// New builds the client selected by cfg.CRM.Driver.
func New(cfg *config.Config) (Client, error) {
	switch cfg.CRM.Driver {
	case "", "webhook":
		return NewWebhook(cfg.CRM.LeadsWebhookURL, cfg.CRM.LoggingWebhookURL, cfg.CRM.Timeout), nil
	case "salesforce":
		return NewSalesforce(cfg.Salesforce)
	default:
		return nil, eris.Errorf("crm: unsupported driver %q", cfg.CRM.Driver)
	}
}
