package crm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"OutreachLinkedin/internal/config"
)

// leadFields are the SOQL fields selected for Lead queries.
var leadFields = []string{
	"Id", "FirstName", "LastName", "Company", "Title",
	"Savvy_Lead_Score__c", "LinkedIn_Profile_Apollo__c", "Status",
	"Prospecting_Step_LinkedIn__c", "Lead_List_Name__c",
}

// Salesforce reads and updates leads over the Salesforce REST API.
//
// go-salesforce does not take a context; ctx only bounds the rate limiter
// wait.
type Salesforce struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// NewSalesforce authenticates with the JWT bearer flow.
func NewSalesforce(cfg config.SalesforceConfig) (*Salesforce, error) {
	if cfg.ClientID == "" {
		return nil, eris.Wrap(ErrNotConfigured, "crm: salesforce client ID is required (OUTREACH_SALESFORCE_CLIENT_ID)")
	}
	pemData, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "crm: read salesforce JWT private key")
	}
	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.LoginURL,
		Username:       cfg.Username,
		ConsumerKey:    cfg.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "crm: init salesforce")
	}
	return NewSalesforceClient(sf, 5), nil
}

// NewSalesforceClient wraps an initialised go-salesforce instance. rps <= 0
// disables rate limiting.
func NewSalesforceClient(sf *salesforce.Salesforce, rps float64) *Salesforce {
	c := &Salesforce{sf: sf}
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
	return c
}

func (c *Salesforce) wait(ctx context.Context) error {
	if c.limiter == nil {
		return ctx.Err()
	}
	return c.limiter.Wait(ctx)
}

// FetchLeads returns the open leads owned by email that have not been
// messaged on LinkedIn.
func (c *Salesforce) FetchLeads(ctx context.Context, email string) ([]Lead, error) {
	if email == "" {
		return nil, eris.New("crm: no email provided for lead fetch")
	}
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "crm: rate limit")
	}
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE Owner.Email = '%s' AND Prospecting_Step_LinkedIn__c = false AND IsConverted = false ORDER BY Savvy_Lead_Score__c DESC NULLS LAST LIMIT 200",
		strings.Join(leadFields, ", "),
		escapeSoql(email),
	)

	var raw []Lead
	if err := c.sf.Query(soql, &raw); err != nil {
		return nil, eris.Wrap(err, "crm: query leads")
	}
	leads := raw[:0]
	for _, l := range raw {
		if l.complete() {
			leads = append(leads, l)
		}
	}
	return leads, nil
}

// LogActivity sets the LinkedIn prospecting step on the lead.
func (c *Salesforce) LogActivity(ctx context.Context, a Activity) error {
	if a.LeadID == "" {
		return eris.New("crm: activity without lead id")
	}
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "crm: rate limit")
	}
	fields := map[string]any{
		"Id":                           a.LeadID,
		"Prospecting_Step_LinkedIn__c": true,
	}
	if err := c.sf.UpdateOne("Lead", fields); err != nil {
		return eris.Wrap(err, fmt.Sprintf("crm: update lead %s", a.LeadID))
	}
	return nil
}

// Ping runs a trivial query.
func (c *Salesforce) Ping(ctx context.Context) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "crm: rate limit")
	}
	var rows []struct {
		ID string `json:"Id" salesforce:"Id"`
	}
	if err := c.sf.Query("SELECT Id FROM Lead LIMIT 1", &rows); err != nil {
		return eris.Wrap(err, "crm: ping")
	}
	return nil
}

// escapeSoql escapes single quotes and backslashes for SOQL string literals.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
