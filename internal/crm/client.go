// Package crm provides a thin read client for the downstream CRM used to
// enrich tracked events with pipeline state.
package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"salesops_backend/platform/apperr"
	"salesops_backend/platform/config"
)

// ErrLeadNotFound indicates the CRM has no contact for the email.
var ErrLeadNotFound = errors.New("crm lead not found")

// LeadSnapshot is the slice of CRM state the pipeline cares about.
type LeadSnapshot struct {
	PipelineStage string `json:"pipelineStage"`
	OwnerName     string `json:"ownerName"`
}

// Client calls the CRM HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a CRM client from config. Returns nil when enrichment is
// disabled; callers treat a nil client as "no CRM".
func NewClient(cfg config.CRMConfig) *Client {
	if !cfg.IsCRMEnabled() {
		return nil
	}
	return &Client{
		baseURL: cfg.GetCRMBaseURL(),
		apiKey:  cfg.GetCRMAPIKey(),
		http:    &http.Client{Timeout: cfg.GetCRMTimeout()},
	}
}

// FetchLeadByEmail looks up the CRM contact for an email address.
func (c *Client) FetchLeadByEmail(ctx context.Context, email string) (LeadSnapshot, error) {
	endpoint := fmt.Sprintf("%s/v1/contacts?email=%s", c.baseURL, url.QueryEscape(email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return LeadSnapshot{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return LeadSnapshot{}, apperr.Wrap(apperr.KindUnavailable, "crm request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return LeadSnapshot{}, ErrLeadNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return LeadSnapshot{}, apperr.Unavailable(fmt.Sprintf("crm returned status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return LeadSnapshot{}, fmt.Errorf("crm returned unexpected status %d", resp.StatusCode)
	}

	var snapshot LeadSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return LeadSnapshot{}, fmt.Errorf("decode crm response: %w", err)
	}
	return snapshot, nil
}
