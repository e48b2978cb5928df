package crm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"salesops_backend/platform/apperr"
	"salesops_backend/platform/config"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{
		baseURL: srv.URL,
		apiKey:  "crm_key",
		http:    &http.Client{Timeout: time.Second},
	}
}

func TestFetchLeadByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer crm_key" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.URL.Query().Get("email"); got != "pat@example.test" {
			t.Errorf("email = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pipelineStage": "Discovery", "ownerName": "Dana Reyes"}`))
	}))
	defer srv.Close()

	snapshot, err := testClient(srv).FetchLeadByEmail(context.Background(), "pat@example.test")
	if err != nil {
		t.Fatalf("FetchLeadByEmail: %v", err)
	}
	if snapshot.PipelineStage != "Discovery" || snapshot.OwnerName != "Dana Reyes" {
		t.Errorf("snapshot = %+v", snapshot)
	}
}

func TestFetchLeadByEmailNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv).FetchLeadByEmail(context.Background(), "nobody@example.test")
	if !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("err = %v, want ErrLeadNotFound", err)
	}
}

func TestFetchLeadByEmailUpstreamErrors(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		_, err := testClient(srv).FetchLeadByEmail(context.Background(), "pat@example.test")
		srv.Close()
		if !apperr.Is(err, apperr.KindUnavailable) {
			t.Errorf("status %d: err = %v, want unavailable (retryable)", status, err)
		}
	}
}

func TestFetchLeadByEmailTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := testClient(srv).FetchLeadByEmail(context.Background(), "pat@example.test")
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Errorf("err = %v, want unavailable on transport failure", err)
	}
}

func TestNewClientDisabled(t *testing.T) {
	if c := NewClient(&config.Config{CRMEnabled: false}); c != nil {
		t.Error("disabled config must yield a nil client")
	}
	if c := NewClient(&config.Config{CRMEnabled: true, CRMBaseURL: ""}); c != nil {
		t.Error("missing base URL must yield a nil client")
	}
}
