package salesforce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/domain"
)

func testConfig(baseURL string) config.SalesforceConfig {
	return config.SalesforceConfig{
		BaseURL:                baseURL,
		APIVersion:             "v58.0",
		TimeoutSeconds:         2,
		RetryMaxAttempts:       3,
		RetryBackoffMS:         1,
		BreakerFailureRate:     0.5,
		BreakerMinRequests:     100,
		BreakerIntervalSeconds: 60,
		BreakerOpenSeconds:     30,
	}
}

func sampleCase() *domain.Case {
	return &domain.Case{
		Protocol:    "CASE-AB12CD34EF56",
		Subject:     "No signal",
		Description: "Customer has no signal since yesterday",
		Status:      domain.CaseStatusNew,
		Priority:    domain.CasePriorityHigh,
		TicketType:  "incident",
		ChannelName: "web",
	}
}

func TestCreateCaseSendsSalesforcePayload(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/services/data/v58.0/sobjects/Case" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"500ABC","success":true,"errors":[]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	result := client.CreateCase(context.Background(), sampleCase())

	if !result.Success || result.ID != "500ABC" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if gotBody["Subject"] != "No signal" {
		t.Errorf("Subject not sent, body: %v", gotBody)
	}
	if gotBody["Status"] != "Novo" {
		t.Errorf("expected Salesforce status Novo, got %v", gotBody["Status"])
	}
	if gotBody["Priority"] != "Alta" {
		t.Errorf("expected Salesforce priority Alta, got %v", gotBody["Priority"])
	}
	if _, present := gotBody["Severity"]; present {
		t.Errorf("unset severity must be omitted, body: %v", gotBody)
	}
}

func TestCreateCaseFallbackAfterRetriesExhausted(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	result := client.CreateCase(context.Background(), sampleCase())

	if result.Success {
		t.Fatal("expected degraded result")
	}
	if !strings.HasPrefix(result.ID, FallbackIDPrefix) {
		t.Errorf("expected fallback id, got %q", result.ID)
	}
	if len(result.Errors) == 0 {
		t.Error("expected failure detail in Errors")
	}
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestCreateCaseOpenBreakerShortCircuits(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RetryMaxAttempts = 1
	cfg.BreakerMinRequests = 1
	cfg.BreakerFailureRate = 0.1
	client := NewClient(cfg, zap.NewNop())

	first := client.CreateCase(context.Background(), sampleCase())
	if first.Success {
		t.Fatal("first call should fail and trip the breaker")
	}
	callsAfterFirst := atomic.LoadInt64(&calls)

	second := client.CreateCase(context.Background(), sampleCase())
	if second.Success {
		t.Fatal("second call should be rejected by the open breaker")
	}
	if got := atomic.LoadInt64(&calls); got != callsAfterFirst {
		t.Errorf("open breaker must not reach the server, calls went %d -> %d", callsAfterFirst, got)
	}
	if !strings.HasPrefix(second.ID, FallbackIDPrefix) {
		t.Errorf("expected fallback id, got %q", second.ID)
	}
}

func TestGetCaseReturnsRemoteView(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/data/v58.0/sobjects/Case/500ABC" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"Id":"500ABC","CaseNumber":"00001001","Status":"Novo"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	remote, err := client.GetCase(context.Background(), "500ABC")
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if remote == nil || remote.CaseNumber != "00001001" {
		t.Fatalf("unexpected remote case: %+v", remote)
	}
}

func TestGetCaseDegradesToNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	remote, err := client.GetCase(context.Background(), "MISSING")
	if err != nil {
		t.Fatalf("GetCase must not surface errors, got: %v", err)
	}
	if remote != nil {
		t.Fatalf("expected nil remote case, got %+v", remote)
	}
}

func TestUpdateCasePatchesRemote(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	record := sampleCase()
	record.Status = domain.CaseStatusResolved
	record.Resolution = "replaced faulty SIM"

	client := NewClient(testConfig(server.URL), zap.NewNop())
	if err := client.UpdateCase(context.Background(), "500ABC", record); err != nil {
		t.Fatalf("UpdateCase: %v", err)
	}
	if gotBody["Status"] != "Resolvido" {
		t.Errorf("expected Salesforce status Resolvido, got %v", gotBody["Status"])
	}
	if gotBody["Resolution__c"] != "replaced faulty SIM" {
		t.Errorf("resolution custom field not sent, body: %v", gotBody)
	}
}

func TestUpdateCaseReturnsDegradedError(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	err := client.UpdateCase(context.Background(), "500ABC", sampleCase())
	if err == nil {
		t.Fatal("expected degraded error after retries")
	}
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}
