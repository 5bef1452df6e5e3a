package gate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/oversight-gate/internal/domain"
)

func testRequest() domain.ApprovalRequest {
	return domain.ApprovalRequest{
		AgentName:         "Ops",
		ActionDescription: "delete user",
		Parameters:        map[string]any{"user_id": "1"},
		ApproverEmails:    []string{"approver@example.com"},
		CorrelationID:     "c-1",
		Timestamp:         "2026-01-01T00:00:00Z",
	}
}

func TestNewClient_EndpointRequired(t *testing.T) {
	_, err := NewClient("", time.Second, zap.NewNop())
	if !errors.Is(err, domain.ErrEndpointNotConfigured) {
		t.Fatalf("NewClient(\"\") = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestClient_Send_Decision(t *testing.T) {
	var gotBody domain.ApprovalRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("request body is not valid JSON: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "Approved", "approver": "bob@x"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	out := c.Send(context.Background(), testRequest())
	if out.Kind != OutcomeDecision {
		t.Fatalf("outcome kind = %v, want OutcomeDecision (err: %v)", out.Kind, out.Err)
	}
	if out.Decision.Status != "Approved" || out.Decision.Approver != "bob@x" {
		t.Errorf("decision = %+v", out.Decision)
	}
	if gotBody.CorrelationID != "c-1" || gotBody.AgentName != "Ops" {
		t.Errorf("wire body mismatch: %+v", gotBody)
	}
	if gotBody.Parameters["user_id"] != "1" {
		t.Errorf("parameters not carried: %+v", gotBody.Parameters)
	}
}

func TestClient_Send_MissingApproverDefaultsToUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "Rejected"})
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, time.Second, zap.NewNop())
	out := c.Send(context.Background(), testRequest())
	if out.Kind != OutcomeDecision {
		t.Fatalf("outcome kind = %v, want OutcomeDecision", out.Kind)
	}
	if out.Decision.Approver != domain.UnknownApprover {
		t.Errorf("approver = %q, want %q", out.Decision.Approver, domain.UnknownApprover)
	}
}

func TestClient_Send_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, 50*time.Millisecond, zap.NewNop())
	out := c.Send(context.Background(), testRequest())
	if out.Kind != OutcomeTimeout {
		t.Fatalf("outcome kind = %v, want OutcomeTimeout (err: %v)", out.Kind, out.Err)
	}
}

func TestClient_Send_Non2xxIsTransportError(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		c, _ := NewClient(srv.URL, time.Second, zap.NewNop())
		out := c.Send(context.Background(), testRequest())
		srv.Close()

		if out.Kind != OutcomeError {
			t.Errorf("status %d: outcome kind = %v, want OutcomeError", code, out.Kind)
		}
	}
}

func TestClient_Send_MalformedBodyIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, time.Second, zap.NewNop())
	out := c.Send(context.Background(), testRequest())
	if out.Kind != OutcomeError {
		t.Fatalf("outcome kind = %v, want OutcomeError", out.Kind)
	}
}

func TestClient_Send_ThrottleCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, time.Second, zap.NewNop())
	out := c.Send(context.Background(), testRequest())
	if out.Kind != OutcomeError {
		t.Fatalf("outcome kind = %v, want OutcomeError", out.Kind)
	}

	var tErr *ThrottleError
	if !errors.As(out.Err, &tErr) {
		t.Fatalf("err = %v, want *ThrottleError", out.Err)
	}
	if tErr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", tErr.RetryAfter)
	}
}

func TestClient_Send_ExactlyOneRequestPerCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, time.Second, zap.NewNop())
	c.Send(context.Background(), testRequest())
	if calls != 1 {
		t.Errorf("client made %d requests, want exactly 1 (no internal retries)", calls)
	}
}
