package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClient_CreateCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/calls" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key_1" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"call_123"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	res, err := c.CreateCall(context.Background(), CreateCallRequest{
		APIKey:   "key_1",
		AgentID:  "agent_1",
		CallType: "web",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.CallID != "call_123" {
		t.Fatalf("unexpected call id %q", res.CallID)
	}
}

func TestHTTPClient_CreateCall_ProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"message":"out of credits"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	_, err := c.CreateCall(context.Background(), CreateCallRequest{APIKey: "k", AgentID: "a"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusPaymentRequired || apiErr.Message != "out of credits" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestHTTPClient_FetchCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calls/call_123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"ended","duration_ms":125000}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	state, err := c.FetchCall(context.Background(), "key_1", "call_123")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if state.Status != StatusEnded {
		t.Fatalf("unexpected status %q", state.Status)
	}
	if state.DurationSeconds() != 125 {
		t.Fatalf("expected 125s, got %d", state.DurationSeconds())
	}
}

func TestHTTPClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 20*time.Millisecond)
	_, err := c.FetchCall(context.Background(), "k", "id")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("timeout must be a transport error, not APIError")
	}
}

func TestCallStateStatus_Terminal(t *testing.T) {
	if !StatusEnded.Terminal() || !StatusError.Terminal() {
		t.Fatalf("ended/error must be terminal")
	}
	if StatusInProgress.Terminal() {
		t.Fatalf("in_progress must not be terminal")
	}
}
