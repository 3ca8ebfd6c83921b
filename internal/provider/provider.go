package provider

import (
	"context"
	"fmt"
)

// CallProvider is the provider-agnostic interface to the external voice API.
//
// Rules:
// - No provider HTTP details outside this package.
// - Credentials are opaque per-widget strings passed through by callers.
// - Both operations are blocking network calls and must honor ctx.
type CallProvider interface {
	// CreateCall registers a call and returns the provider-assigned call ID.
	CreateCall(ctx context.Context, req CreateCallRequest) (CreateCallResult, error)

	// FetchCall returns the current state of a call by provider ID.
	FetchCall(ctx context.Context, apiKey, callID string) (CallState, error)
}

type CreateCallRequest struct {
	// APIKey authenticates the widget owner's provider account.
	APIKey string `json:"-"`

	// AgentID selects the voice agent handling the call.
	AgentID string `json:"agent_id"`

	CallType string `json:"call_type"`

	// PhoneNumber is the dial target for outbound phone calls; empty for web.
	PhoneNumber string `json:"phone_number,omitempty"`

	// Metadata is optional JSON passed through to the provider.
	Metadata string `json:"metadata,omitempty"`
}

type CreateCallResult struct {
	CallID string `json:"id"`
}

// CallState is the provider's view of a call.
type CallState struct {
	Status CallStateStatus `json:"status"`

	// DurationMS is meaningful only when Status is terminal with a known
	// duration; the provider may omit it on error states.
	DurationMS int64 `json:"duration_ms"`
}

type CallStateStatus string

const (
	StatusInProgress CallStateStatus = "in_progress"
	StatusEnded      CallStateStatus = "ended"
	StatusError      CallStateStatus = "error"
)

// Terminal reports whether the provider considers the call finished.
func (s CallStateStatus) Terminal() bool {
	return s == StatusEnded || s == StatusError
}

// DurationSeconds converts the provider's milliseconds to whole seconds.
func (c CallState) DurationSeconds() int {
	return int(c.DurationMS / 1000)
}

// APIError is a structured provider rejection (non-2xx with a body), as
// opposed to a transport failure (timeout, connection refused) which
// surfaces as a plain error.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider: status %d: %s", e.StatusCode, e.Message)
}
