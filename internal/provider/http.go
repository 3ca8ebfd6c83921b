package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient talks to the voice provider's REST API.
//
// The client-level timeout is the hard deadline from config; a timed-out
// call creation is treated by callers as a failure and the slot released.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CreateCall(ctx context.Context, req CreateCallRequest) (CreateCallResult, error) {
	if req.APIKey == "" || req.AgentID == "" {
		return CreateCallResult{}, fmt.Errorf("provider: api key and agent id required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return CreateCallResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/calls", bytes.NewReader(body))
	if err != nil {
		return CreateCallResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return CreateCallResult{}, fmt.Errorf("provider: create call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CreateCallResult{}, apiError(resp)
	}

	var out CreateCallResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return CreateCallResult{}, fmt.Errorf("provider: decode create response: %w", err)
	}
	if out.CallID == "" {
		return CreateCallResult{}, fmt.Errorf("provider: create response missing call id")
	}
	return out, nil
}

func (c *HTTPClient) FetchCall(ctx context.Context, apiKey, callID string) (CallState, error) {
	if apiKey == "" || callID == "" {
		return CallState{}, fmt.Errorf("provider: api key and call id required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/calls/"+url.PathEscape(callID), nil)
	if err != nil {
		return CallState{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return CallState{}, fmt.Errorf("provider: fetch call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CallState{}, apiError(resp)
	}

	var out CallState
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return CallState{}, fmt.Errorf("provider: decode call state: %w", err)
	}
	return out, nil
}

func apiError(resp *http.Response) error {
	// Read a bounded amount; error bodies should be small.
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(raw, &body); err == nil {
		msg = body.Message
		if msg == "" {
			msg = body.Error
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
