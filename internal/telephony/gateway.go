package telephony

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

	"calldesk_backend/platform/phone"
)

// Gateway is the HTTP client for the external voice gateway's REST API.
type Gateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// GatewayConfig configures the voice gateway client.
type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewGateway creates a voice gateway client.
func NewGateway(cfg GatewayConfig) *Gateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Gateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type connectResponse struct {
	CallID string `json:"call_id"`
	Error  string `json:"error,omitempty"`
}

// Connect places an outbound call. From and To are normalized to E.164 before
// they reach the wire.
func (g *Gateway) Connect(ctx context.Context, req ConnectRequest) (CallRef, error) {
	req.From = phone.NormalizeE164(req.From)
	req.To = phone.NormalizeE164(req.To)
	if req.From == "" || req.To == "" {
		return CallRef{}, fmt.Errorf("from and to numbers are required")
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return CallRef{}, fmt.Errorf("failed to marshal connect request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/calls/connect", bytes.NewReader(bodyBytes))
	if err != nil {
		return CallRef{}, fmt.Errorf("failed to create connect request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(request)
	if err != nil {
		return CallRef{}, fmt.Errorf("connect request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CallRef{}, fmt.Errorf("failed to read connect response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return CallRef{}, fmt.Errorf("gateway connect returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed connectResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return CallRef{}, fmt.Errorf("failed to decode connect response: %w", err)
	}
	if parsed.CallID == "" {
		return CallRef{}, fmt.Errorf("gateway connect returned no call id")
	}

	return CallRef{CallID: parsed.CallID}, nil
}

// CallDetails fetches the current state of a call.
func (g *Gateway) CallDetails(ctx context.Context, callID string, companyID string) (CallDetails, error) {
	endpoint := fmt.Sprintf("%s/v1/calls/%s?company_id=%s", g.baseURL, url.PathEscape(callID), url.QueryEscape(companyID))
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return CallDetails{}, fmt.Errorf("failed to create call details request: %w", err)
	}
	if g.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(request)
	if err != nil {
		return CallDetails{}, fmt.Errorf("call details request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return CallDetails{}, fmt.Errorf("gateway call details returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var details CallDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return CallDetails{}, fmt.Errorf("failed to decode call details: %w", err)
	}

	return details, nil
}

var _ Provider = (*Gateway)(nil)
