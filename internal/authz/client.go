package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxpay/gateway/internal/domain"
)

const defaultTimeout = 15 * time.Second

// AuthorizeRequest is the action submitted for authorization.
type AuthorizeRequest struct {
	AgentID      string          `json:"agent_id"`
	ActionType   string          `json:"action_type"`
	TargetSystem string          `json:"target_system"`
	Payload      json.RawMessage `json:"payload"`
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client is the HTTP client for the authorization service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new authorization service client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authorize submits the action and returns the normalized outcome.
// Transport-level failures surface as errors; they are never converted to
// a DENY here, since the normalizer only classifies bodies it received.
func (c *Client) Authorize(ctx context.Context, req *AuthorizeRequest) (domain.AuthorizationOutcome, error) {
	var zero domain.AuthorizationOutcome

	body, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/authorize", bytes.NewReader(body))
	if err != nil {
		return zero, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return zero, fmt.Errorf("authorization request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("failed to read response: %w", err)
	}

	return Normalize(resp.StatusCode, respBody), nil
}

// receiptWire is the fetch-by-id response shape. State may arrive under
// either "state" or "status".
type receiptWire struct {
	State          string `json:"state"`
	Status         string `json:"status"`
	SignatureValid bool   `json:"signature_valid"`
	ExecutedAt     string `json:"executed_at"`
}

// FetchReceipt fetches the audit snapshot for an executed receipt. The
// result is consulted only for audit display, never for the decision.
func (c *Client) FetchReceipt(ctx context.Context, receiptID string) (*domain.AuditSnapshot, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/receipts/"+receiptID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("receipt fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("receipt fetch returned status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var wire receiptWire
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, fmt.Errorf("failed to unmarshal receipt: %w", err)
	}

	snapshot := &domain.AuditSnapshot{
		State:          firstNonEmpty(wire.State, wire.Status),
		SignatureValid: wire.SignatureValid,
	}
	if wire.ExecutedAt != "" {
		if ts, err := time.Parse(time.RFC3339, wire.ExecutedAt); err == nil {
			snapshot.ExecutedAt = ts
		}
	}
	return snapshot, nil
}
