package narrate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxpay/gateway/internal/domain"
)

const defaultTimeout = 30 * time.Second

// SynthesisResult is one synthesized utterance. Alignment is nil when the
// provider supplied no word timestamps.
type SynthesisResult struct {
	Audio      []byte
	DurationMs int
	Alignment  *domain.AlignmentData
}

// Synthesizer converts text to speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*SynthesisResult, error)
}

// ClientOption configures the synthesis client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client is the HTTP client for the speech synthesis service.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	voice      string
	httpClient *http.Client
}

// NewClient creates a synthesis client for a fixed model and voice.
func NewClient(baseURL, apiKey, model, voice string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		voice:      voice,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the synthesis model identifier.
func (c *Client) Model() string { return c.model }

// Voice returns the voice identifier.
func (c *Client) Voice() string { return c.voice }

type synthesisRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
	ModelID string `json:"model_id"`
}

type wireAlignment struct {
	Words          []string `json:"words"`
	StartOffsetsMs []int    `json:"start_offsets_ms"`
}

type synthesisResponse struct {
	AudioBase64 string         `json:"audio_base64"`
	DurationMs  int            `json:"duration_ms"`
	Alignment   *wireAlignment `json:"alignment"`
}

// Synthesize sends text to the synthesis service and returns raw audio
// plus the provider's word timestamps when it supplies them.
func (c *Client) Synthesize(ctx context.Context, text string) (*SynthesisResult, error) {
	body, err := json.Marshal(&synthesisRequest{
		Text:    text,
		VoiceID: c.voice,
		ModelID: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis returned status %d", resp.StatusCode)
	}

	var wire synthesisResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(wire.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}

	result := &SynthesisResult{Audio: audio, DurationMs: wire.DurationMs}
	if wire.Alignment != nil && len(wire.Alignment.Words) == len(wire.Alignment.StartOffsetsMs) && len(wire.Alignment.Words) > 0 {
		result.Alignment = &domain.AlignmentData{
			Words:          wire.Alignment.Words,
			StartOffsetsMs: wire.Alignment.StartOffsetsMs,
		}
	}
	return result, nil
}
