// Package completion sends composed message sets to the upstream
// chat-completion endpoint and maps its failures to typed errors.
package completion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	turnerr "github.com/blueberrycongee/memgate/pkg/errors"
	"github.com/blueberrycongee/memgate/pkg/types"
)

const (
	// DefaultBaseURL is the default upstream API endpoint.
	DefaultBaseURL = "https://api.mammouth.ai/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "mammouth-default"

	// DefaultTimeout bounds a single completion request.
	DefaultTimeout = 30 * time.Second
)

// Config holds the upstream connection settings.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`

	// MaxTokens and Temperature are forwarded on every request when set.
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`

	// Headers are added to every upstream request.
	Headers map[string]string `yaml:"headers"`
}

// Client talks to one upstream chat-completion endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	temp       *float64
	headers    map[string]string
	httpClient *http.Client
}

// New creates a completion client from config.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		temp:      cfg.Temperature,
		headers:   cfg.Headers,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: cfg.Timeout,
		},
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete sends messages to the chat-completion endpoint and returns the
// text content of the first choice. Extra parameters are merged into the
// request body unchanged.
func (c *Client) Complete(ctx context.Context, messages []types.Message, extra map[string]json.RawMessage) (string, error) {
	url := c.baseURL + "/chat/completions"

	req := types.ChatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temp,
		Extra:       extra,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", c.mapTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", turnerr.NewConnectivityError(c.baseURL, "read response: "+err.Error())
	}

	if err := c.mapStatus(resp.StatusCode, respBody); err != nil {
		return "", err
	}

	var chatResp types.ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", turnerr.NewProtocolError(c.baseURL, "malformed response: "+err.Error())
	}
	if len(chatResp.Choices) == 0 {
		return "", turnerr.NewProtocolError(c.baseURL, "no response from model")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Models fetches the upstream model inventory. A 401 surfaces as an
// authentication error, which the setup flow uses to validate credentials.
func (c *Client) Models(ctx context.Context) ([]types.Model, error) {
	url := c.baseURL + "/models"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.mapTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, turnerr.NewConnectivityError(c.baseURL, "read response: "+err.Error())
	}

	if err := c.mapStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	var list types.ModelList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, turnerr.NewProtocolError(c.baseURL, "malformed response: "+err.Error())
	}
	return list.Data, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
}

// mapStatus converts a non-200 upstream status to a typed error.
func (c *Client) mapStatus(statusCode int, body []byte) error {
	switch {
	case statusCode == http.StatusOK:
		return nil
	case statusCode == http.StatusUnauthorized:
		return turnerr.NewAuthenticationError(c.baseURL, upstreamMessage(body, "invalid API key"))
	default:
		return turnerr.NewUpstreamError(c.baseURL, statusCode, string(body))
	}
}

// mapTransportError distinguishes the timeout budget firing from
// network-level unreachability.
func (c *Client) mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return turnerr.NewTimeoutError(c.baseURL, "request timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return turnerr.NewTimeoutError(c.baseURL, "request timed out")
	}
	return turnerr.NewConnectivityError(c.baseURL, err.Error())
}

// upstreamMessage extracts the error message from an OpenAI-style error body.
func upstreamMessage(body []byte, fallback string) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return fallback
}
