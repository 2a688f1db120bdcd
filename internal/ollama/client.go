// Package ollama provides a chat-completion client for the rule-synthesis
// strategies. It speaks the Ollama /api/chat JSON dialect.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"grimm.is/nirs/internal/clock"
	"grimm.is/nirs/internal/logging"
	"grimm.is/nirs/internal/metrics"
)

// DefaultAddress is the standard local Ollama endpoint.
const DefaultAddress = "http://localhost:11434"

// ErrRuleNotFound is returned when a model answer carries no <rule> tags.
var ErrRuleNotFound = fmt.Errorf("no rule found in model answer")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are the decoding parameters sent with every request. Temperature
// is pinned to 0 and the seed is fixed so replays stay deterministic for a
// given model.
type Options struct {
	Temperature float64 `json:"temperature"`
	Seed        int     `json:"seed"`
	NumCtx      int     `json:"num_ctx"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Stream   bool      `json:"stream"`
	Options  Options   `json:"options"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Message *Message `json:"message"`
}

// Config holds client configuration.
type Config struct {
	Address string
	Model   string
	NumCtx  int
	Seed    int
	Timeout time.Duration
}

// Client is an HTTP chat-completion client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a chat client for the configured endpoint.
func NewClient(cfg Config) *Client {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.NumCtx == 0 {
		cfg.NumCtx = 1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logging.WithComponent("ollama"),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Chat sends the conversation and returns the assistant's content. A
// response without an assistant message decodes to the empty string; the
// caller treats that as abstention.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:  c.cfg.Model,
		Stream: false,
		Options: Options{
			Temperature: 0,
			Seed:        c.cfg.Seed,
			NumCtx:      c.cfg.NumCtx,
		},
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Address+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	m := metrics.Get()
	start := clock.Now()
	resp, err := c.httpClient.Do(req)
	m.LLMLatency.Observe(clock.Since(start).Seconds())
	if err != nil {
		m.LLMRequests.WithLabelValues("transport_error").Inc()
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		m.LLMRequests.WithLabelValues("http_error").Inc()
		return "", fmt.Errorf("chat request: unexpected status %s", resp.Status)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		m.LLMRequests.WithLabelValues("decode_error").Inc()
		return "", fmt.Errorf("decode chat response: %w", err)
	}

	m.LLMRequests.WithLabelValues("ok").Inc()
	c.logger.Debug("chat completed", "model", c.cfg.Model, "latency", clock.Since(start))

	if decoded.Message == nil || decoded.Message.Role != "assistant" {
		return "", nil
	}
	return decoded.Message.Content, nil
}

var rulePattern = regexp.MustCompile(`(?s)<rule>(.*?)</rule>`)

// ExtractRule returns the first <rule>...</rule> payload from a model
// answer, stripped of surrounding whitespace.
func ExtractRule(answer string) (string, error) {
	match := rulePattern.FindStringSubmatch(answer)
	if match == nil {
		return "", ErrRuleNotFound
	}
	return strings.TrimSpace(match[1]), nil
}
