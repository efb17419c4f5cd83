// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Generator turns a prompt into a model answer.
type Generator interface {
	Generate(ctx context.Context, systemRole, prompt string) (string, error)
}

// Chat completion defaults.
const (
	DefaultAPIBaseURL  = "https://api.openai.com/v1"
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 1.0
	DefaultTimeout     = 60 * time.Second

	maxResponseBytes = 1 << 20
)

// ChatConfig configures a ChatClient.
type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// Retries is how many times a 429 or 5xx answer is retried.
	Retries uint64
}

// ChatClient calls an OpenAI-compatible /chat/completions endpoint.
type ChatClient struct {
	cfg    ChatConfig
	client *http.Client
}

// NewChatClient creates a ChatClient. A nil httpClient uses one with cfg.Timeout.
func NewChatClient(cfg ChatConfig, httpClient *http.Client) (*ChatClient, error) {
	if cfg.APIKey == "" {
		return nil, oops.Code("PLAN_CONFIG_INVALID").Errorf("API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &ChatClient{cfg: cfg, client: httpClient}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate sends one chat completion request and returns the first choice.
func (c *ChatClient) Generate(ctx context.Context, systemRole, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemRole},
			{Role: "user", Content: prompt},
		},
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", oops.Code(CodeGenerationFailed).With("operation", "encode request").Wrap(err)
	}

	var answer string
	backoff := retry.WithMaxRetries(c.cfg.Retries, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var callErr error
		answer, callErr = c.call(ctx, body)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}

func (c *ChatClient) call(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", oops.Code(CodeGenerationFailed).With("operation", "build request").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", oops.Code(CodeGenerationFailed).With("operation", "send request").Wrap(err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", oops.Code(CodeGenerationFailed).With("operation", "read response").Wrap(err)
	}

	var parsed chatResponse
	_ = json.Unmarshal(raw, &parsed) //nolint:errcheck // status code decides below

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		statusErr := oops.Code(CodeGenerationFailed).
			With("status", resp.StatusCode).
			Errorf("chat completion failed: %s", msg)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", retry.RetryableError(statusErr)
		}
		return "", statusErr
	}

	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", oops.Code(CodeGenerationFailed).Errorf("chat completion returned no content")
	}
	return parsed.Choices[0].Message.Content, nil
}

// String describes the client without its key.
func (c *ChatClient) String() string {
	return fmt.Sprintf("ChatClient{base=%s model=%s}", c.cfg.BaseURL, c.cfg.Model)
}
