// Package gemini generates video summaries through the Gemini
// generateContent REST API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultBaseURL is the public Generative Language API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultModel is the model every summary is generated with.
	DefaultModel = "gemini-2.5-flash"

	statusResourceExhausted = "RESOURCE_EXHAUSTED"
)

var (
	// ErrRateLimited means the API rejected the call because a rate or
	// quota limit was exceeded.
	ErrRateLimited = errors.New("generation rate limit exceeded")

	// ErrServiceFailure covers every other failure: transport errors,
	// non-2xx answers, blocked prompts and empty completions.
	ErrServiceFailure = errors.New("generation service failure")
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Client calls one fixed model. It never retries.
type Client struct {
	http  *resty.Client
	model string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.http.SetBaseURL(strings.TrimRight(baseURL, "/"))
	}
}

// WithModel selects the model name.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// New creates a client authenticated with apiKey.
func New(apiKey string, options ...Option) *Client {
	client := &Client{
		http: resty.New().
			SetBaseURL(DefaultBaseURL).
			SetTimeout(45*time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("X-goog-api-key", apiKey),
		model: DefaultModel,
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Model returns the model name the client generates with.
func (c *Client) Model() string {
	return c.model
}

// Summarize builds the summary prompt around transcript and returns the
// first candidate's text verbatim.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	return c.Generate(ctx, BuildPrompt(transcript))
}

// Generate submits prompt as a single user turn.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("model", c.model).
		SetBody(generateRequest{
			Contents: []content{
				{Role: "user", Parts: []part{{Text: prompt}}},
			},
		}).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceFailure, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", classifyError(resp.StatusCode(), resp.Body())
	}

	var result generateResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", ErrServiceFailure, err)
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", ErrServiceFailure, result.PromptFeedback.BlockReason)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", ErrServiceFailure)
	}

	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf(
			"%w: empty completion (finish reason %q)",
			ErrServiceFailure,
			result.Candidates[0].FinishReason,
		)
	}

	return text.String(), nil
}

func classifyError(statusCode int, body []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	if statusCode == http.StatusTooManyRequests || apiErr.Error.Status == statusResourceExhausted {
		return fmt.Errorf("%w: status %d: %s", ErrRateLimited, statusCode, apiErr.Error.Message)
	}

	return fmt.Errorf("%w: status %d %s: %s", ErrServiceFailure, statusCode, apiErr.Error.Status, apiErr.Error.Message)
}
