// Package aiclient provides the external model tier of the summary pipeline:
// an OpenAI-compatible chat completion client that reports failure as a plain
// miss instead of an error, so the caller can fall through to the extractive
// summarizer.
package aiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"library_backend/logging"
)

// DefaultTimeout bounds the blocking network call. Anything slower degrades
// to the extractive fallback rather than holding up the request.
const DefaultTimeout = 10 * time.Second

// Config holds configuration for the external model client.
// All values are supplied at construction; the client never reads the
// environment itself.
type Config struct {
	// Enabled gates the external tier entirely. When false, TrySummarize
	// always reports a miss without any network activity.
	Enabled bool

	// APIKey is the OpenAI or compatible API key.
	APIKey string

	// BaseURL overrides the default API endpoint. Empty keeps the
	// library default (api.openai.com).
	BaseURL string

	// Model is the model identifier sent with each request.
	Model string

	// Timeout is the per-request timeout. Zero uses DefaultTimeout.
	Timeout time.Duration

	// HTTPClient is a pre-configured HTTP client (optional). When nil,
	// one is built from Timeout.
	HTTPClient *http.Client
}

// Client calls an OpenAI-compatible backend for summaries.
type Client struct {
	config Config
	client *openai.Client
	logger *logging.Logger
}

// NewClient creates a Client from config. A disabled or credential-less
// config still yields a usable Client whose TrySummarize always misses.
//
// Example:
//
//	ai := aiclient.NewClient(aiclient.Config{
//	    Enabled: cfg.UseOpenAI,
//	    APIKey:  cfg.OpenAIAPIKey,
//	    Model:   cfg.OpenAIModel,
//	    Timeout: cfg.AITimeout,
//	}, logger)
func NewClient(config Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.HTTPClient != nil {
		clientConfig.HTTPClient = config.HTTPClient
	} else {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger.Named("aiclient"),
	}
}

// Available reports whether the external tier can be attempted at all.
func (c *Client) Available() bool {
	return c.config.Enabled && c.config.APIKey != ""
}

// TrySummarize asks the backend for a summary of text in at most
// maxSentences sentences. It never returns an error: any transport failure,
// empty response, or missing credentials yields ok=false, and the caller
// falls back to the next tier. On success, model is the identifier of the
// backend model that produced the summary.
func (c *Client) TrySummarize(ctx context.Context, text string, maxSentences int) (summary, model string, ok bool) {
	if !c.Available() {
		return "", "", false
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildSystemPrompt(maxSentences),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		Temperature: 0.3,
	})
	if err != nil {
		// Timeouts and transport errors are normal fallback triggers
		c.logger.Warnw("external summarization failed, falling back",
			"error", err.Error(),
			"model", c.config.Model)
		return "", "", false
	}

	if len(resp.Choices) == 0 {
		c.logger.Warnw("external model returned no choices", "model", c.config.Model)
		return "", "", false
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		c.logger.Warnw("external model returned empty content", "model", c.config.Model)
		return "", "", false
	}

	resolvedModel := resp.Model
	if resolvedModel == "" {
		resolvedModel = c.config.Model
	}

	return content, resolvedModel, true
}

// buildSystemPrompt renders the instruction for the requested summary length.
func buildSystemPrompt(maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return fmt.Sprintf(
		"You summarize book and chapter text for a library catalog. "+
			"Respond with a plain-text summary of at most %d sentences. "+
			"No headings, no lists, no preamble.", maxSentences)
}
