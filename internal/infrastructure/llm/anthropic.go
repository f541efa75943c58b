package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsdigest/internal/config"
	"newsdigest/internal/domain"
	"newsdigest/internal/ports"
)

// AnthropicClient implements ports.Provider backed by the Anthropic
// messages API.
type AnthropicClient struct {
	endpoint         string
	model            string
	apiKey           string
	version          string
	importancePrompt string
	insightsPrompt   string
	httpClient       *http.Client
}

var (
	_ ports.Provider          = (*AnthropicClient)(nil)
	_ ports.InsightsGenerator = (*AnthropicClient)(nil)
)

// NewAnthropicClient builds a client from configuration.
func NewAnthropicClient(cfg config.AnthropicConfig, prompts config.PromptConfig) *AnthropicClient {
	return &AnthropicClient{
		endpoint:         cfg.Endpoint,
		model:            cfg.Model,
		apiKey:           cfg.APIKey,
		version:          cfg.Version,
		importancePrompt: prompts.Importance,
		insightsPrompt:   prompts.Insights,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Name identifies the provider for registration and fallback selection.
func (c *AnthropicClient) Name() string { return "anthropic" }

// Analyze asks the model to score one item against the rubric prompt.
func (c *AnthropicClient) Analyze(ctx context.Context, item domain.NormalizedItem) (ports.Assessment, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return ports.Assessment{}, fmt.Errorf("anthropic client misconfigured")
	}

	prompt := fmt.Sprintf(c.importancePrompt, itemPrompt(item, promptBodyLimit))
	reply, err := c.message(ctx, prompt, 200)
	if err != nil {
		return ports.Assessment{}, err
	}

	return parseAssessment(reply), nil
}

// Insights asks the model for day-level takeaways from the top items.
func (c *AnthropicClient) Insights(ctx context.Context, top []domain.ScoredItem) ([]string, error) {
	prompt := fmt.Sprintf(c.insightsPrompt, topSummary(top))
	reply, err := c.message(ctx, prompt, 300)
	if err != nil {
		return nil, err
	}
	return parseInsights(reply), nil
}

func (c *AnthropicClient) message(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":      c.model,
		"max_tokens": maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal message payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", c.version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("message request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("anthropic error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode message: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("message returned no content")
	}

	return parsed.Content[0].Text, nil
}
