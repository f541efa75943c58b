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

const promptBodyLimit = 1000

// OpenAIClient implements ports.Provider backed by OpenAI-compatible
// chat-completion APIs.
type OpenAIClient struct {
	endpoint         string
	model            string
	apiKey           string
	importancePrompt string
	insightsPrompt   string
	httpClient       *http.Client
}

var (
	_ ports.Provider          = (*OpenAIClient)(nil)
	_ ports.InsightsGenerator = (*OpenAIClient)(nil)
)

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.OpenAIConfig, prompts config.PromptConfig) *OpenAIClient {
	return &OpenAIClient{
		endpoint:         cfg.Endpoint,
		model:            cfg.Model,
		apiKey:           cfg.APIKey,
		importancePrompt: prompts.Importance,
		insightsPrompt:   prompts.Insights,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Name identifies the provider for registration and fallback selection.
func (c *OpenAIClient) Name() string { return "openai" }

// Analyze asks the model to score one item against the rubric prompt.
func (c *OpenAIClient) Analyze(ctx context.Context, item domain.NormalizedItem) (ports.Assessment, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return ports.Assessment{}, fmt.Errorf("openai client misconfigured")
	}

	prompt := fmt.Sprintf(c.importancePrompt, itemPrompt(item, promptBodyLimit))
	reply, err := c.complete(ctx, prompt, 200, 0.3)
	if err != nil {
		return ports.Assessment{}, err
	}

	return parseAssessment(reply), nil
}

// Insights asks the model for day-level takeaways from the top items.
func (c *OpenAIClient) Insights(ctx context.Context, top []domain.ScoredItem) ([]string, error) {
	prompt := fmt.Sprintf(c.insightsPrompt, topSummary(top))
	reply, err := c.complete(ctx, prompt, 300, 0.4)
	if err != nil {
		return nil, err
	}
	return parseInsights(reply), nil
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
