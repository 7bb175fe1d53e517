// Package llm provides chat-completion providers for headline ranking.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/abhij1306/digestbot/internal/config"
	"github.com/abhij1306/digestbot/internal/text"
)

// Provider is the interface for LLM providers.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
}

const (
	groqBaseURL   = "https://api.groq.com/openai/v1"
	openAIBaseURL = "https://api.openai.com/v1"
)

// ChatProvider talks to an OpenAI-compatible chat-completions endpoint.
// Groq exposes the same wire format at a different base URL.
type ChatProvider struct {
	Name    string
	Model   string
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewGroqProvider creates a provider for the Groq API, reading the key from
// the named environment variable.
func NewGroqProvider(model, apiKeyEnv string) *ChatProvider {
	return &ChatProvider{
		Name:    "groq",
		Model:   model,
		BaseURL: groqBaseURL,
		APIKey:  os.Getenv(apiKeyEnv),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewOpenAIProvider creates a provider for the OpenAI API.
func NewOpenAIProvider(model, apiKeyEnv string) *ChatProvider {
	return &ChatProvider{
		Name:    "openai",
		Model:   model,
		BaseURL: openAIBaseURL,
		APIKey:  os.Getenv(apiKeyEnv),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured checks if the API key is set.
func (p *ChatProvider) IsConfigured() bool {
	return p.APIKey != ""
}

// Generate sends a single-message prompt and returns the reply text.
func (p *ChatProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("%s API key not configured", p.Name)
	}

	body := map[string]any{
		"model": p.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": 0.0,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", p.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%s API returned %d: %s", p.Name, resp.StatusCode, text.Truncate(string(respBody), 200))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in %s response", p.Name)
	}

	return result.Choices[0].Message.Content, nil
}

// CreateProvider selects a provider based on configuration, falling back
// from Groq to OpenAI. Returns nil when no provider has a key, in which
// case ranking is skipped entirely.
func CreateProvider(cfg config.Ranking) Provider {
	if strings.ToLower(cfg.Provider) != "openai" {
		p := NewGroqProvider(cfg.GroqModel, cfg.GroqAPIKeyEnv)
		if p.IsConfigured() {
			log.Printf("Using Groq with model: %s", cfg.GroqModel)
			return p
		}
	}

	p := NewOpenAIProvider(cfg.OpenAIModel, cfg.OpenAIAPIKeyEnv)
	if p.IsConfigured() {
		log.Printf("Using OpenAI with model: %s", cfg.OpenAIModel)
		return p
	}

	log.Println("No LLM provider configured; digests will be unranked")
	return nil
}
