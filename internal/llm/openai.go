package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"quizly/internal/domain"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIProvider generates questions through the OpenAI chat completions API
// (or any compatible endpoint via a custom base URL).
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	log     *logrus.Logger
}

func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: 120 * time.Second},
		log:     logrus.StandardLogger(),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

type openAIChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *OpenAIProvider) GenerateQuestions(ctx context.Context, subject string, limit int, model string) ([]domain.Question, error) {
	if model == "" {
		model = p.model
	}

	body, err := json.Marshal(openAIChatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: buildPrompt(subject, limit)}},
	})
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("openai chat: unexpected status %d", resp.StatusCode)
	}

	var chat openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("openai response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("openai response: no choices returned")
	}

	questions, err := parseQuestions(chat.Choices[0].Message.Content, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("openai response: %w", err)
	}
	p.log.WithFields(logrus.Fields{"model": model, "count": len(questions)}).Info("generated questions")
	return questions, nil
}

// Healthy checks whether the models endpoint answers with the configured key.
func (p *OpenAIProvider) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	resp, err := p.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode/100 == 2
}
