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
	defaultOllamaHost  = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

// OllamaProvider generates questions through a local Ollama server.
type OllamaProvider struct {
	host  string
	model string
	http  *http.Client
	log   *logrus.Logger
}

func NewOllamaProvider(host, model string) *OllamaProvider {
	if host == "" {
		host = defaultOllamaHost
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaProvider{
		host:  strings.TrimRight(host, "/"),
		model: model,
		http:  &http.Client{Timeout: 120 * time.Second},
		log:   logrus.StandardLogger(),
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
}

func (p *OllamaProvider) GenerateQuestions(ctx context.Context, subject string, limit int, model string) ([]domain.Question, error) {
	if model == "" {
		model = p.model
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: buildPrompt(subject, limit)}},
	})
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("ollama chat: unexpected status %d", resp.StatusCode)
	}

	var chat ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("ollama response: %w", err)
	}

	questions, err := parseQuestions(chat.Message.Content, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("ollama response: %w", err)
	}
	p.log.WithFields(logrus.Fields{"model": model, "count": len(questions)}).Info("generated questions")
	return questions, nil
}

// Healthy probes the Ollama tags endpoint.
func (p *OllamaProvider) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode/100 == 2
}
