// Package llm generates quiz questions through chat-completion providers.
// Providers return plain JSON arrays of questions; parsing tolerates the
// usual model quirks (code fences, prose around the array).
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"quizly/internal/domain"
)

// Provider generates questions for a subject. An empty model falls back to
// the provider's configured default.
type Provider interface {
	GenerateQuestions(ctx context.Context, subject string, limit int, model string) ([]domain.Question, error)
	Name() string
	Healthy(ctx context.Context) bool
}

// Config carries provider connection settings.
type Config struct {
	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// NewProvider builds the provider named by providerType ("ollama" or
// "openai") with model as its default model.
func NewProvider(providerType, model string, cfg Config) (Provider, error) {
	switch providerType {
	case "", "ollama":
		return NewOllamaProvider(cfg.OllamaHost, model), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("openai api key not configured")
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", providerType)
	}
}

func buildPrompt(subject string, limit int) string {
	return fmt.Sprintf(`Generate %d multiple-choice quiz questions about %s.
Each question should have exactly 4 answer options labeled a, b, c, d.
Format your response as a JSON array where each question has this structure:
{
    "text": "question text here?",
    "options": [
        {"id": "a", "text": "option A text"},
        {"id": "b", "text": "option B text"},
        {"id": "c", "text": "option C text"},
        {"id": "d", "text": "option D text"}
    ],
    "correct_answer": "a",
    "category": "%s"
}

Return only the JSON array, no additional text.`, limit, subject, strings.ToLower(subject))
}

// parseQuestions decodes the model's reply into questions. Generated IDs
// start at 1000 so they never collide with the curated question bank.
func parseQuestions(content, subject string, limit int) ([]domain.Question, error) {
	clean := strings.TrimSpace(content)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.Trim(clean, "`")

	var raw []domain.Question
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		start := strings.Index(clean, "[")
		end := strings.LastIndex(clean, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("response is not a JSON array: %w", err)
		}
		if err := json.Unmarshal([]byte(clean[start:end+1]), &raw); err != nil {
			return nil, fmt.Errorf("response is not a JSON array: %w", err)
		}
	}

	questions := make([]domain.Question, 0, limit)
	for _, q := range raw {
		if len(questions) == limit {
			break
		}
		if q.Text == "" || len(q.Options) < 2 || q.CorrectAnswer == "" {
			continue
		}
		q.ID = 1000 + len(questions)
		q.Category = strings.ToLower(subject)
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, errors.New("no valid questions generated")
	}
	return questions, nil
}
