// Package api is the HTTP client for the quiz backend: one fetch per question
// set, one submit per finished session.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"quizly/internal/domain"
)

// DefaultBaseURL is used when no API base is configured.
const DefaultBaseURL = "http://localhost:8000"

// Client talks to the quiz API.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient builds a client for the given base URL ("" means DefaultBaseURL).
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchQuestions loads one question set. The response order is preserved; it
// becomes the presentation order for the whole session.
func (c *Client) FetchQuestions(ctx context.Context, req domain.FetchRequest) ([]domain.Question, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	var endpoint string
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if req.Source == domain.SourceGenerated {
		endpoint = c.baseURL + "/api/questions/ai"
		query.Set("subject", req.Topic)
		if req.Model != "" {
			query.Set("model", req.Model)
		}
	} else {
		endpoint = c.baseURL + "/api/questions"
		query.Set("category", req.Topic)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, c.fetchErr(req.Source, err)
	}

	c.log.WithFields(logrus.Fields{"source": req.Source, "topic": req.Topic}).Debug("fetching questions")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.fetchErr(req.Source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, c.fetchErr(req.Source, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var questions []domain.Question
	if err := json.NewDecoder(resp.Body).Decode(&questions); err != nil {
		return nil, c.fetchErr(req.Source, err)
	}
	return questions, nil
}

func (c *Client) fetchErr(source domain.Source, err error) error {
	if source == domain.SourceGenerated {
		return fmt.Errorf("%w: %v", domain.ErrGeneratorUnavailable, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
}

// SubmitQuiz posts the final answer list and returns the graded result.
func (c *Client) SubmitQuiz(ctx context.Context, answers []domain.AnswerRecord) (domain.Result, error) {
	body, err := json.Marshal(domain.Submission{Answers: answers})
	if err != nil {
		return domain.Result{}, fmt.Errorf("%w: %v", domain.ErrSubmitFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/quiz/submit", bytes.NewReader(body))
	if err != nil {
		return domain.Result{}, fmt.Errorf("%w: %v", domain.ErrSubmitFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.log.WithField("answers", len(answers)).Debug("submitting quiz")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.Result{}, fmt.Errorf("%w: %v", domain.ErrSubmitFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return domain.Result{}, fmt.Errorf("%w: unexpected status %d", domain.ErrSubmitFailed, resp.StatusCode)
	}

	var result domain.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.Result{}, fmt.Errorf("%w: %v", domain.ErrSubmitFailed, err)
	}
	return result, nil
}
