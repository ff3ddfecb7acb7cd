package server

import (
	"context"
	"math"

	"github.com/google/uuid"

	"quizly/internal/domain"
)

// QuestionStore abstracts how curated questions and stored results are kept
// (in-memory, Postgres, with an optional Redis answer cache in front).
type QuestionStore interface {
	ListQuestions(ctx context.Context, category string, limit int) ([]domain.Question, error)
	CorrectAnswers(ctx context.Context, ids []int) (map[int]string, error)
	Categories(ctx context.Context) ([]string, error)
	SaveResult(ctx context.Context, result domain.Result) error
	GetResult(ctx context.Context, quizID string) (domain.Result, error)
}

// QuestionGenerator produces fresh questions for a subject, typically via an
// LLM provider.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, subject string, limit int, model string) ([]domain.Question, error)
	Name() string
	Healthy(ctx context.Context) bool
}

// QuizService contains the backend quiz use cases.
type QuizService struct {
	store     QuestionStore
	generator QuestionGenerator
}

func NewQuizService(store QuestionStore, generator QuestionGenerator) *QuizService {
	return &QuizService{store: store, generator: generator}
}

// Questions returns up to limit curated questions, optionally filtered by
// category, in the order they should be presented.
func (s *QuizService) Questions(ctx context.Context, category string, limit int) ([]domain.Question, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.ListQuestions(ctx, category, limit)
}

// Generate asks the configured generator for questions about a subject.
func (s *QuizService) Generate(ctx context.Context, subject string, limit int, model string) ([]domain.Question, error) {
	if s.generator == nil {
		return nil, domain.ErrGeneratorUnavailable
	}
	if limit <= 0 {
		limit = 5
	}
	return s.generator.GenerateQuestions(ctx, subject, limit, model)
}

// Submit grades a submission and persists the result. Correct answers come
// from the store; for questions the store does not know (generated ones) the
// submitted correct_answer is trusted instead.
func (s *QuizService) Submit(ctx context.Context, submission domain.Submission) (domain.Result, error) {
	ids := make([]int, 0, len(submission.Answers))
	for _, answer := range submission.Answers {
		ids = append(ids, answer.QuestionID)
	}

	known := map[int]string{}
	if len(ids) > 0 {
		var err error
		known, err = s.store.CorrectAnswers(ctx, ids)
		if err != nil {
			return domain.Result{}, err
		}
	}

	correctCount := 0
	details := make([]domain.AnswerDetail, 0, len(submission.Answers))
	for _, answer := range submission.Answers {
		correctAnswer := known[answer.QuestionID]
		if correctAnswer == "" {
			correctAnswer = answer.CorrectAnswer
		}
		isCorrect := correctAnswer != "" && correctAnswer == answer.SelectedAnswer
		if isCorrect {
			correctCount++
		}
		details = append(details, domain.AnswerDetail{
			QuestionID:     answer.QuestionID,
			SelectedAnswer: answer.SelectedAnswer,
			CorrectAnswer:  correctAnswer,
			IsCorrect:      isCorrect,
		})
	}

	total := len(submission.Answers)
	percentage := 0.0
	if total > 0 {
		percentage = float64(correctCount) / float64(total) * 100
	}
	result := domain.Result{
		QuizID:          uuid.NewString(),
		TotalQuestions:  total,
		CorrectAnswers:  correctCount,
		ScorePercentage: roundTo(percentage, 2),
		Answers:         details,
	}

	if err := s.store.SaveResult(ctx, result); err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

// Result fetches a stored quiz result by ID.
func (s *QuizService) Result(ctx context.Context, quizID string) (domain.Result, error) {
	return s.store.GetResult(ctx, quizID)
}

// Categories lists the distinct question categories in the store.
func (s *QuizService) Categories(ctx context.Context) ([]string, error) {
	return s.store.Categories(ctx)
}

// GeneratorHealth probes the generator, reporting its name and availability.
func (s *QuizService) GeneratorHealth(ctx context.Context) (string, bool) {
	if s.generator == nil {
		return "", false
	}
	return s.generator.Name(), s.generator.Healthy(ctx)
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
