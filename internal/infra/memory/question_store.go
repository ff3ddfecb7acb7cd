package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"quizly/internal/domain"
)

// QuestionStore is an in-memory implementation of server.QuestionStore,
// useful for development and tests when no Postgres is configured.
type QuestionStore struct {
	mu        sync.RWMutex
	questions []domain.Question
	results   map[string]domain.Result
	rnd       *rand.Rand
}

func NewQuestionStore(questions []domain.Question) *QuestionStore {
	return &QuestionStore{
		questions: questions,
		results:   make(map[string]domain.Result),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ListQuestions returns up to limit questions in random order, optionally
// filtered by category.
func (s *QuestionStore) ListQuestions(_ context.Context, category string, limit int) ([]domain.Question, error) {
	s.mu.RLock()
	matched := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if category == "" || q.Category == category {
			matched = append(matched, q)
		}
	}
	s.mu.RUnlock()

	s.mu.Lock()
	s.rnd.Shuffle(len(matched), func(i, j int) {
		matched[i], matched[j] = matched[j], matched[i]
	})
	s.mu.Unlock()

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *QuestionStore) CorrectAnswers(_ context.Context, ids []int) (map[int]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	answers := make(map[int]string, len(ids))
	for _, q := range s.questions {
		if _, ok := wanted[q.ID]; ok {
			answers[q.ID] = q.CorrectAnswer
		}
	}
	return answers, nil
}

func (s *QuestionStore) Categories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, q := range s.questions {
		if _, ok := seen[q.Category]; ok {
			continue
		}
		seen[q.Category] = struct{}{}
		categories = append(categories, q.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

func (s *QuestionStore) SaveResult(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.QuizID] = result
	return nil
}

func (s *QuestionStore) GetResult(_ context.Context, quizID string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[quizID]
	if !ok {
		return domain.Result{}, domain.ErrQuizNotFound
	}
	return result, nil
}
