package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizly/internal/domain"
)

// QuestionStore keeps questions and graded quiz sessions in Postgres.
// Question options are stored as JSONB.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) ListQuestions(ctx context.Context, category string, limit int) ([]domain.Question, error) {
	query := `SELECT id, text, options, correct_answer, category FROM questions ORDER BY RANDOM() LIMIT $1`
	args := []interface{}{limit}
	if category != "" {
		query = `SELECT id, text, options, correct_answer, category FROM questions WHERE category=$1 ORDER BY RANDOM() LIMIT $2`
		args = []interface{}{category, limit}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0, limit)
	for rows.Next() {
		var (
			q       domain.Question
			rawOpts []byte
		)
		if err := rows.Scan(&q.ID, &q.Text, &rawOpts, &q.CorrectAnswer, &q.Category); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(rawOpts, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *QuestionStore) CorrectAnswers(ctx context.Context, ids []int) (map[int]string, error) {
	int64IDs := make([]int64, len(ids))
	for i, id := range ids {
		int64IDs[i] = int64(id)
	}

	rows, err := s.pool.Query(ctx, `SELECT id, correct_answer FROM questions WHERE id = ANY($1)`, int64IDs)
	if err != nil {
		return nil, fmt.Errorf("correct answers: %w", err)
	}
	defer rows.Close()

	answers := make(map[int]string, len(ids))
	for rows.Next() {
		var (
			id     int
			answer string
		)
		if err := rows.Scan(&id, &answer); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers[id] = answer
	}
	return answers, rows.Err()
}

func (s *QuestionStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT category FROM questions ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (s *QuestionStore) SaveResult(ctx context.Context, result domain.Result) error {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_sessions (id, total_questions, correct_answers, score_percentage, created_at, answers)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		result.QuizID, result.TotalQuestions, result.CorrectAnswers, result.ScorePercentage, time.Now().UTC(), answers)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *QuestionStore) GetResult(ctx context.Context, quizID string) (domain.Result, error) {
	var (
		result     domain.Result
		rawAnswers []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, total_questions, correct_answers, score_percentage, answers FROM quiz_sessions WHERE id=$1`,
		quizID).Scan(&result.QuizID, &result.TotalQuestions, &result.CorrectAnswers, &result.ScorePercentage, &rawAnswers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Result{}, domain.ErrQuizNotFound
		}
		return domain.Result{}, fmt.Errorf("get result: %w", err)
	}
	if err := json.Unmarshal(rawAnswers, &result.Answers); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	return result, nil
}
