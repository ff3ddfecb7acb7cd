// Package review joins a graded quiz result with the question set it was
// answered against. The join is keyed on question ID and ordered by the
// question set's presentation order; the grader's response order is never
// trusted.
package review

import (
	"fmt"
	"io"
	"math"
	"sort"

	"quizly/internal/domain"
)

// unknownText is rendered when an option ID cannot be resolved.
const unknownText = "Unknown"

// Row is one rendered review entry. Number restarts at 1 over the surviving
// rows, so skipped results never leave gaps.
type Row struct {
	Number         int
	Question       domain.Question
	SelectedAnswer string
	CorrectAnswer  string
	IsCorrect      bool
}

// Build inner-joins result answers with the question set. Answers whose
// question ID is not in the set are dropped; survivors are ordered by the
// question's index in the set and renumbered from 1.
func Build(result domain.Result, questions []domain.Question) []Row {
	position := make(map[int]int, len(questions))
	for i, q := range questions {
		position[q.ID] = i
	}

	type joined struct {
		pos    int
		detail domain.AnswerDetail
	}
	matched := make([]joined, 0, len(result.Answers))
	for _, detail := range result.Answers {
		pos, ok := position[detail.QuestionID]
		if !ok {
			continue
		}
		matched = append(matched, joined{pos: pos, detail: detail})
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].pos < matched[j].pos })

	rows := make([]Row, 0, len(matched))
	for i, m := range matched {
		question := questions[m.pos]
		rows = append(rows, Row{
			Number:         i + 1,
			Question:       question,
			SelectedAnswer: optionText(question, m.detail.SelectedAnswer),
			CorrectAnswer:  optionText(question, m.detail.CorrectAnswer),
			IsCorrect:      m.detail.IsCorrect,
		})
	}
	return rows
}

func optionText(q domain.Question, optionID string) string {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return opt.Text
		}
	}
	return unknownText
}

// ScoreMessage picks the summary line for a percentage score.
func ScoreMessage(scorePercentage float64) string {
	switch {
	case scorePercentage >= 90:
		return "Excellent! You really know your stuff."
	case scorePercentage >= 70:
		return "Great job! You're getting there."
	case scorePercentage >= 50:
		return "Good effort. A little more practice will help."
	default:
		return "Keep studying. You'll improve with practice."
	}
}

// Render writes the full review (rows plus summary) as plain text.
func Render(w io.Writer, result domain.Result, questions []domain.Question) {
	for _, row := range Build(result, questions) {
		glyph := "✓"
		if !row.IsCorrect {
			glyph = "✗"
		}
		fmt.Fprintf(w, "Q%d: %s\n", row.Number, row.Question.Text)
		fmt.Fprintf(w, "  Your answer: %s %s\n", row.SelectedAnswer, glyph)
		if !row.IsCorrect {
			fmt.Fprintf(w, "  Correct answer: %s\n", row.CorrectAnswer)
		}
	}
	fmt.Fprintf(w, "\nScore: %d/%d (%d%%)\n", result.CorrectAnswers, result.TotalQuestions, int(math.Round(result.ScorePercentage)))
	fmt.Fprintln(w, ScoreMessage(result.ScorePercentage))
}
