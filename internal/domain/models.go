package domain

// Option represents one answer choice for a question. IDs are short stable
// tokens ("a".."d" in practice) unique within their question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models an MCQ question as served by the API. Options keep the
// server-provided order; CorrectAnswer is the ID of one of them.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"text"`
	Options       []Option `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Category      string   `json:"category"`
}

// Source selects where a question set comes from.
type Source string

const (
	// SourceCurated loads questions from the curated question bank.
	SourceCurated Source = "curated"
	// SourceGenerated asks the configured LLM provider for fresh questions.
	SourceGenerated Source = "generated"
)

// FetchRequest describes one question-set load.
type FetchRequest struct {
	Topic  string
	Source Source
	Model  string
	Limit  int
}

// AnswerRecord is the triple captured at the moment a single answer is
// submitted. CorrectAnswer rides along so the server can score questions it
// has no record of (generated ones).
type AnswerRecord struct {
	QuestionID     int    `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
	CorrectAnswer  string `json:"correct_answer"`
}

// Submission is the body of POST /api/quiz/submit.
type Submission struct {
	Answers []AnswerRecord `json:"answers"`
}

// AnswerDetail is one graded answer inside a Result. The order of details in
// Result.Answers is not trusted by clients.
type AnswerDetail struct {
	QuestionID     int    `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
	CorrectAnswer  string `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
}

// Result is the graded outcome of one quiz submission.
type Result struct {
	QuizID          string         `json:"quiz_id,omitempty"`
	TotalQuestions  int            `json:"total_questions"`
	CorrectAnswers  int            `json:"correct_answers"`
	ScorePercentage float64        `json:"score_percentage"`
	Answers         []AnswerDetail `json:"answers"`
}
