package domain

import "errors"

var (
	// ErrEmptyQuestionSet is returned when a fetch succeeds but carries zero questions.
	ErrEmptyQuestionSet = errors.New("no questions in response")
	// ErrFetchFailed indicates the curated question bank could not be reached.
	ErrFetchFailed = errors.New("question fetch failed")
	// ErrGeneratorUnavailable indicates the AI question source failed.
	ErrGeneratorUnavailable = errors.New("question generator unavailable")
	// ErrSubmitFailed indicates the answer submission did not complete.
	ErrSubmitFailed = errors.New("quiz submission failed")
	// ErrQuestionNotFound indicates a question ID is not in the store.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuizNotFound indicates a stored quiz result ID is unknown.
	ErrQuizNotFound = errors.New("quiz not found")
)

// User-facing messages surfaced through the session error state. The session
// never exposes raw transport errors to the UI.
const (
	MsgFetchFailed          = "Failed to load questions. Please try again later."
	MsgGeneratorUnavailable = "Failed to generate questions. The AI generator may be unavailable; try the curated question bank instead."
	MsgEmptyQuestionSet     = "No questions available."
	MsgSubmitFailed         = "Failed to submit quiz. Please try again."
)

// ErrorMessage maps a fetch or submit error to its user-facing message.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyQuestionSet):
		return MsgEmptyQuestionSet
	case errors.Is(err, ErrGeneratorUnavailable):
		return MsgGeneratorUnavailable
	case errors.Is(err, ErrSubmitFailed):
		return MsgSubmitFailed
	default:
		return MsgFetchFailed
	}
}
