package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"quizly/internal/domain"
	"quizly/internal/session"
)

type fakeClient struct {
	mu          sync.Mutex
	questions   []domain.Question
	fetchErr    error
	fetchCalls  int
	fetchGate   chan struct{} // when set, fetch blocks until closed
	lastRequest domain.FetchRequest

	result      domain.Result
	submitErr   error
	submitCalls int
	gotAnswers  []domain.AnswerRecord
}

func (f *fakeClient) FetchQuestions(_ context.Context, req domain.FetchRequest) ([]domain.Question, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.lastRequest = req
	gate := f.fetchGate
	questions, err := f.questions, f.fetchErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return questions, err
}

func (f *fakeClient) SubmitQuiz(_ context.Context, answers []domain.AnswerRecord) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	f.gotAnswers = append([]domain.AnswerRecord(nil), answers...)
	return f.result, f.submitErr
}

func (f *fakeClient) stats() (fetches, submits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.submitCalls
}

func twoQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:   1,
			Text: "2+2?",
			Options: []domain.Option{
				{ID: "a", Text: "3"},
				{ID: "b", Text: "4"},
			},
			CorrectAnswer: "b",
			Category:      "math",
		},
		{
			ID:   2,
			Text: "Cap of France?",
			Options: []domain.Option{
				{ID: "a", Text: "Paris"},
				{ID: "b", Text: "Rome"},
			},
			CorrectAnswer: "a",
			Category:      "geography",
		},
	}
}

func newTestController(client *fakeClient) *session.Controller {
	return session.New(client, session.Options{FeedbackDuration: 10 * time.Millisecond})
}

func waitFor(t *testing.T, ctrl *session.Controller, cond func(session.State) bool) session.State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state := ctrl.State()
		if cond(state) {
			return state
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached, last state: %+v", ctrl.State())
	return session.State{}
}

func waitForPhase(t *testing.T, ctrl *session.Controller, phase session.Phase) session.State {
	t.Helper()
	return waitFor(t, ctrl, func(s session.State) bool { return s.Phase == phase })
}

func TestFullRunRecordsAnswersInPresentationOrder(t *testing.T) {
	client := &fakeClient{
		questions: twoQuestions(),
		result: domain.Result{
			TotalQuestions:  2,
			CorrectAnswers:  2,
			ScorePercentage: 100,
			// Grader returns answers in reversed order; clients must not care.
			Answers: []domain.AnswerDetail{
				{QuestionID: 2, SelectedAnswer: "a", CorrectAnswer: "a", IsCorrect: true},
				{QuestionID: 1, SelectedAnswer: "b", CorrectAnswer: "b", IsCorrect: true},
			},
		},
	}
	ctrl := newTestController(client)
	defer ctrl.Close()

	ctrl.Start(context.Background(), "math", domain.SourceCurated, "")
	waitForPhase(t, ctrl, session.PhaseInProgress)

	ctrl.Select("b")
	if correct, ok := ctrl.Submit(); !ok || !correct {
		t.Fatalf("expected correct submit, got correct=%v ok=%v", correct, ok)
	}

	waitFor(t, ctrl, func(s session.State) bool {
		return s.Phase == session.PhaseInProgress && s.Index == 1 && !s.FeedbackVisible
	})

	ctrl.Select("a")
	if correct, ok := ctrl.Submit(); !ok || !correct {
		t.Fatalf("expected correct submit, got correct=%v ok=%v", correct, ok)
	}

	final := waitForPhase(t, ctrl, session.PhaseComplete)

	want := []domain.AnswerRecord{
		{QuestionID: 1, SelectedAnswer: "b", CorrectAnswer: "b"},
		{QuestionID: 2, SelectedAnswer: "a", CorrectAnswer: "a"},
	}
	client.mu.Lock()
	got := client.gotAnswers
	client.mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("expected %d answers, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("answer %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
	if _, submits := client.stats(); submits != 1 {
		t.Fatalf("expected exactly one submission, got %d", submits)
	}
	if final.Result == nil || final.Result.CorrectAnswers != 2 {
		t.Fatalf("expected result with 2 correct, got %+v", final.Result)
	}
}

func TestRecordedIDsMatchQuestionOrder(t *testing.T) {
	client := &fakeClient{questions: twoQuestions()}
	ctrl := newTestController(client)
	defer ctrl.Close()

	ctrl.Start(context.Background(), "math", domain.SourceCurated, "")
	waitForPhase(t, ctrl, session.PhaseInProgress)

	for i := 0; i < 2; i++ {
		state := waitFor(t, ctrl, func(s session.State) bool {
			return s.Phase == session.PhaseInProgress && s.Index == i && !s.FeedbackVisible
		})
		question, _ := state.Current()
		ctrl.Select(question.Options[0].ID)
		ctrl.Submit()

		state = ctrl.State()
		if len(state.Recorded) != i+1 {
			t.Fatalf("expected %d recorded answers during feedback, got %d", i+1, len(state.Recorded))
		}
		if state.Recorded[i].QuestionID != state.Questions[i].ID {
			t.Fatalf("recorded[%d].QuestionID = %d, want %d", i, state.Recorded[i].QuestionID, state.Questions[i].ID)
		}
	}
}

func TestOnlyFinalSelectionIsRecorded(t *testing.T) {
	client := &fakeClient{questions: twoQuestions()}
	ctrl := newTestController(client)
	defer ctrl.Close()

	ctrl.Start(context.Background(), "math", domain.SourceCurated, "")
	waitForPhase(t, ctrl, session.PhaseInProgress)

	ctrl.Select("a")
	ctrl.Select("b")
	ctrl.Submit()

	state := ctrl.State()
	if state.Recorded[0].SelectedAnswer != "b" {
		t.Fatalf("expected last selection recorded, got %q", state.Recorded[0].SelectedAnswer)
	}

	// Selections during feedback are ignored.
	ctrl.Select("a")
	if got := ctrl.State().Selection; got != "b" {
		t.Fatalf("expected selection unchanged during feedback, got %q", got)
	}
}

func TestSubmitRequiresSelection(t *testing.T) {
	client := &fakeClient{questions: twoQuestions()}
	ctrl := newTestController(client)
	defer ctrl.Close()

	ctrl.Start(context.Background(), "math", domain.SourceCurated, "")
	waitForPhase(t, ctrl, session.PhaseInProgress)

	if _, ok := ctrl.Submit(); ok {
		t.Fatalf("expected submit without selection to be rejected")
	}
	if state := ctrl.State(); len(state.Recorded) != 0 || state.FeedbackVisible {
		t.Fatalf("expected state untouched, got %+v", state)
	}
}

func TestDoubleSubmitSchedulesOneAdvance(t *testing.T) {
	client := &fakeClient{questions: twoQuestions()}
	ctrl := newTestController(client)
	defer ctrl.Close()

	ctrl.Start(context.Background(), "math", domain.SourceCurated, "")
	waitForPhase(t, ctrl, session.PhaseInProgress)

	ctrl.Select("b")
	if _, ok := ctrl.Submit(); !ok {
		t.Fatalf("first submit rejected")
	}
	if _, ok := ctrl.Submit(); ok {
		t.Fatalf("second submit should be rejected while feedback is visible")
	}

	waitFor(t, ctrl, func(s session.State) bool { return s.Index == 1 })
	time.Sleep(30 * time.Millisecond)
	if state := ctrl.State(); state.Phase != session.PhaseInProgress || state.Index != 1 {
		t.Fatalf("expected exactly one advance, got %+v", state)
	}
	if len(ctrl.State().Recorded) != 1 {
		t.Fatalf("expected one recorded answer, got %d", len(ctrl.State().Recorded))
	}
}

func TestEmptyQuestionSet(t *testing.T) {
	client := &fakeClient{questions: nil}
	ctrl := newTestController(client)
	defer ctrl.Close()

	ctrl.Start(context.Background(), "math", domain.SourceCurated, "")
	state := waitForPhase(t, ctrl, session.PhaseError)
	if state.ErrorMessage != domain.MsgEmptyQuestionSet {
		t.Fatalf("expected empty-set message, got %q", state.ErrorMessage)
	}
}

func TestGeneratorErrorMessageAndRetry(t *testing.T) {
	client := &fakeClient{fetchErr: fmt.Errorf("%w: boom", domain.ErrGeneratorUnavailable)}
	ctrl := newTestController(client)
	defer ctrl.Close()

	ctrl.Start(context.Background(), "history", domain.SourceGenerated, "llama3.2")
	state := waitForPhase(t, ctrl, session.PhaseError)
	if state.ErrorMessage != domain.MsgGeneratorUnavailable {
		t.Fatalf("expected generator message, got %q", state.ErrorMessage)
	}

	client.mu.Lock()
	client.fetchErr = nil
	client.questions = twoQuestions()
	client.mu.Unlock()

	ctrl.Retry()
	waitForPhase(t, ctrl, session.PhaseInProgress)

	client.mu.Lock()
	req := client.lastRequest
	fetches := client.fetchCalls
	client.mu.Unlock()
	if fetches != 2 {
		t.Fatalf("expected retry to refetch, calls=%d", fetches)
	}
	if req.Topic != "history" || req.Source != domain.SourceGenerated || req.Model != "llama3.2" {
		t.Fatalf("retry must reuse the original inputs, got %+v", req)
	}
}

func TestCuratedErrorMessage(t *testing.T) {
	client := &fakeClient{fetchErr: fmt.Errorf("%w: connection refused", domain.ErrFetchFailed)}
	ctrl := newTestController(client)
	defer ctrl.Close()

	ctrl.Start(context.Background(), "math", domain.SourceCurated, "")
	state := waitForPhase(t, ctrl, session.PhaseError)
	if state.ErrorMessage != domain.MsgFetchFailed {
		t.Fatalf("expected curated fetch message, got %q", state.ErrorMessage)
	}
}

func TestRestartDuringFeedbackCancelsAdvance(t *testing.T) {
	client := &fakeClient{questions: twoQuestions()}
	ctrl := session.New(client, session.Options{FeedbackDuration: 30 * time.Millisecond})
	defer ctrl.Close()

	ctrl.Start(context.Background(), "math", domain.SourceCurated, "")
	waitForPhase(t, ctrl, session.PhaseInProgress)

	ctrl.Select("b")
	ctrl.Submit()
	ctrl.Restart()

	time.Sleep(80 * time.Millisecond)
	if state := ctrl.State(); state.Phase != session.PhaseEmpty {
		t.Fatalf("expected empty state after restart, got %+v", state)
	}
	if _, submits := client.stats(); submits != 0 {
		t.Fatalf("expected no submission after restart, got %d", submits)
	}
}

func TestRestartOnLastQuestionPreventsSubmission(t *testing.T) {
	questions := twoQuestions()[:1]
	client := &fakeClient{questions: questions}
	ctrl := session.New(client, session.Options{FeedbackDuration: 30 * time.Millisecond})
	defer ctrl.Close()

	ctrl.Start(context.Background(), "math", domain.SourceCurated, "")
	waitForPhase(t, ctrl, session.PhaseInProgress)

	ctrl.Select("b")
	ctrl.Submit()
	ctrl.Restart()

	time.Sleep(80 * time.Millisecond)
	if _, submits := client.stats(); submits != 0 {
		t.Fatalf("expected no POST after restart, got %d", submits)
	}
}

func TestLastQuestionTimerTriggersSubmission(t *testing.T) {
	client := &fakeClient{
		questions: twoQuestions()[:1],
		result:    domain.Result{TotalQuestions: 1, CorrectAnswers: 1, ScorePercentage: 100},
	}
	ctrl := newTestController(client)
	defer ctrl.Close()

	ctrl.Start(context.Background(), "math", domain.SourceCurated, "")
	waitForPhase(t, ctrl, session.PhaseInProgress)

	ctrl.Select("b")
	ctrl.Submit()

	waitForPhase(t, ctrl, session.PhaseComplete)
	if _, submits := client.stats(); submits != 1 {
		t.Fatalf("expected exactly one submission, got %d", submits)
	}
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	client := &fakeClient{questions: twoQuestions(), fetchGate: gate}
	ctrl := newTestController(client)
	defer ctrl.Close()

	ctrl.Start(context.Background(), "math", domain.SourceCurated, "")
	ctrl.Restart()
	close(gate)

	time.Sleep(20 * time.Millisecond)
	if state := ctrl.State(); state.Phase != session.PhaseEmpty {
		t.Fatalf("stale fetch must not revive a restarted session, got %+v", state)
	}
}

func TestSubmitFailureKeepsSessionIntact(t *testing.T) {
	client := &fakeClient{
		questions: twoQuestions()[:1],
		submitErr: fmt.Errorf("%w: 503", domain.ErrSubmitFailed),
	}
	ctrl := newTestController(client)
	defer ctrl.Close()

	ctrl.Start(context.Background(), "math", domain.SourceCurated, "")
	waitForPhase(t, ctrl, session.PhaseInProgress)

	ctrl.Select("b")
	ctrl.Submit()

	state := waitForPhase(t, ctrl, session.PhaseError)
	if state.ErrorMessage != domain.MsgSubmitFailed {
		t.Fatalf("expected submit failure message, got %q", state.ErrorMessage)
	}
	if len(state.Questions) != 1 || len(state.Recorded) != 1 {
		t.Fatalf("expected session data kept after submit failure, got %+v", state)
	}
}

func TestSubscribeObservesLifecycle(t *testing.T) {
	client := &fakeClient{questions: twoQuestions()}
	ctrl := newTestController(client)
	defer ctrl.Close()

	states, cancel := ctrl.Subscribe()
	defer cancel()

	if initial := <-states; initial.Phase != session.PhaseEmpty {
		t.Fatalf("expected initial empty snapshot, got %+v", initial)
	}

	ctrl.Start(context.Background(), "math", domain.SourceCurated, "")

	seen := map[session.Phase]bool{}
	deadline := time.After(2 * time.Second)
	for !seen[session.PhaseInProgress] {
		select {
		case state := <-states:
			seen[state.Phase] = true
		case <-deadline:
			t.Fatalf("timed out waiting for in-progress snapshot, saw %v", seen)
		}
	}
	if !seen[session.PhaseLoading] {
		t.Fatalf("expected a loading snapshot before in-progress")
	}
}
