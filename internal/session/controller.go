package session

import (
	"context"
	"sync"
	"time"

	"quizly/internal/domain"
)

// Phase is the tag of the session state variant.
type Phase string

const (
	PhaseEmpty      Phase = "empty"
	PhaseLoading    Phase = "loading"
	PhaseError      Phase = "error"
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitting Phase = "submitting"
	PhaseComplete   Phase = "complete"
)

// State is an immutable snapshot of one quiz session. Questions holds the
// question set in presentation order; readers must not mutate it.
type State struct {
	Phase           Phase
	ErrorMessage    string
	Questions       []domain.Question
	Index           int
	Selection       string
	FeedbackVisible bool
	Recorded        []domain.AnswerRecord
	Result          *domain.Result
}

// Current returns the question being presented, if the session is in progress.
func (s State) Current() (domain.Question, bool) {
	if s.Phase != PhaseInProgress || s.Index < 0 || s.Index >= len(s.Questions) {
		return domain.Question{}, false
	}
	return s.Questions[s.Index], true
}

// Client is the API surface the controller drives: one fetch per start/retry,
// one submit per completed run.
type Client interface {
	FetchQuestions(ctx context.Context, req domain.FetchRequest) ([]domain.Question, error)
	SubmitQuiz(ctx context.Context, answers []domain.AnswerRecord) (domain.Result, error)
}

// Options tune a controller. Zero values fall back to the defaults below.
type Options struct {
	FeedbackDuration time.Duration
	QuestionLimit    int
}

const (
	defaultFeedbackDuration = 2 * time.Second
	defaultQuestionLimit    = 10
)

// Controller owns the quiz session lifecycle: it fetches a question set,
// records answers with timed feedback, submits them once, and exposes the
// resulting state transitions to subscribers. All transitions are serialized;
// async completions (fetch, submit, timer fire) are tagged with a session
// epoch and dropped when the session has since been restarted.
type Controller struct {
	client   Client
	feedback time.Duration
	limit    int

	mu          sync.Mutex
	ctx         context.Context
	epoch       uint64
	state       State
	lastRequest domain.FetchRequest
	timer       advanceTimer
	subscribers map[chan State]struct{}
}

// New builds an idle controller around the given API client.
func New(client Client, opts Options) *Controller {
	if opts.FeedbackDuration <= 0 {
		opts.FeedbackDuration = defaultFeedbackDuration
	}
	if opts.QuestionLimit <= 0 {
		opts.QuestionLimit = defaultQuestionLimit
	}
	return &Controller{
		client:      client,
		feedback:    opts.FeedbackDuration,
		limit:       opts.QuestionLimit,
		ctx:         context.Background(),
		state:       State{Phase: PhaseEmpty},
		subscribers: make(map[chan State]struct{}),
	}
}

// Start begins a new session for the given topic and source, replacing any
// session in flight. The fetch runs asynchronously; progress surfaces through
// the observable state.
func (c *Controller) Start(ctx context.Context, topic string, source domain.Source, model string) {
	req := domain.FetchRequest{Topic: topic, Source: source, Model: model, Limit: c.limit}

	c.mu.Lock()
	c.timer.Cancel()
	c.epoch++
	epoch := c.epoch
	c.ctx = ctx
	c.lastRequest = req
	c.state = State{Phase: PhaseLoading}
	c.broadcastLocked()
	c.mu.Unlock()

	go c.fetch(ctx, epoch, req)
}

func (c *Controller) fetch(ctx context.Context, epoch uint64, req domain.FetchRequest) {
	questions, err := c.client.FetchQuestions(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		// Session was restarted while the fetch was in flight.
		return
	}
	switch {
	case err != nil:
		c.state = State{Phase: PhaseError, ErrorMessage: domain.ErrorMessage(err)}
	case len(questions) == 0:
		c.state = State{Phase: PhaseError, ErrorMessage: domain.MsgEmptyQuestionSet}
	default:
		c.state = State{Phase: PhaseInProgress, Questions: questions}
	}
	c.broadcastLocked()
}

// Select records the user's current choice. Ignored while feedback is shown
// or when no question is being presented.
func (c *Controller) Select(optionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != PhaseInProgress || c.state.FeedbackVisible {
		return
	}
	c.state.Selection = optionID
	c.broadcastLocked()
}

// Submit locks in the current selection, shows feedback, and arms the advance
// timer. It reports whether the selection was correct; ok is false when the
// preconditions do not hold (no selection, feedback already visible, or the
// session is not in progress) and nothing changes.
func (c *Controller) Submit() (correct, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != PhaseInProgress || c.state.Selection == "" || c.state.FeedbackVisible {
		return false, false
	}

	question := c.state.Questions[c.state.Index]
	c.state.Recorded = append(c.state.Recorded, domain.AnswerRecord{
		QuestionID:     question.ID,
		SelectedAnswer: c.state.Selection,
		CorrectAnswer:  question.CorrectAnswer,
	})
	c.state.FeedbackVisible = true

	epoch := c.epoch
	c.timer.Schedule(c.feedback, func() { c.advance(epoch) })
	c.broadcastLocked()
	return c.state.Selection == question.CorrectAnswer, true
}

// advance moves to the next question, or into submission after the last one.
// Invoked by the advance timer; stale epochs are no-ops.
func (c *Controller) advance(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.state.Phase != PhaseInProgress || !c.state.FeedbackVisible {
		c.mu.Unlock()
		return
	}

	if c.state.Index+1 < len(c.state.Questions) {
		c.state.Index++
		c.state.Selection = ""
		c.state.FeedbackVisible = false
		c.broadcastLocked()
		c.mu.Unlock()
		return
	}

	answers := make([]domain.AnswerRecord, len(c.state.Recorded))
	copy(answers, c.state.Recorded)
	c.state.Phase = PhaseSubmitting
	c.state.Selection = ""
	c.state.FeedbackVisible = false
	ctx := c.ctx
	c.broadcastLocked()
	c.mu.Unlock()

	go c.submit(ctx, epoch, answers)
}

func (c *Controller) submit(ctx context.Context, epoch uint64, answers []domain.AnswerRecord) {
	result, err := c.client.SubmitQuiz(ctx, answers)

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return
	}
	if err != nil {
		// Keep questions and recorded answers so the surrounding UI can retry.
		c.state.Phase = PhaseError
		c.state.ErrorMessage = domain.MsgSubmitFailed
	} else {
		c.state.Phase = PhaseComplete
		c.state.Result = &result
	}
	c.broadcastLocked()
}

// Restart abandons the session and returns to the empty state. Any pending
// advance is cancelled and in-flight fetches or submissions are discarded.
func (c *Controller) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer.Cancel()
	c.epoch++
	c.state = State{Phase: PhaseEmpty}
	c.broadcastLocked()
}

// Retry re-runs the fetch with the same inputs as the last Start. Only valid
// from the error state; otherwise a no-op.
func (c *Controller) Retry() {
	c.mu.Lock()
	if c.state.Phase != PhaseError {
		c.mu.Unlock()
		return
	}
	c.timer.Cancel()
	c.epoch++
	epoch := c.epoch
	ctx := c.ctx
	req := c.lastRequest
	c.state = State{Phase: PhaseLoading}
	c.broadcastLocked()
	c.mu.Unlock()

	go c.fetch(ctx, epoch, req)
}

// Close tears the session down: cancels the pending advance, invalidates
// in-flight operations, and closes all subscriber channels.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer.Cancel()
	c.epoch++
	c.state = State{Phase: PhaseEmpty}
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
}

// State returns a snapshot of the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel receiving state snapshots, starting with the
// current one. The caller must invoke the returned cancel function to avoid
// leaks.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	initial := c.snapshotLocked()
	c.mu.Unlock()

	ch <- initial

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) broadcastLocked() {
	snapshot := c.snapshotLocked()
	for ch := range c.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Drop the oldest pending snapshot so slow readers never block
			// state transitions.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (c *Controller) snapshotLocked() State {
	snapshot := c.state
	if len(c.state.Recorded) > 0 {
		snapshot.Recorded = make([]domain.AnswerRecord, len(c.state.Recorded))
		copy(snapshot.Recorded, c.state.Recorded)
	}
	return snapshot
}
