// Package controller maps user gestures onto pipeline turns and keeps the
// transcript view current.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/alfred/internal/capture"
	"github.com/lexiqai/alfred/internal/observability"
	"github.com/lexiqai/alfred/internal/pipeline"
	"github.com/lexiqai/alfred/internal/transcript"
	"github.com/lexiqai/alfred/internal/worker"
)

// Lines spoken by the assistant outside a turn
const (
	Farewell = "Very well, sir. Until next time."
	Goodbye  = "Very well, sir. I shall take my leave."
	Pardon   = "I beg your pardon, sir. I didn't quite catch that."
)

// ErrNotHolding is returned by Release without a matching Press
var ErrNotHolding = errors.New("no recording in progress")

// Holder records while a gesture is held
type Holder interface {
	Record(ctx context.Context, stop <-chan struct{}, limit time.Duration) (*capture.Clip, error)
}

// Runner is the pipeline as seen by the controller
type Runner interface {
	RunTurn(ctx context.Context, trig pipeline.Trigger) pipeline.Result
	ReplayLast(ctx context.Context) error
	InFlight() bool
}

// hold is one press-and-hold recording
type hold struct {
	stop chan struct{}
	task *worker.Task[*capture.Clip]
}

// Controller turns press, release, listen and typed gestures into turns.
// Only one gesture is served at a time.
type Controller struct {
	runner    Runner
	holder    Holder
	view      transcript.View
	assistant string
	holdLimit time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	holding *hold
	turning bool // a gesture's turn is running
}

// New creates a controller. holder may be nil when press-and-hold is not offered.
func New(runner Runner, holder Holder, view transcript.View, assistant string, holdLimit time.Duration) *Controller {
	if assistant == "" {
		assistant = "Alfred"
	}
	return &Controller{
		runner:    runner,
		holder:    holder,
		view:      view,
		assistant: assistant,
		holdLimit: holdLimit,
		logger:    observability.Component("controller"),
	}
}

// StatusView adapts a transcript view into a pipeline status sink
func StatusView(view transcript.View) pipeline.StatusFunc {
	return func(s pipeline.Status) {
		switch s.Step {
		case pipeline.StepUser, pipeline.StepAssistant:
			view.Show(s.Speaker, s.Text)
		default:
			view.Show("", s.String())
		}
	}
}

// Holding reports whether a press is waiting for its release
func (c *Controller) Holding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holding != nil
}

func (c *Controller) reject() error {
	observability.RecordRejectedGesture()
	c.view.Show("", pipeline.NoticeInFlight)
	return pipeline.ErrTurnInFlight
}

// Press starts recording in the background. It is rejected while a turn or
// another press is in progress.
func (c *Controller) Press(ctx context.Context) error {
	if c.holder == nil {
		return errors.New("press and hold is not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holding != nil || c.turning || c.runner.InFlight() {
		return c.reject()
	}

	stop := make(chan struct{})
	c.holding = &hold{
		stop: stop,
		task: worker.Go(ctx, func(ctx context.Context) (*capture.Clip, error) {
			return c.holder.Record(ctx, stop, c.holdLimit)
		}),
	}
	c.view.Show("", "Listening…")
	return nil
}

// Release stops the recording and runs a turn on the captured clip
func (c *Controller) Release(ctx context.Context) pipeline.Result {
	c.mu.Lock()
	h := c.holding
	c.holding = nil
	if h != nil {
		// The hold hands its claim straight to the turn
		c.turning = true
	}
	c.mu.Unlock()

	if h == nil {
		return pipeline.Result{Outcome: pipeline.OutcomeRejected, Err: ErrNotHolding}
	}
	defer c.endTurn()

	close(h.stop)
	clip, err := h.task.Wait(ctx)
	if err != nil {
		h.task.Cancel()
		return c.recordFailure(err)
	}
	return c.finish(c.runner.RunTurn(ctx, pipeline.UseClip(clip)))
}

// Cancel abandons a held recording without running a turn
func (c *Controller) Cancel() {
	c.mu.Lock()
	h := c.holding
	c.holding = nil
	c.mu.Unlock()

	if h != nil {
		h.task.Cancel()
		<-h.task.Done()
	}
}

func (c *Controller) recordFailure(err error) pipeline.Result {
	kind := pipeline.Classify(err)
	outcome := pipeline.OutcomeDeviceUnavailable
	if kind == pipeline.KindCancelled {
		outcome = pipeline.OutcomeCancelled
	} else {
		kind = pipeline.KindDevice
		c.logger.Error().Err(err).Msg("Hold recording failed")
		c.view.Show("", "Error: microphone unavailable")
	}
	return pipeline.Result{Outcome: outcome, Err: &pipeline.Error{Kind: kind, Err: err}}
}

// beginTurn claims the controller for one turn. It fails while a press is
// held or another gesture's turn is running.
func (c *Controller) beginTurn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holding != nil || c.turning {
		return false
	}
	c.turning = true
	return true
}

func (c *Controller) endTurn() {
	c.mu.Lock()
	c.turning = false
	c.mu.Unlock()
}

func (c *Controller) run(ctx context.Context, trig pipeline.Trigger) pipeline.Result {
	if !c.beginTurn() {
		return pipeline.Result{Outcome: pipeline.OutcomeRejected, Err: c.reject()}
	}
	defer c.endTurn()
	return c.finish(c.runner.RunTurn(ctx, trig))
}

// Listen runs a live capture turn
func (c *Controller) Listen(ctx context.Context) pipeline.Result {
	return c.run(ctx, pipeline.ListenNow())
}

// Type runs a turn on typed text
func (c *Controller) Type(ctx context.Context, text string) pipeline.Result {
	return c.run(ctx, pipeline.Typed(text))
}

// Replay plays the last reply again
func (c *Controller) Replay(ctx context.Context) error {
	return c.runner.ReplayLast(ctx)
}

func (c *Controller) finish(res pipeline.Result) pipeline.Result {
	if res.Outcome == pipeline.OutcomeExit {
		c.view.Show(c.assistant, Farewell)
	}
	return res
}
