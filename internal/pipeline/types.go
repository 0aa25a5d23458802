package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/lexiqai/alfred/internal/artifact"
	"github.com/lexiqai/alfred/internal/capture"
)

// Mode selects where a turn's input comes from
type Mode int

const (
	ModeListen Mode = iota // live capture bounded by timeout and phrase limit
	ModeClip               // a clip captured by press and hold
	ModeText               // typed input, no capture or transcription
)

// Trigger starts a turn
type Trigger struct {
	Mode Mode
	Clip *capture.Clip
	Text string
}

// ListenNow triggers live capture
func ListenNow() Trigger { return Trigger{Mode: ModeListen} }

// UseClip triggers transcription of an already captured clip
func UseClip(clip *capture.Clip) Trigger { return Trigger{Mode: ModeClip, Clip: clip} }

// Typed triggers a turn from text
func Typed(text string) Trigger { return Trigger{Mode: ModeText, Text: text} }

// Step names a status transition within a turn
type Step int

const (
	StepListening Step = iota
	StepUser
	StepAssistant
	StepNotice
	StepError
)

// Status is one user-visible progress update. Speaker is set for
// StepUser and StepAssistant.
type Status struct {
	Step    Step
	Speaker string
	Text    string
}

// String renders the status as a single transcript line
func (s Status) String() string {
	switch s.Step {
	case StepUser, StepAssistant:
		return s.Speaker + ": " + s.Text
	case StepError:
		if strings.HasPrefix(s.Text, "Error:") {
			return s.Text
		}
		return "Error: " + s.Text
	default:
		return s.Text
	}
}

// StatusFunc receives status updates. It is called from the goroutine
// running the turn and, for playback failures, from the playback worker.
type StatusFunc func(Status)

// Outcome is how a turn ended
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeNoInput
	OutcomeEngineFailure
	OutcomeSynthesisFailure
	OutcomeDeviceUnavailable
	OutcomeExit
	OutcomeCancelled
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeNoInput:
		return "no_input"
	case OutcomeEngineFailure:
		return "engine_failure"
	case OutcomeSynthesisFailure:
		return "synthesis_failure"
	case OutcomeDeviceUnavailable:
		return "device_unavailable"
	case OutcomeExit:
		return "exit"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result describes a finished turn. Played, when non-nil, yields the
// playback result once the reply has finished playing. A reply cut short
// by a newer playback yields playback.ErrSuperseded, which is not a failure.
type Result struct {
	ID        string
	Outcome   Outcome
	InputText string
	ReplyText string
	Artifact  *artifact.Artifact
	Err       error
	Played    <-chan error
}

// WaitPlayback blocks until playback ends or ctx is done. It returns nil
// when the turn started no playback.
func (r Result) WaitPlayback(ctx context.Context) error {
	if r.Played == nil {
		return nil
	}
	select {
	case err := <-r.Played:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Options tune a Pipeline
type Options struct {
	ListenTimeout time.Duration
	PhraseLimit   time.Duration
	TurnTimeout   time.Duration // bounds remote calls within one turn
	AssistantName string
	UserLabel     string
	ExitPhrases   []string
	NoInputNotice string // shown when nothing usable was heard
	Mute          bool   // skip synthesis and playback
}

// DefaultOptions returns the stock timings and labels
func DefaultOptions() Options {
	return Options{
		ListenTimeout: 5 * time.Second,
		PhraseLimit:   5 * time.Second,
		TurnTimeout:   60 * time.Second,
		AssistantName: "Alfred",
		UserLabel:     "You",
		ExitPhrases:   []string{"exit", "quit"},
		NoInputNotice: NoticeNoInput,
	}
}
