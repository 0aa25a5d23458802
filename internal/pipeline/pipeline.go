// Package pipeline runs one conversational turn at a time: acquire input,
// transcribe, generate a reply, synthesize it and start playback.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/lexiqai/alfred/internal/artifact"
	"github.com/lexiqai/alfred/internal/capture"
	"github.com/lexiqai/alfred/internal/observability"
	"github.com/lexiqai/alfred/internal/playback"
	"github.com/lexiqai/alfred/internal/stt"
)

// Notices shown to the user
const (
	NoticeNoInput  = "Didn't catch that. Try again."
	NoticeInFlight = "already listening"
	NoticeNoAudio  = "Audio has already been cleared"
)

// Transcriber produces user text from speech
type Transcriber interface {
	CaptureAndTranscribe(ctx context.Context, timeout, phraseLimit time.Duration) (string, error)
	Transcribe(ctx context.Context, clip *capture.Clip) (string, error)
}

// Responder generates the assistant reply and records both sides in history
type Responder interface {
	GenerateReply(ctx context.Context, userText string) (string, error)
}

// Synthesizer renders reply text to a playable artifact
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*artifact.Artifact, error)
}

// Player plays an artifact to completion
type Player interface {
	Play(ctx context.Context, a *artifact.Artifact) error
}

// Artifacts holds the single replayable artifact
type Artifacts interface {
	Replace(a *artifact.Artifact)
	Last() *artifact.Artifact
}

// Logger receives transcript lines. Append must not fail the turn.
type Logger interface {
	Append(line string)
}

// Pipeline coordinates the collaborators of a turn. At most one turn runs
// at a time; an overlapping trigger is rejected, never queued.
type Pipeline struct {
	transcriber Transcriber
	responder   Responder
	synth       Synthesizer
	player      Player
	artifacts   Artifacts
	log         Logger
	status      StatusFunc
	opts        Options

	turn     sync.Mutex
	inFlight atomic.Bool
	logger   zerolog.Logger
}

// Deps are the collaborators of a Pipeline. Synth and Player may be nil
// for a text-only session.
type Deps struct {
	Transcriber Transcriber
	Responder   Responder
	Synth       Synthesizer
	Player      Player
	Artifacts   Artifacts
	Log         Logger
	Status      StatusFunc
}

// New creates a pipeline
func New(deps Deps, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.ListenTimeout <= 0 {
		opts.ListenTimeout = def.ListenTimeout
	}
	if opts.PhraseLimit <= 0 {
		opts.PhraseLimit = def.PhraseLimit
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = def.TurnTimeout
	}
	if opts.AssistantName == "" {
		opts.AssistantName = def.AssistantName
	}
	if opts.UserLabel == "" {
		opts.UserLabel = def.UserLabel
	}
	if opts.NoInputNotice == "" {
		opts.NoInputNotice = def.NoInputNotice
	}
	if opts.ExitPhrases == nil {
		opts.ExitPhrases = def.ExitPhrases
	}
	if deps.Status == nil {
		deps.Status = func(Status) {}
	}
	if deps.Log == nil {
		deps.Log = nopLogger{}
	}

	return &Pipeline{
		transcriber: deps.Transcriber,
		responder:   deps.Responder,
		synth:       deps.Synth,
		player:      deps.Player,
		artifacts:   deps.Artifacts,
		log:         deps.Log,
		status:      deps.Status,
		opts:        opts,
		logger:      observability.Component("pipeline"),
	}
}

type nopLogger struct{}

func (nopLogger) Append(string) {}

// InFlight reports whether a turn currently holds the pipeline
func (p *Pipeline) InFlight() bool {
	return p.inFlight.Load()
}

// Options returns the pipeline's effective options
func (p *Pipeline) Options() Options {
	return p.opts
}

// turnState carries one turn through its steps
type turnState struct {
	result  Result
	metrics *observability.TurnMetrics
	logger  zerolog.Logger
	release func()
}

func (t *turnState) end(outcome Outcome, err error) Result {
	t.result.Outcome = outcome
	t.result.Err = err
	t.metrics.Finish(outcome.String())
	var pe *Error
	if errors.As(err, &pe) {
		observability.RecordError(pe.Kind.String(), "pipeline")
	}
	t.release()
	t.logger.Info().Str("outcome", outcome.String()).Msg("Turn finished")
	return t.result
}

// RunTurn runs one turn to completion, except playback, which continues in
// the background after the lock is released. Failures are reported in the
// Result; RunTurn never panics on a collaborator error.
func (p *Pipeline) RunTurn(ctx context.Context, trig Trigger) Result {
	if !p.turn.TryLock() {
		observability.RecordRejectedGesture()
		p.status(Status{Step: StepNotice, Text: NoticeInFlight})
		return Result{Outcome: OutcomeRejected, Err: newError(KindTurnInFlight, errors.New(NoticeInFlight))}
	}
	p.inFlight.Store(true)

	id := observability.NewCorrelationID()
	var once sync.Once
	t := &turnState{
		result:  Result{ID: id},
		metrics: observability.NewTurnMetrics(id),
		logger:  observability.WithCorrelationID(id).With().Str("component", "pipeline").Logger(),
		release: func() {
			once.Do(func() {
				p.inFlight.Store(false)
				p.turn.Unlock()
			})
		},
	}
	defer t.release()

	remote, cancel := context.WithTimeout(ctx, p.opts.TurnTimeout)
	defer cancel()

	// 1-2. Input
	text, err := p.input(remote, t, trig)
	if err != nil {
		return p.inputFailure(ctx, t, err)
	}
	t.result.InputText = text
	p.show(StepUser, p.opts.UserLabel, text)

	if p.isExit(text) {
		return t.end(OutcomeExit, nil)
	}

	// 3. Generate
	t.metrics.StageStart(observability.StageGenerate)
	reply, err := p.responder.GenerateReply(remote, text)
	t.metrics.StageEnd(observability.StageGenerate, err == nil)
	if err != nil {
		if ctx.Err() != nil {
			return t.end(OutcomeCancelled, newError(KindCancelled, ctx.Err()))
		}
		t.logger.Error().Err(err).Msg("Reply generation failed")
		p.status(Status{Step: StepError, Text: p.opts.AssistantName + " encountered an issue."})
		return t.end(OutcomeEngineFailure, newError(KindEngine, err))
	}
	t.result.ReplyText = reply
	p.show(StepAssistant, p.opts.AssistantName, reply)

	if p.opts.Mute || p.synth == nil {
		return t.end(OutcomeCompleted, nil)
	}

	// 4. Synthesize
	t.metrics.StageStart(observability.StageSynthesize)
	a, err := p.synth.Synthesize(remote, reply)
	t.metrics.StageEnd(observability.StageSynthesize, err == nil)
	if err != nil {
		if ctx.Err() != nil {
			return t.end(OutcomeCancelled, newError(KindCancelled, ctx.Err()))
		}
		t.logger.Error().Err(err).Msg("Speech synthesis failed")
		p.status(Status{Step: StepError, Text: "Error: could not synthesize the reply"})
		return t.end(OutcomeSynthesisFailure, newError(KindSynthesis, err))
	}
	t.result.Artifact = a

	// 5-6. Record as replayable, release the lock, then play
	if p.artifacts != nil {
		p.artifacts.Replace(a)
	}
	result := t.end(OutcomeCompleted, nil)
	if p.player != nil {
		result.Played = p.playAsync(ctx, t, a)
	}
	return result
}

func (p *Pipeline) input(ctx context.Context, t *turnState, trig Trigger) (string, error) {
	switch trig.Mode {
	case ModeText:
		text := strings.TrimSpace(trig.Text)
		if text == "" {
			return "", stt.ErrUnrecognized
		}
		return text, nil

	case ModeClip:
		if p.transcriber == nil {
			return "", capture.ErrDeviceUnavailable
		}
		t.metrics.StageStart(observability.StageTranscribe)
		text, err := p.transcriber.Transcribe(ctx, trig.Clip)
		t.metrics.StageEnd(observability.StageTranscribe, err == nil)
		return text, err

	default:
		if p.transcriber == nil {
			return "", capture.ErrDeviceUnavailable
		}
		p.status(Status{Step: StepListening, Text: "Listening…"})
		t.metrics.StageStart(observability.StageTranscribe)
		text, err := p.transcriber.CaptureAndTranscribe(ctx, p.opts.ListenTimeout, p.opts.PhraseLimit)
		t.metrics.StageEnd(observability.StageTranscribe, err == nil)
		return text, err
	}
}

func (p *Pipeline) inputFailure(ctx context.Context, t *turnState, err error) Result {
	if ctx.Err() != nil {
		return t.end(OutcomeCancelled, newError(KindCancelled, ctx.Err()))
	}

	switch Classify(err) {
	case KindDevice:
		t.logger.Error().Err(err).Msg("Input device unavailable")
		p.status(Status{Step: StepError, Text: "Error: microphone unavailable"})
		return t.end(OutcomeDeviceUnavailable, newError(KindDevice, err))
	case KindNoSpeech:
		p.status(Status{Step: StepNotice, Text: p.opts.NoInputNotice})
		return t.end(OutcomeNoInput, newError(KindNoSpeech, err))
	default:
		t.logger.Warn().Err(err).Msg("Transcription failed")
		p.status(Status{Step: StepNotice, Text: p.opts.NoInputNotice})
		return t.end(OutcomeNoInput, newError(KindTranscription, err))
	}
}

func (p *Pipeline) playAsync(ctx context.Context, t *turnState, a *artifact.Artifact) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		start := time.Now()
		err := p.player.Play(ctx, a)
		interrupted := playback.Interrupted(err)
		observability.RecordStage(observability.StagePlayback, time.Since(start), err == nil || interrupted)
		if err != nil && !interrupted && ctx.Err() == nil {
			t.logger.Warn().Err(err).Msg("Playback failed")
			observability.RecordError(KindPlayback.String(), "playback")
			p.status(Status{Step: StepError, Text: "Error: playback failed"})
			err = newError(KindPlayback, err)
		}
		done <- err
	}()
	return done
}

// ReplayLast plays the last artifact again if it still exists. It never
// runs the pipeline or touches the history.
func (p *Pipeline) ReplayLast(ctx context.Context) error {
	var a *artifact.Artifact
	if p.artifacts != nil {
		a = p.artifacts.Last()
	}
	if a == nil || !a.Exists() || p.player == nil {
		observability.RecordReplay("unavailable")
		p.status(Status{Step: StepNotice, Text: NoticeNoAudio})
		return newError(KindNoAudio, errors.New(NoticeNoAudio))
	}

	if err := p.player.Play(ctx, a); err != nil {
		if playback.Interrupted(err) {
			observability.RecordReplay("interrupted")
			return err
		}
		observability.RecordReplay("error")
		if ctx.Err() != nil {
			return newError(KindCancelled, ctx.Err())
		}
		return newError(KindPlayback, err)
	}
	observability.RecordReplay("success")
	return nil
}

func (p *Pipeline) show(step Step, speaker, text string) {
	p.status(Status{Step: step, Speaker: speaker, Text: text})
	p.log.Append(speaker + ": " + text)
}

func (p *Pipeline) isExit(text string) bool {
	normalized := strings.ToLower(strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	}))
	for _, phrase := range p.opts.ExitPhrases {
		if normalized == phrase {
			return true
		}
	}
	return false
}
