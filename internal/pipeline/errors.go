package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexiqai/alfred/internal/capture"
	"github.com/lexiqai/alfred/internal/stt"
)

// Kind classifies a turn failure by the step it originated in
type Kind int

const (
	KindUnknown Kind = iota
	KindNoSpeech
	KindTranscription
	KindEngine
	KindSynthesis
	KindPlayback
	KindDevice
	KindNoAudio
	KindTurnInFlight
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindNoSpeech:
		return "no_speech_detected"
	case KindTranscription:
		return "transcription_failure"
	case KindEngine:
		return "engine_failure"
	case KindSynthesis:
		return "synthesis_failure"
	case KindPlayback:
		return "playback_failure"
	case KindDevice:
		return "device_unavailable"
	case KindNoAudio:
		return "no_audio_available"
	case KindTurnInFlight:
		return "turn_in_flight"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is a classified turn failure. errors.Is matches on Kind against the
// package sentinels, and on the wrapped cause otherwise.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrNoSpeechDetected     = &Error{Kind: KindNoSpeech}
	ErrTranscriptionFailure = &Error{Kind: KindTranscription}
	ErrEngineFailure        = &Error{Kind: KindEngine}
	ErrSynthesisFailure     = &Error{Kind: KindSynthesis}
	ErrPlaybackFailure      = &Error{Kind: KindPlayback}
	ErrDeviceUnavailable    = &Error{Kind: KindDevice}
	ErrNoAudioAvailable     = &Error{Kind: KindNoAudio}
	ErrTurnInFlight         = &Error{Kind: KindTurnInFlight}
)

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Classify returns the Kind of err, inspecting known causes when err is not
// already a pipeline Error
func Classify(err error) Kind {
	var pe *Error
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &pe):
		return pe.Kind
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, stt.ErrNoSpeech):
		return KindNoSpeech
	case errors.Is(err, capture.ErrDeviceBusy), errors.Is(err, capture.ErrDeviceUnavailable):
		return KindDevice
	default:
		return KindUnknown
	}
}
