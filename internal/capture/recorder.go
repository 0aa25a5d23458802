package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/alfred/internal/audio"
	"github.com/lexiqai/alfred/internal/observability"
	"github.com/lexiqai/alfred/internal/resilience"
)

var (
	// ErrNoSpeech means the window elapsed without the VAD detecting speech
	ErrNoSpeech = errors.New("no speech detected")

	// ErrDeviceBusy is returned when another session holds the device
	ErrDeviceBusy = errors.New("capture device busy")

	// ErrDeviceUnavailable wraps failures to open or read the device
	ErrDeviceUnavailable = errors.New("capture device unavailable")
)

// Options configure a Recorder
type Options struct {
	SampleRate      int
	VAD             audio.VADConfig
	AmbientDuration time.Duration // Calibration window before listening
	AmbientFactor   float64       // Threshold = max(VAD.EnergyThreshold, ambient*factor)
	Preroll         time.Duration // Audio kept ahead of speech onset
	Reconnect       *resilience.ReconnectConfig
}

// Recorder owns the input device. At most one session is active at a time;
// a second caller gets ErrDeviceBusy instead of waiting.
type Recorder struct {
	open   Opener
	opts   Options
	logger zerolog.Logger

	active  atomic.Bool
	mu      sync.Mutex
	session *Session
}

// NewRecorder creates a recorder over the given device opener
func NewRecorder(open Opener, opts Options) *Recorder {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.VAD.FrameSize <= 0 {
		opts.VAD.FrameSize = audio.FrameSize(opts.SampleRate, audio.FrameMs)
	}
	if opts.VAD.SilenceFrames <= 0 {
		opts.VAD.SilenceFrames = audio.DefaultVADConfig().SilenceFrames
	}
	if opts.AmbientFactor <= 0 {
		opts.AmbientFactor = 1.5
	}
	return &Recorder{
		open:   open,
		opts:   opts,
		logger: observability.Component("capture"),
	}
}

// Active reports whether a session currently holds the device
func (r *Recorder) Active() bool {
	return r.active.Load()
}

// State returns the state of the current or most recent session
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return StateIdle
	}
	return r.session.State()
}

// Probe checks the device can be opened. It reports healthy without
// touching the device while a session is running.
func (r *Recorder) Probe(ctx context.Context) error {
	if r.active.Load() {
		return nil
	}
	dev, err := r.open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return dev.Close()
}

// stream is one acquired device plus its session
type stream struct {
	dev       Device
	session   *Session
	frame     []byte
	stopClose func() bool
	recorder  *Recorder
	bytesIn   int64
}

func (r *Recorder) acquire(ctx context.Context) (*stream, error) {
	if !r.active.CompareAndSwap(false, true) {
		return nil, ErrDeviceBusy
	}

	session := NewSession(time.Now())
	r.mu.Lock()
	r.session = session
	r.mu.Unlock()

	var dev Device
	err := resilience.Reconnect(ctx, "microphone", func() error {
		d, err := r.open(ctx)
		if err != nil {
			return err
		}
		dev = d
		return nil
	}, r.opts.Reconnect)
	if err != nil {
		_ = session.Stop()
		r.active.Store(false)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	if err := session.Arm(); err != nil {
		_ = dev.Close()
		r.active.Store(false)
		return nil, err
	}

	s := &stream{
		dev:      dev,
		session:  session,
		frame:    make([]byte, r.opts.VAD.FrameSize*audio.BytesPerSample),
		recorder: r,
	}
	// Cancellation closes the device, which unblocks a pending Read
	s.stopClose = context.AfterFunc(ctx, func() { _ = dev.Close() })
	return s, nil
}

// release closes the device and frees the recorder. Safe on every path.
func (s *stream) release() {
	s.stopClose()
	if err := s.dev.Close(); err != nil {
		s.recorder.logger.Warn().Err(err).Msg("Error closing capture device")
	}
	_ = s.session.Stop()
	observability.RecordAudioBytes("in", s.bytesIn)
	s.recorder.active.Store(false)
}

var errEndOfStream = errors.New("end of capture stream")

// next reads exactly one frame
func (s *stream) next(ctx context.Context) ([]byte, []int16, error) {
	if _, err := io.ReadFull(s.dev, s.frame); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil, errEndOfStream
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	s.bytesIn += int64(len(s.frame))
	samples, _ := audio.BytesToSamples(s.frame)
	return s.frame, samples, nil
}

func framesFor(d time.Duration) int {
	return int(d / (audio.FrameMs * time.Millisecond))
}

// Listener captures successive phrases from one open device. The device
// stays open and the ambient calibration holds between phrases, so audio
// arriving between two Listen calls is kept for the next one.
type Listener interface {
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) (*Clip, error)
	Close() error
}

type listener struct {
	r       *Recorder
	s       *stream
	vad     *audio.VADDetector
	preroll *audio.RingBuffer
	closed  bool
}

// OpenListener acquires the device and calibrates against ambient noise
// once. The caller must Close the listener to release the device.
func (r *Recorder) OpenListener(ctx context.Context) (Listener, error) {
	s, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	l := &listener{
		r:       r,
		s:       s,
		vad:     audio.NewVADDetector(&r.opts.VAD),
		preroll: audio.NewRingBuffer(framesFor(r.opts.Preroll) * len(s.frame)),
	}
	if err := l.calibrate(ctx); err != nil {
		s.release()
		return nil, err
	}
	return l, nil
}

func (l *listener) calibrate(ctx context.Context) error {
	n := framesFor(l.r.opts.AmbientDuration)
	if n <= 0 {
		return nil
	}
	var sum float64
	read := 0
	for ; read < n; read++ {
		raw, samples, err := l.s.next(ctx)
		if errors.Is(err, errEndOfStream) {
			break
		}
		if err != nil {
			return err
		}
		sum += audio.CalculateRMS(samples)
		l.preroll.Write(raw)
	}
	if read > 0 {
		threshold := l.vad.Calibrate(sum/float64(read), l.r.opts.AmbientFactor)
		l.r.logger.Debug().Float64("threshold", threshold).Int("frames", read).Msg("Calibrated ambient noise")
	}
	return nil
}

// Listen waits up to timeout for speech, then records until a pause or
// phraseLimit. No speech within timeout yields ErrNoSpeech. Timing is
// counted in frames read from the device.
func (l *listener) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (*Clip, error) {
	if l.closed {
		return nil, fmt.Errorf("%w: listener closed", ErrDeviceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = l.s.dev.Close() })
	defer stop()

	l.vad.Reset()
	waitFrames := max(framesFor(timeout), 1)
	var onset []int16
	for waited := 0; onset == nil; waited++ {
		if waited >= waitFrames {
			return nil, ErrNoSpeech
		}
		raw, samples, err := l.s.next(ctx)
		if errors.Is(err, errEndOfStream) {
			return nil, ErrNoSpeech
		}
		if err != nil {
			return nil, err
		}
		if _, started, _ := l.vad.ProcessFrame(samples); started {
			onset, _ = audio.BytesToSamples(l.preroll.Bytes())
			onset = append(onset, samples...)
			l.preroll.Clear()
			break
		}
		l.preroll.Write(raw)
	}

	if l.s.session.State() == StateArmed {
		if err := l.s.session.Begin(); err != nil {
			return nil, err
		}
	}
	clip := &Clip{Samples: onset, SampleRate: l.r.opts.SampleRate, StartedAt: time.Now()}

	limitFrames := max(framesFor(phraseLimit), 1)
	for n := 1; n < limitFrames; n++ {
		_, samples, err := l.s.next(ctx)
		if errors.Is(err, errEndOfStream) {
			break
		}
		if err != nil {
			return nil, err
		}
		clip.Samples = append(clip.Samples, samples...)
		if _, _, ended := l.vad.ProcessFrame(samples); ended {
			break
		}
	}

	l.r.logger.Debug().Dur("duration", clip.Duration()).Msg("Phrase captured")
	return clip, nil
}

// Close releases the device. Later calls are no-ops.
func (l *listener) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	l.s.release()
	return nil
}

// Listen captures one phrase on a fresh session: calibrate, wait for
// speech, record, release.
func (r *Recorder) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (*Clip, error) {
	l, err := r.OpenListener(ctx)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	return l.Listen(ctx, timeout, phraseLimit)
}

// Record captures until stop is closed or limit elapses (press-and-hold).
// Cancelling ctx abandons the recording and returns ctx.Err().
func (r *Recorder) Record(ctx context.Context, stop <-chan struct{}, limit time.Duration) (*Clip, error) {
	s, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release()

	if err := s.session.Begin(); err != nil {
		return nil, err
	}
	clip := &Clip{SampleRate: r.opts.SampleRate, StartedAt: time.Now()}

	limitFrames := framesFor(limit)
loop:
	for n := 0; limitFrames <= 0 || n < limitFrames; n++ {
		select {
		case <-stop:
			break loop
		default:
		}

		_, samples, err := s.next(ctx)
		if errors.Is(err, errEndOfStream) {
			break
		}
		if err != nil {
			return nil, err
		}
		clip.Samples = append(clip.Samples, samples...)
	}

	_ = s.session.Stop()
	r.logger.Debug().Dur("duration", clip.Duration()).Msg("Hold recording captured")
	return clip, nil
}
