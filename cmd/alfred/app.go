package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/alfred/internal/artifact"
	"github.com/lexiqai/alfred/internal/audio"
	"github.com/lexiqai/alfred/internal/capture"
	"github.com/lexiqai/alfred/internal/config"
	"github.com/lexiqai/alfred/internal/controller"
	"github.com/lexiqai/alfred/internal/conversation"
	"github.com/lexiqai/alfred/internal/observability"
	"github.com/lexiqai/alfred/internal/pipeline"
	"github.com/lexiqai/alfred/internal/playback"
	"github.com/lexiqai/alfred/internal/resilience"
	"github.com/lexiqai/alfred/internal/stt"
	"github.com/lexiqai/alfred/internal/transcript"
	"github.com/lexiqai/alfred/internal/tts"
)

// appOptions select which parts of the assistant a command needs
type appOptions struct {
	voice         bool // capture and transcription
	mute          bool // no synthesis or playback
	noInputNotice string
	views         []transcript.View // extra transcript sinks
}

// app is one wired assistant session
type app struct {
	cfg        *config.Config
	feed       *transcript.Feed
	sessionLog *transcript.SessionLog
	store      *artifact.Store
	gemini     *conversation.GeminiStreamer
	engine     *conversation.Engine
	recorder   *capture.Recorder
	player     *playback.ExecPlayer
	pipeline   *pipeline.Pipeline
	controller *controller.Controller
	checks     []observability.Check
	logger     zerolog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{
		cfg:    cfg,
		feed:   transcript.NewFeed(),
		logger: observability.Component("app"),
	}

	persona, err := cfg.Persona()
	if err != nil {
		return nil, err
	}

	a.store, err = artifact.NewStore(cfg.ArtifactDir, config.Seconds(cfg.ArtifactRetention))
	if err != nil {
		return nil, err
	}

	a.sessionLog, err = transcript.OpenSessionLog(cfg.LogDir, time.Now())
	if err != nil {
		a.Close()
		return nil, err
	}

	a.gemini, err = conversation.NewGeminiStreamer(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = conversation.NewEngine(a.gemini, persona)
	a.addGuard("gemini", a.gemini.Guard())

	deps := pipeline.Deps{
		Responder: a.engine,
		Artifacts: a.store,
		Log:       a.sessionLog,
	}

	if opts.voice {
		a.recorder = newRecorder(cfg)
		recognizer := stt.NewDeepgramRecognizer(cfg)
		deps.Transcriber = stt.NewService(a.recorder, recognizer, newStrategy(cfg))
		a.addGuard("deepgram-stt", recognizer.Guard())
		a.checks = append(a.checks, observability.Check{Name: "microphone", Fn: a.recorder.Probe})
	}

	if !opts.mute {
		if err := a.wireSpeech(&deps); err != nil {
			a.Close()
			return nil, err
		}
	}

	view := transcript.Multi(append([]transcript.View{a.feed}, opts.views...))
	deps.Status = controller.StatusView(view)

	popts := pipeline.Options{
		ListenTimeout: config.Seconds(cfg.ListenTimeout),
		PhraseLimit:   config.Seconds(cfg.PhraseLimit),
		TurnTimeout:   config.Seconds(cfg.TurnTimeout),
		AssistantName: cfg.AssistantName,
		NoInputNotice: opts.noInputNotice,
		Mute:          opts.mute,
	}
	a.pipeline = pipeline.New(deps, popts)

	var holder controller.Holder
	if a.recorder != nil {
		holder = a.recorder
	}
	a.controller = controller.New(a.pipeline, holder, view, cfg.AssistantName, config.Seconds(cfg.HoldLimit))

	a.logger.Info().
		Bool("voice", opts.voice).
		Bool("mute", opts.mute).
		Str("model", cfg.GeminiModel).
		Str("session_log", a.sessionLog.Path()).
		Msg("Assistant ready")
	return a, nil
}

// wireSpeech adds synthesis and playback. A missing player downgrades the
// session to text replies instead of failing.
func (a *app) wireSpeech(deps *pipeline.Deps) error {
	command := a.cfg.PlayerCommand
	if command == "" {
		detected, err := playback.DetectCommand(runtime.GOOS, nil)
		if err != nil {
			a.logger.Warn().Err(err).Msg("No audio player found, replies will not be spoken")
			return nil
		}
		command = detected
	}
	player, err := playback.NewExecPlayer(command)
	if err != nil {
		return err
	}

	synth, err := tts.NewSynthesizer(a.cfg)
	if err != nil {
		return err
	}
	if chain, ok := synth.(*tts.Chain); ok {
		for _, p := range chain.Providers() {
			if g, ok := p.(interface{ Guard() *resilience.Guard }); ok {
				a.addGuard(p.Name()+"-tts", g.Guard())
			}
		}
	}

	a.player = player
	deps.Synth = tts.NewService(synth, a.store)
	deps.Player = player
	return nil
}

func (a *app) addGuard(name string, g *resilience.Guard) {
	a.checks = append(a.checks, observability.Check{Name: name, Fn: g.Healthy})
}

func newRecorder(cfg *config.Config) *capture.Recorder {
	return capture.NewRecorder(capture.ExecOpener(cfg.CaptureCommand), capture.Options{
		SampleRate: cfg.SampleRate,
		VAD: audio.VADConfig{
			EnergyThreshold: cfg.VADEnergyThreshold,
			SilenceFrames:   cfg.VADSilenceFrames,
		},
		AmbientDuration: config.Millis(cfg.AmbientDuration),
		AmbientFactor:   cfg.AmbientFactor,
		Preroll:         config.Millis(cfg.VADPreroll),
		Reconnect: &resilience.ReconnectConfig{
			MaxAttempts: cfg.ReconnectMaxAttempts,
			Backoff:     config.Millis(cfg.ReconnectBackoff),
			Multiplier:  2.0,
			MaxBackoff:  5 * time.Second,
		},
	})
}

func newStrategy(cfg *config.Config) stt.Strategy {
	if cfg.CaptureStrategy == "continuous" {
		return stt.Continuous{
			Chunk:        config.Seconds(cfg.ChunkSeconds),
			SilenceLimit: config.Seconds(cfg.SilenceLimit),
		}
	}
	return stt.SingleShot{}
}

// Close stops playback and releases files and clients
func (a *app) Close() {
	if a.controller != nil {
		a.controller.Cancel()
	}
	if a.player != nil {
		a.player.Stop()
	}
	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Error closing Gemini client")
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.sessionLog != nil {
		if err := a.sessionLog.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Error closing session log")
		}
	}
}

func (a *app) describe() string {
	return fmt.Sprintf("%s is at your service. Session log: %s", a.cfg.AssistantName, a.sessionLog.Path())
}
