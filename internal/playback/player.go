// Package playback plays synthesized artifacts through an external player
// process.
package playback

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/alfred/internal/artifact"
	"github.com/lexiqai/alfred/internal/observability"
)

var (
	// ErrNoPlayer is returned when no audio player could be found
	ErrNoPlayer = errors.New("no audio player available")

	// ErrSuperseded ends a playback that a newer one replaced
	ErrSuperseded = errors.New("playback superseded")

	// ErrStopped ends a playback interrupted by Stop
	ErrStopped = errors.New("playback stopped")
)

// Interrupted reports whether err means playback was cut short on purpose
// rather than failing
func Interrupted(err error) bool {
	return errors.Is(err, ErrSuperseded) || errors.Is(err, ErrStopped)
}

// Player plays one artifact to completion
type Player interface {
	Play(ctx context.Context, a *artifact.Artifact) error
}

// ExecPlayer launches a command with the artifact path as its last argument.
// Starting a new playback stops the one in progress.
type ExecPlayer struct {
	command []string
	logger  zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelCauseFunc
	seq    uint64

	// Callbacks
	OnPlaybackStart func()
	OnPlaybackEnd   func()
}

// NewExecPlayer creates a player from a command line such as "mpg123 -q"
func NewExecPlayer(command string) (*ExecPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrNoPlayer
	}
	return &ExecPlayer{
		command: fields,
		logger:  observability.Component("playback"),
	}, nil
}

// Play runs the player and blocks until it exits, ctx is done, or a newer
// playback supersedes this one. A superseded playback returns ErrSuperseded
// and one cut short by Stop returns ErrStopped.
func (p *ExecPlayer) Play(ctx context.Context, a *artifact.Artifact) error {
	if a == nil || !a.Exists() {
		return fmt.Errorf("playback: %w", errMissing)
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel(ErrSuperseded)
	}
	ctx, cancel := context.WithCancelCause(ctx)
	p.cancel = cancel
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.seq == seq {
			p.cancel = nil
		}
		p.mu.Unlock()
		cancel(nil)
	}()

	args := append(append([]string{}, p.command[1:]...), a.Path)
	cmd := exec.CommandContext(ctx, p.command[0], args...)

	if p.OnPlaybackStart != nil {
		p.OnPlaybackStart()
	}
	start := time.Now()
	err := cmd.Run()
	if p.OnPlaybackEnd != nil {
		p.OnPlaybackEnd()
	}

	if ctx.Err() != nil {
		cause := context.Cause(ctx)
		p.logger.Debug().Err(cause).Str("path", a.Path).Msg("Playback interrupted")
		return cause
	}
	if err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	p.logger.Debug().Str("path", a.Path).Dur("duration", time.Since(start)).Msg("Playback finished")
	return nil
}

// Stop interrupts the current playback, if any
func (p *ExecPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel(ErrStopped)
		p.cancel = nil
	}
}

var errMissing = errors.New("artifact no longer exists")

// DetectCommand picks a player for the operating system. lookPath reports
// whether a binary is installed; pass nil to use exec.LookPath.
func DetectCommand(goos string, lookPath func(string) bool) (string, error) {
	if lookPath == nil {
		lookPath = func(name string) bool {
			_, err := exec.LookPath(name)
			return err == nil
		}
	}

	var candidates []string
	switch goos {
	case "darwin":
		candidates = []string{"afplay"}
	case "windows":
		candidates = []string{"ffplay -nodisp -autoexit -loglevel quiet"}
	default:
		candidates = []string{
			"mpg123 -q",
			"ffplay -nodisp -autoexit -loglevel quiet",
			"mpv --no-video --really-quiet",
			"xdg-open",
		}
	}

	for _, c := range candidates {
		if lookPath(strings.Fields(c)[0]) {
			return c, nil
		}
	}
	return "", ErrNoPlayer
}
