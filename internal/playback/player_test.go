package playback

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/lexiqai/alfred/internal/artifact"
)

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func testArtifact(t *testing.T) *artifact.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reply.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &artifact.Artifact{ID: "a", Path: path, MIME: "audio/mpeg"}
}

func TestExecPlayer_Success(t *testing.T) {
	requireBinary(t, "true")
	p, err := NewExecPlayer("true")
	if err != nil {
		t.Fatal(err)
	}

	started, ended := 0, 0
	p.OnPlaybackStart = func() { started++ }
	p.OnPlaybackEnd = func() { ended++ }

	if err := p.Play(context.Background(), testArtifact(t)); err != nil {
		t.Fatalf("Expected playback to succeed, got %v", err)
	}
	if started != 1 || ended != 1 {
		t.Errorf("Expected callbacks once each, got %d/%d", started, ended)
	}
}

func TestExecPlayer_Failure(t *testing.T) {
	requireBinary(t, "false")
	p, _ := NewExecPlayer("false")

	if err := p.Play(context.Background(), testArtifact(t)); err == nil {
		t.Error("Expected error from failing player")
	}
}

func TestExecPlayer_MissingArtifact(t *testing.T) {
	p, _ := NewExecPlayer("true")
	a := &artifact.Artifact{Path: filepath.Join(t.TempDir(), "gone.mp3")}

	if err := p.Play(context.Background(), a); !errors.Is(err, errMissing) {
		t.Errorf("Expected missing artifact error, got %v", err)
	}
}

// sleepingPlayer plays for ten seconds unless interrupted and signals each start
func sleepingPlayer(t *testing.T) (*ExecPlayer, chan struct{}) {
	t.Helper()
	requireBinary(t, "sh")
	p, _ := NewExecPlayer("sh")
	p.command = []string{"sh", "-c", "sleep 10", "player"} // path lands in $1
	started := make(chan struct{}, 4)
	p.OnPlaybackStart = func() { started <- struct{}{} }
	return p, started
}

func waitPlay(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Playback was not interrupted")
		return nil
	}
}

func TestExecPlayer_Stop(t *testing.T) {
	p, started := sleepingPlayer(t)
	a := testArtifact(t)

	done := make(chan error, 1)
	go func() { done <- p.Play(context.Background(), a) }()
	<-started
	p.Stop()

	err := waitPlay(t, done)
	if !errors.Is(err, ErrStopped) || !Interrupted(err) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
}

func TestExecPlayer_Superseded(t *testing.T) {
	p, started := sleepingPlayer(t)
	a := testArtifact(t)

	first := make(chan error, 1)
	go func() { first <- p.Play(context.Background(), a) }()
	<-started

	second := make(chan error, 1)
	go func() { second <- p.Play(context.Background(), a) }()

	err := waitPlay(t, first)
	if !errors.Is(err, ErrSuperseded) || !Interrupted(err) {
		t.Errorf("Expected ErrSuperseded, got %v", err)
	}

	<-started
	p.Stop()
	if err := waitPlay(t, second); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected newer playback stopped, got %v", err)
	}
}

func TestExecPlayer_CallerCancel(t *testing.T) {
	p, started := sleepingPlayer(t)
	a := testArtifact(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Play(ctx, a) }()
	<-started
	cancel()

	err := waitPlay(t, done)
	if !errors.Is(err, context.Canceled) || Interrupted(err) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestNewExecPlayer_Empty(t *testing.T) {
	if _, err := NewExecPlayer("  "); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("Expected ErrNoPlayer, got %v", err)
	}
}

func TestDetectCommand(t *testing.T) {
	installed := func(names ...string) func(string) bool {
		return func(name string) bool {
			for _, n := range names {
				if n == name {
					return true
				}
			}
			return false
		}
	}

	tests := []struct {
		name    string
		goos    string
		have    []string
		want    string
		wantErr bool
	}{
		{"mac", "darwin", []string{"afplay"}, "afplay", false},
		{"linux mpg123", "linux", []string{"mpg123", "ffplay"}, "mpg123 -q", false},
		{"linux ffplay", "linux", []string{"ffplay"}, "ffplay -nodisp -autoexit -loglevel quiet", false},
		{"linux fallback", "linux", []string{"xdg-open"}, "xdg-open", false},
		{"nothing", "linux", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectCommand(tt.goos, installed(tt.have...))
			if tt.wantErr {
				if !errors.Is(err, ErrNoPlayer) {
					t.Errorf("Expected ErrNoPlayer, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
