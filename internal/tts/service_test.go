package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lexiqai/alfred/internal/artifact"
)

func newTestStore(t *testing.T) (*artifact.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := artifact.NewStore(dir, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	return store, dir
}

func TestService_Synthesize(t *testing.T) {
	store, _ := newTestStore(t)
	svc := NewService(&fakeSynth{name: "fake"}, store)

	a, err := svc.Synthesize(context.Background(), "It is currently cloudy.")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !a.Exists() {
		t.Error("Expected artifact file to exist")
	}
	if a.MIME != "audio/mpeg" || filepath.Ext(a.Path) != ".mp3" {
		t.Errorf("Unexpected artifact %+v", a)
	}
	if store.Last() != nil {
		t.Error("Synthesis must not replace the replayable artifact")
	}
}

func TestService_FailureLeavesNoFile(t *testing.T) {
	store, dir := newTestStore(t)
	failing := &partialSynth{err: errors.New("connection reset by peer")}
	svc := NewService(failing, store)

	if _, err := svc.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("Expected error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected no files after failure, found %d", len(entries))
	}
}

func TestService_EmptyText(t *testing.T) {
	store, _ := newTestStore(t)
	synth := &fakeSynth{name: "fake"}

	if _, err := NewService(synth, store).Synthesize(context.Background(), "  "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("Expected ErrEmptyText, got %v", err)
	}
	if synth.calls != 0 {
		t.Error("Expected provider not to be called")
	}
}

// partialSynth writes half a file before failing
type partialSynth struct{ err error }

func (p *partialSynth) Name() string { return "partial" }

func (p *partialSynth) Synthesize(ctx context.Context, text, dst string) error {
	_ = os.WriteFile(dst, []byte("ID3"), 0o644)
	return p.err
}
