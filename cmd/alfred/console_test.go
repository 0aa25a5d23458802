package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lexiqai/alfred/internal/pipeline"
	"github.com/lexiqai/alfred/internal/transcript"
)

func TestConsole_RunPrintsFeedInOrder(t *testing.T) {
	feed := transcript.NewFeed()
	var out bytes.Buffer
	c := newConsole(feed, strings.NewReader(""), &out)

	err := c.run(context.Background(), func(ctx context.Context) error {
		feed.Show("", "Listening…")
		feed.Show("You", "What is the weather")
		feed.Show("Alfred", "It is currently cloudy.")
		return nil
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := "Listening…\nYou: What is the weather\nAlfred: It is currently cloudy.\n"
	if out.String() != want {
		t.Errorf("Expected output %q, got %q", want, out.String())
	}
}

// exclusiveWriter flags overlapping writes
type exclusiveWriter struct {
	busy    atomic.Bool
	overlap atomic.Bool
	lines   atomic.Int32
}

func (w *exclusiveWriter) Write(p []byte) (int, error) {
	if !w.busy.CompareAndSwap(false, true) {
		w.overlap.Store(true)
		return len(p), nil
	}
	time.Sleep(100 * time.Microsecond)
	w.lines.Add(int32(bytes.Count(p, []byte("\n"))))
	w.busy.Store(false)
	return len(p), nil
}

func TestConsole_OnlyRunWritesOutput(t *testing.T) {
	feed := transcript.NewFeed()
	out := &exclusiveWriter{}
	c := newConsole(feed, strings.NewReader(""), out)

	err := c.run(context.Background(), func(ctx context.Context) error {
		feed.Show("", "Type a message and press Enter.")
		for i := 0; i < 50; i++ {
			feed.Show("You", "line")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.overlap.Load() {
		t.Error("Expected console output written from a single goroutine")
	}
	if out.lines.Load() != 51 {
		t.Errorf("Expected 51 lines, got %d", out.lines.Load())
	}
}

func TestConsole_RunReturnsWorkError(t *testing.T) {
	c := newConsole(transcript.NewFeed(), strings.NewReader(""), &bytes.Buffer{})
	boom := errors.New("microphone unavailable")

	if err := c.run(context.Background(), func(ctx context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Expected work error, got %v", err)
	}
}

func TestConsole_NextReadsTrimmedLines(t *testing.T) {
	c := newConsole(transcript.NewFeed(), strings.NewReader("  hello  \nr\n"), &bytes.Buffer{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, want := range []string{"hello", "r"} {
		line, ok := c.next(ctx)
		if !ok || line != want {
			t.Errorf("Expected %q, got %q (ok=%v)", want, line, ok)
		}
	}
	if _, ok := c.next(ctx); ok {
		t.Error("Expected end of input")
	}
}

func TestConsole_NextCancelled(t *testing.T) {
	c := newConsole(transcript.NewFeed(), blockingReader{}, &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := c.next(ctx); ok {
		t.Error("Expected cancelled next to report no line")
	}
}

type blockingReader struct{}

func (blockingReader) Read(p []byte) (int, error) { select {} }

func TestSettle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	device := &pipeline.Error{Kind: pipeline.KindDevice, Err: errors.New("no such device")}

	tests := []struct {
		name    string
		outcome pipeline.Outcome
		err     error
		done    bool
		wantErr error
	}{
		{"completed", pipeline.OutcomeCompleted, nil, false, nil},
		{"no input", pipeline.OutcomeNoInput, pipeline.ErrNoSpeechDetected, false, nil},
		{"engine failure", pipeline.OutcomeEngineFailure, pipeline.ErrEngineFailure, false, nil},
		{"rejected", pipeline.OutcomeRejected, pipeline.ErrTurnInFlight, false, nil},
		{"exit", pipeline.OutcomeExit, nil, true, nil},
		{"device", pipeline.OutcomeDeviceUnavailable, device, true, device},
		{"cancelled", pipeline.OutcomeCancelled, context.Canceled, true, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done, err := settle(ctx, pipeline.Result{Outcome: tt.outcome, Err: tt.err})
			if done != tt.done {
				t.Errorf("Expected done=%v, got %v", tt.done, done)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
