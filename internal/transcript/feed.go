// Package transcript carries speaker-labelled lines from background turns
// to whatever displays or records them.
package transcript

import (
	"sync"
	"time"
)

// Line is one speaker-labelled transcript entry
type Line struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// String renders the line the way it appears on screen and in the log
func (l Line) String() string {
	if l.Speaker == "" {
		return l.Text
	}
	return l.Speaker + ": " + l.Text
}

// View displays transcript lines. An empty speaker marks a status line.
// Implementations must be safe to call from any goroutine and must not block.
type View interface {
	Show(speaker, text string)
}

// Feed queues lines for the foreground loop. Show never blocks and never
// drops; the consumer waits on Ready and then calls Drain.
type Feed struct {
	mu    sync.Mutex
	lines []Line
	ready chan struct{}
	now   func() time.Time
}

// NewFeed creates an empty feed
func NewFeed() *Feed {
	return &Feed{ready: make(chan struct{}, 1), now: time.Now}
}

// Show queues a line and wakes the consumer
func (f *Feed) Show(speaker, text string) {
	f.mu.Lock()
	f.lines = append(f.lines, Line{Speaker: speaker, Text: text, At: f.now()})
	f.mu.Unlock()

	select {
	case f.ready <- struct{}{}:
	default:
	}
}

// Ready signals that lines may be waiting
func (f *Feed) Ready() <-chan struct{} {
	return f.ready
}

// Drain returns and clears the queued lines in arrival order
func (f *Feed) Drain() []Line {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.lines
	f.lines = nil
	return lines
}

// Multi fans lines out to several views
type Multi []View

func (m Multi) Show(speaker, text string) {
	for _, v := range m {
		v.Show(speaker, text)
	}
}
