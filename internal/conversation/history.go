// Package conversation holds the chat history and produces assistant
// replies from a remote streaming chat engine.
package conversation

import (
	"sync"
	"time"
)

// Speaker identifies who produced an utterance
type Speaker int

const (
	User Speaker = iota
	Assistant
)

func (s Speaker) String() string {
	switch s {
	case User:
		return "USER"
	case Assistant:
		return "ASSISTANT"
	default:
		return "UNKNOWN"
	}
}

// Utterance is one immutable line of conversation
type Utterance struct {
	Speaker   Speaker
	Text      string
	Timestamp time.Time
}

// History is the append-only, ordered conversation record
type History struct {
	mu         sync.RWMutex
	utterances []Utterance
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{}
}

// Append adds an utterance at the end
func (h *History) Append(u Utterance) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.utterances = append(h.utterances, u)
}

// Snapshot returns a copy of the history in conversation order
func (h *History) Snapshot() []Utterance {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Utterance, len(h.utterances))
	copy(out, h.utterances)
	return out
}

// Len returns the number of utterances
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.utterances)
}
