package audio

import (
	"sync"
)

// RingBuffer is a thread-safe ring buffer for audio data. Once full, new
// writes overwrite the oldest bytes, so it always holds the most recent
// window of audio (used as pre-roll ahead of detected speech).
type RingBuffer struct {
	buffer []byte
	size   int
	start  int // index of the oldest byte
	length int
	mu     sync.RWMutex
}

// NewRingBuffer creates a new ring buffer with the specified size
func NewRingBuffer(size int) *RingBuffer {
	if size < 0 {
		size = 0
	}
	return &RingBuffer{
		buffer: make([]byte, size),
		size:   size,
	}
}

// Write appends data, discarding the oldest bytes when the buffer is full.
// It returns the number of previously buffered bytes that were overwritten.
func (rb *RingBuffer) Write(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == 0 {
		return 0
	}
	// Only the tail of an oversized write can survive
	if len(data) > rb.size {
		dropped := rb.length + len(data) - rb.size
		data = data[len(data)-rb.size:]
		rb.start, rb.length = 0, 0
		rb.writeLocked(data)
		return dropped
	}

	dropped := 0
	if over := rb.length + len(data) - rb.size; over > 0 {
		rb.start = (rb.start + over) % rb.size
		rb.length -= over
		dropped = over
	}
	rb.writeLocked(data)
	return dropped
}

func (rb *RingBuffer) writeLocked(data []byte) {
	end := (rb.start + rb.length) % rb.size
	n := copy(rb.buffer[end:], data)
	copy(rb.buffer, data[n:])
	rb.length += len(data)
}

// Bytes returns a copy of the buffered data, oldest first
func (rb *RingBuffer) Bytes() []byte {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	out := make([]byte, rb.length)
	n := copy(out, rb.buffer[rb.start:min(rb.start+rb.length, rb.size)])
	copy(out[n:], rb.buffer[:rb.length-n])
	return out
}

// Available returns the number of bytes buffered
func (rb *RingBuffer) Available() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.length
}

// Clear clears the buffer
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.start, rb.length = 0, 0
}

// IsFull returns true once the buffer holds size bytes
func (rb *RingBuffer) IsFull() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.length == rb.size
}
