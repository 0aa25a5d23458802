package conversation

import "context"

// Fragment is one piece of a streamed reply. A non-nil Err ends the stream.
type Fragment struct {
	Text string
	Err  error
}

// Streamer sends the persona and full history to a chat engine and streams
// the reply. The channel is closed when the reply is complete.
type Streamer interface {
	Stream(ctx context.Context, persona string, history []Utterance) (<-chan Fragment, error)
}
