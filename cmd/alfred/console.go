package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lexiqai/alfred/internal/transcript"
)

// console prints transcript lines in the foreground while turns run in the
// background, and hands typed lines to the running command. Only run's
// goroutine writes to out; everything else goes through the feed.
type console struct {
	feed  *transcript.Feed
	out   io.Writer
	lines chan string
}

func newConsole(feed *transcript.Feed, in io.Reader, out io.Writer) *console {
	c := &console{feed: feed, out: out, lines: make(chan string)}
	go func() {
		defer close(c.lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			c.lines <- strings.TrimSpace(scanner.Text())
		}
	}()
	return c
}

func (c *console) flush() {
	for _, line := range c.feed.Drain() {
		fmt.Fprintln(c.out, line.String())
	}
}

// next waits for a typed line. ok is false on end of input or cancellation.
func (c *console) next(ctx context.Context) (line string, ok bool) {
	select {
	case line, ok = <-c.lines:
		return line, ok
	case <-ctx.Done():
		return "", false
	}
}

// run pumps the feed until work returns
func (c *console) run(ctx context.Context, work func(ctx context.Context) error) error {
	done := make(chan error, 1)
	go func() { done <- work(ctx) }()

	for {
		select {
		case <-c.feed.Ready():
			c.flush()
		case err := <-done:
			c.flush()
			return err
		}
	}
}
