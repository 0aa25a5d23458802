package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Device is an open audio input producing mono S16LE PCM.
// Close must be safe to call more than once and must unblock a pending Read.
type Device interface {
	io.Reader
	Close() error
}

// Opener acquires the input device
type Opener func(ctx context.Context) (Device, error)

// ExecDevice reads PCM from the stdout of a recorder process such as
// arecord, sox or ffmpeg
type ExecDevice struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser

	once     sync.Once
	closeErr error
}

// ExecOpener returns an Opener that starts command for every session
func ExecOpener(command string) Opener {
	return func(ctx context.Context) (Device, error) {
		return OpenExec(ctx, command)
	}
}

// OpenExec starts the recorder process. Its lifetime is bound to Close,
// not to ctx, so the caller controls when the device is released.
func OpenExec(ctx context.Context, command string) (*ExecDevice, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("empty capture command")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, fmt.Errorf("capture command %q not found: %w", fields[0], err)
	}

	cmd := exec.Command(path, fields[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", fields[0], err)
	}
	return &ExecDevice{cmd: cmd, stdout: stdout}, nil
}

// Read reads raw PCM from the recorder
func (d *ExecDevice) Read(p []byte) (int, error) {
	return d.stdout.Read(p)
}

// Close stops the recorder process and reaps it
func (d *ExecDevice) Close() error {
	d.once.Do(func() {
		if d.cmd.Process != nil {
			_ = d.cmd.Process.Kill()
		}
		_ = d.stdout.Close()
		if err := d.cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				d.closeErr = err
			}
		}
	})
	return d.closeErr
}
