package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// SessionLog appends transcript lines to a per-session text file named
// after the session start time
type SessionLog struct {
	path   string
	file   *os.File
	logger *log.Logger
}

// OpenSessionLog creates dir if needed and opens <dir>/<start>.txt
func OpenSessionLog(dir string, start time.Time) (*SessionLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	path := filepath.Join(dir, start.Format("2006-01-02_15-04-05")+".txt")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}

	return &SessionLog{
		path: path,
		file: f,
		logger: log.NewWithOptions(f, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Level:           log.InfoLevel,
		}),
	}, nil
}

// Path returns the log file location
func (s *SessionLog) Path() string {
	return s.path
}

// Append writes one line. Write failures are ignored.
func (s *SessionLog) Append(line string) {
	s.logger.Print(line)
}

// Close flushes and closes the file
func (s *SessionLog) Close() error {
	return s.file.Close()
}
