// Package logging provides the leveled, optionally colored logger used
// across downscaler. It wraps an hclog.InterceptLogger so that a plain-text
// copy of every line can be appended to a log file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/backmassage/downscaler/internal/config"
	"github.com/backmassage/downscaler/internal/term"
)

// Name is the logger name printed on every line.
const Name = "downscaler"

// Logger provides leveled key/value logging with an optional file sink.
type Logger struct {
	hclog.InterceptLogger

	mu       sync.Mutex
	file     *os.File
	sink     hclog.SinkAdapter
	filePath string
}

// NewLogger builds the logger from cfg: level from cfg.LogLevel, colors
// from cfg.ColorMode, output to stderr. When cfg.LogFile is set the file is
// opened for append and receives an uncolored copy. Call Close when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	return newLogger(cfg, os.Stderr, term.Configure(cfg.ColorMode, os.Stderr))
}

func newLogger(cfg *config.Config, out io.Writer, color hclog.ColorOption) (*Logger, error) {
	level := hclog.LevelFromString(cfg.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	l := &Logger{
		InterceptLogger: hclog.NewInterceptLogger(&hclog.LoggerOptions{
			Name:   Name,
			Level:  level,
			Output: out,
			Color:  color,
		}),
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		l.filePath = cfg.LogFile
		l.sink = hclog.NewSinkAdapter(&hclog.LoggerOptions{
			Name:   Name,
			Level:  level,
			Output: f,
			Color:  hclog.ColorOff,
		})
		l.RegisterSink(l.sink)
	}
	return l, nil
}

// FilePath returns the log file path, or "" when logging only to stderr.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sink != nil {
		l.DeregisterSink(l.sink)
		l.sink = nil
	}
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{
		InterceptLogger: hclog.NewInterceptLogger(&hclog.LoggerOptions{
			Name:   Name,
			Output: io.Discard,
			Level:  hclog.Off,
		}),
	}
}
