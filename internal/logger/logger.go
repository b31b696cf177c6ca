package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger's level and output style.
type Options struct {
	Level       string
	Development bool
}

// NewLogger creates a zap logger writing to stderr and tee'd into buf when buf is non-nil.
// The console encoder is used in development mode or when stderr is a terminal.
func NewLogger(opts Options, buf *LogBuffer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil && opts.Level != "" {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	if opts.Level == "" {
		level = zapcore.InfoLevel
	}

	var encCfg zapcore.EncoderConfig
	if opts.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var encoder zapcore.Encoder
	if opts.Development || isTerminal(os.Stderr) {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}
	if buf != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), buf, level))
	}

	opt := []zap.Option{zap.AddCaller()}
	if opts.Development {
		opt = append(opt, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opt...), nil
}

// MustNewLogger falls back to a no-op logger when construction fails.
func MustNewLogger(opts Options, buf *LogBuffer) *zap.Logger {
	logger, err := NewLogger(opts, buf)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// LogBuffer keeps the most recent log lines in memory for the /logs endpoint
type LogBuffer struct {
	lines    []string
	capacity int
	mu       sync.Mutex
}

// NewLogBuffer creates a buffer retaining at most capacity lines.
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &LogBuffer{
		lines:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, strings.TrimRight(string(p), "\n"))
	if len(lb.lines) > lb.capacity {
		lb.lines = lb.lines[len(lb.lines)-lb.capacity:]
	}
	return len(p), nil
}

// Sync satisfies zapcore.WriteSyncer.
func (lb *LogBuffer) Sync() error { return nil }

// Lines returns a copy of the buffered lines, oldest first.
func (lb *LogBuffer) Lines() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
