// Package logger provides structured logging with custom levels and formatting
// for the ymmrpc daemon.
//
// Log output format:
//
//	2006-01-02T15:04:05.000Z [LEVEL] [YMM-RPC] message | key=value, key2=value2
//
// The tag segment is omitted when the handler has no tag. Custom levels
// beyond the standard slog set:
//   - LevelTrace (-8): verbose diagnostic tracing
//   - LevelFail  (12): unrecoverable errors
package logger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Tag is the prefix written by the daemon logger, matching what the editor
// plugin printed to its console.
const Tag = "YMM-RPC"

// ///////////////////////////////////////////////
// Custom Levels
// ///////////////////////////////////////////////

const (
	LevelTrace slog.Level = -8
	LevelDebug slog.Level = slog.LevelDebug // -4
	LevelInfo  slog.Level = slog.LevelInfo  // 0
	LevelWarn  slog.Level = slog.LevelWarn  // 4
	LevelError slog.Level = slog.LevelError // 8
	LevelFail  slog.Level = 12
)

var levelNames = []struct {
	max  slog.Level
	name string
}{
	{LevelTrace, "TRACE"},
	{LevelDebug, "DEBUG"},
	{LevelInfo, "INFO"},
	{LevelWarn, "WARN"},
	{LevelError, "ERROR"},
}

// levelName returns the display name for a log level.
func levelName(l slog.Level) string {
	for _, n := range levelNames {
		if l <= n.max {
			return n.name
		}
	}
	return "FAIL"
}

// ParseLevel converts a level string to slog.Level (case-insensitive).
// Returns LevelInfo for unrecognized strings.
func ParseLevel(s string) slog.Level {
	for _, n := range levelNames {
		if strings.EqualFold(s, n.name) {
			return n.max
		}
	}
	if strings.EqualFold(s, "fail") {
		return LevelFail
	}
	return LevelInfo
}

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

// lineEnding is CRLF on Windows, LF elsewhere.
var lineEnding = "\n"

func init() {
	if runtime.GOOS == "windows" {
		lineEnding = "\r\n"
	}
}

// Handler is a slog.Handler producing single-line records:
//
//	2006-01-02T15:04:05.000Z [LEVEL] [TAG] message | key=value, ...
type Handler struct {
	w     io.Writer
	mu    *sync.Mutex // shared by every handler derived from the same root
	level slog.Level
	tag   string
	attrs []slog.Attr
	group string
}

// NewHandler creates a Handler that writes to w, filtering records below level.
func NewHandler(w io.Writer, level slog.Level) *Handler {
	return &Handler{w: w, level: level, mu: &sync.Mutex{}}
}

// WithTag returns a copy of h that prints tag in brackets before each message.
func (h *Handler) WithTag(tag string) *Handler {
	c := *h
	c.tag = tag
	return &c
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle formats and writes a log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05.000Z"))
	buf.WriteString(" [")
	buf.WriteString(levelName(r.Level))
	buf.WriteString("] ")
	if h.tag != "" {
		buf.WriteString("[")
		buf.WriteString(h.tag)
		buf.WriteString("] ")
	}
	buf.WriteString(r.Message)

	n := 0
	writeAttr := func(a slog.Attr) {
		if n == 0 {
			buf.WriteString(" | ")
		} else {
			buf.WriteString(", ")
		}
		n++
		if h.group != "" {
			buf.WriteString(h.group)
			buf.WriteString(".")
		}
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.String())
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})

	buf.WriteString(lineEnding)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, buf.String())
	return err
}

// WithAttrs returns a new Handler with the given attributes pre-applied.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	c.attrs = append(c.attrs, attrs...)
	return &c
}

// WithGroup returns a new Handler whose attribute keys are prefixed with
// name (e.g., "group.key"). An empty name returns h unchanged.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	if h.group != "" {
		c.group = h.group + "." + name
	} else {
		c.group = name
	}
	return &c
}

// ///////////////////////////////////////////////
// Logger Constructor
// ///////////////////////////////////////////////

// Options configures [NewLogger].
type Options struct {
	// Path is the rotating log file location.
	Path string
	// Level is the minimum level written.
	Level slog.Level
	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int
	// Console additionally mirrors every record to stderr.
	Console bool
}

// NewLogger creates a tagged slog.Logger writing to a rotating log file.
// The returned io.Closer must be closed to flush pending writes.
func NewLogger(opts Options) (*slog.Logger, io.Closer, error) {
	if opts.Path == "" {
		return nil, nil, fmt.Errorf("log path is empty")
	}
	lj := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: 3,
		MaxAge:     28,
	}

	var w io.Writer = lj
	if opts.Console {
		w = io.MultiWriter(lj, os.Stderr)
	}
	handler := NewHandler(w, opts.Level).WithTag(Tag)
	return slog.New(handler), lj, nil
}

// ///////////////////////////////////////////////
// Helper Functions
// ///////////////////////////////////////////////

// Trace logs a message at LevelTrace.
func Trace(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Fail logs a message at LevelFail.
func Fail(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelFail, msg, args...)
}

// ///////////////////////////////////////////////
// ReadTail
// ///////////////////////////////////////////////

// ReadTail returns the last n lines from the file at path, oldest first.
func ReadTail(path string, lines int) (string, error) {
	if lines <= 0 {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ring := make([]string, lines)
	total := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ring[total%lines] = scanner.Text()
		total++
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading log file: %w", err)
	}

	if total <= lines {
		return strings.Join(ring[:total], "\n"), nil
	}
	start := total % lines
	out := make([]string, 0, lines)
	out = append(out, ring[start:]...)
	out = append(out, ring[:start]...)
	return strings.Join(out, "\n"), nil
}
