// Package logging builds the adapter's loggers. Output goes to the
// frontend's log interface when it offers one and to stderr otherwise.
package logging

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-logfmt/logfmt"

	"github.com/user-none/retrobackend/internal/env"
)

// New returns a logger writing to stderr with prefix name.
func New(name string, level log.Level) *log.Logger {
	return newLogger(os.Stderr, name, level, log.TextFormatter)
}

// NewHost returns a logger whose lines are handed to fn at the matching
// frontend log level.
func NewHost(name string, level log.Level, fn env.LogFunc) *log.Logger {
	if fn == nil {
		return New(name, level)
	}
	return newLogger(&hostWriter{fn: fn}, name, level, log.LogfmtFormatter)
}

func newLogger(w io.Writer, name string, level log.Level, f log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:    name,
		Level:     level,
		Formatter: f,
	})
}

// hostWriter decodes logfmt records and forwards them one line at a time.
type hostWriter struct {
	mu sync.Mutex
	fn env.LogFunc
}

func (w *hostWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	dec := logfmt.NewDecoder(bytes.NewReader(p))
	for dec.ScanRecord() {
		level := env.LogInfo
		var prefix, msg string
		var fields []string

		for dec.ScanKeyval() {
			key, value := string(dec.Key()), string(dec.Value())
			switch key {
			case "level":
				level = hostLevel(value)
			case "prefix":
				prefix = value
			case "msg":
				msg = value
			case "time", "ts":
			default:
				fields = append(fields, key+"="+quote(value))
			}
		}

		var line strings.Builder
		if prefix != "" {
			line.WriteString("[" + strings.TrimSuffix(prefix, ":") + "] ")
		}
		line.WriteString(msg)
		for _, f := range fields {
			line.WriteString(" " + f)
		}
		line.WriteString("\n")
		w.fn(level, line.String())
	}
	if err := dec.Err(); err != nil {
		// Pass through anything that is not logfmt.
		w.fn(env.LogInfo, string(p))
	}
	return len(p), nil
}

func hostLevel(s string) env.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return env.LogDebug
	case "warn", "warning":
		return env.LogWarn
	case "error", "fatal":
		return env.LogError
	default:
		return env.LogInfo
	}
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " =\"") {
		return strconv.Quote(s)
	}
	return s
}
