// Package debuglog implements HEDDLE_DEBUG / HEDDLE_DEBUG_FILE channel-filtered
// debug logging atop zerolog (§6.5), grounded on cmd/symb/main.go's
// setupFileLogging (file-backed zerolog output) generalized with a channel
// allowlist and an optional file sink with an ISO-8601 line prefix in place
// of zerolog's own encoder, since HEDDLE_DEBUG_FILE lines must be readable
// without a JSON decoder.
package debuglog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger gates debug lines by channel name per HEDDLE_DEBUG and routes them
// to either zerolog's console logger or a plain file, per HEDDLE_DEBUG_FILE.
type Logger struct {
	mu       sync.Mutex
	enabled  bool
	channels map[string]bool // nil means "all channels"
	file     *os.File
}

// FromEnv builds a Logger from HEDDLE_DEBUG and HEDDLE_DEBUG_FILE.
func FromEnv() *Logger {
	raw := os.Getenv("HEDDLE_DEBUG")
	l := &Logger{}
	switch strings.TrimSpace(raw) {
	case "", "0", "false":
		l.enabled = false
		return l
	case "1", "true":
		l.enabled = true
		l.channels = nil
	default:
		l.enabled = true
		l.channels = make(map[string]bool)
		for _, ch := range strings.Split(raw, ",") {
			ch = strings.TrimSpace(ch)
			if ch != "" {
				l.channels[ch] = true
			}
		}
	}

	if path := os.Getenv("HEDDLE_DEBUG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to open HEDDLE_DEBUG_FILE")
		} else {
			l.file = f
		}
	}
	return l
}

// enabledFor reports whether channel should log, given the current filter.
func (l *Logger) enabledFor(channel string) bool {
	if !l.enabled {
		return false
	}
	if l.channels == nil {
		return true
	}
	return l.channels[channel]
}

// Debugf logs a formatted debug line on channel, if enabled.
func (l *Logger) Debugf(channel, format string, args ...any) {
	if l == nil || !l.enabledFor(channel) {
		return
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		fmt.Fprintf(l.file, "%s [%s] %s\n", time.Now().UTC().Format(time.RFC3339), channel, msg)
		return
	}
	log.Debug().Str("channel", channel).Msg(msg)
}

// Close releases the debug file, if one was opened.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Default is a process-wide Logger usable before a session exists, mirroring
// zerolog's package-level log.Logger convention.
var Default = FromEnv()

func init() {
	if Default.enabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
