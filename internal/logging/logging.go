// Package logging wires zerolog into the trading core's module-tagged
// logging convention: every logger is scoped to one of a closed set of
// module tags, and fields attached through WithFields (or passed through
// Redact/RedactMap) are redacted when their key looks like a secret.
// Fields added to an event directly are not redacted.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ModuleTag is the closed set of subsystem tags carried on every log
// line, mirroring the taxonomy used throughout the core's packages.
type ModuleTag string

const (
	TagWeather    ModuleTag = "WEATHER"
	TagModel      ModuleTag = "MODEL"
	TagMarket     ModuleTag = "MARKET"
	TagTrading    ModuleTag = "TRADING"
	TagOrder      ModuleTag = "ORDER"
	TagRisk       ModuleTag = "RISK"
	TagCooldown   ModuleTag = "COOLDOWN"
	TagAuth       ModuleTag = "AUTH"
	TagSettle     ModuleTag = "SETTLE"
	TagPostmortem ModuleTag = "POSTMORTEM"
	TagSystem     ModuleTag = "SYSTEM"
	TagFeed       ModuleTag = "FEED"
	TagBacktest   ModuleTag = "BACKTEST"
	TagTest       ModuleTag = "TEST"
)

var secretKeyWords = []string{"key", "secret", "password", "token", "private", "pem", "credential"}

func looksSecret(key string) bool {
	lower := strings.ToLower(key)
	for _, w := range secretKeyWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Init configures the global zerolog logger: console-pretty in debug
// mode at debug level, structured JSON at info level otherwise.
func Init(debug bool, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339
	var w io.Writer = out
	if debug {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	return logger
}

// For returns a child logger scoped to the given module tag.
func For(base zerolog.Logger, tag ModuleTag) zerolog.Logger {
	return base.With().Str("module", string(tag)).Logger()
}

// Redact replaces the value with a fixed marker when key looks like a
// secret; callers should route any field-by-field logging of arbitrary
// maps through this before attaching to a zerolog event.
func Redact(key string, value any) any {
	if looksSecret(key) {
		return "***REDACTED***"
	}
	return value
}

// RedactMap applies Redact across an entire map, used when logging
// structured context blobs (e.g. error context) wholesale.
func RedactMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Redact(k, v)
	}
	return out
}

// WithFields attaches m to e as structured fields, routed through
// RedactMap first so a secret-looking key never reaches the sink
// regardless of which call site is building the map.
func WithFields(e *zerolog.Event, m map[string]any) *zerolog.Event {
	return e.Fields(RedactMap(m))
}
