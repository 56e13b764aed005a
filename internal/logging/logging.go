// Package logging configures the process-wide zerolog logger used for
// operator-facing diagnostics (request/response tracing, retries, timeouts).
// It is distinct from the Progress Updater's ResearchLogEntry stream, which
// is the user-facing research narrative, not an operator log.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init installs the global zerolog logger at the given level, writing to
// stderr so it never interleaves with a report printed to stdout. An empty
// or unrecognized level defaults to info.
func Init(level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(os.Stderr).With().Timestamp().Logger()

	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		if l, err := zerolog.ParseLevel(level); err == nil {
			lvl = l
		}
	}
	zerolog.SetGlobalLevel(lvl)
}
