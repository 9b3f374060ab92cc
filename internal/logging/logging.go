// Package logging builds the diagnostic logger. Logs go to stderr so they
// never interleave with the answer printed on stdout.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

const prefix = "docqa"

// New returns a logger writing to w at the named level. Unknown levels fall
// back to info.
func New(level string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = log.InfoLevel
	}

	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
}
