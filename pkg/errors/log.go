package errors

import (
	"fmt"
	"os"
)

// LogHandler is a Handler that logs records to stderr.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool
}

// Handle logs a record to stderr.
func (h *LogHandler) Handle(rec Record) {
	if h.Verbose {
		fmt.Fprintf(os.Stderr, "[loom %s]", rec.Phase)
		if rec.Component != "" {
			fmt.Fprintf(os.Stderr, " component=%s", rec.Component)
		}
		if rec.Root != "" {
			fmt.Fprintf(os.Stderr, " root=%s", rec.Root)
		}
		fmt.Fprintf(os.Stderr, ": %v\n", rec.Err)
		if rec.StackTrace != "" {
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", rec.StackTrace)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "[loom %s] %v\n", rec.Phase, rec.Err)
}
