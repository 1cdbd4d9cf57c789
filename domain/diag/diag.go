package diag

import (
	"fmt"
	"log"
)

// Kind classifies a diagnostic entry.
type Kind string

const (
	KindMissingCondition Kind = "missing_condition" // condition absent at a timepoint
	KindSkippedGene      Kind = "skipped_gene"      // gene degraded to placeholder rows
	KindSingleCondition  Kind = "single_condition"  // significance short-circuit
	KindEmptyInput       Kind = "empty_input"       // empty gene list or filtered table
	KindInfo             Kind = "info"
)

// Entry is one diagnostic message. Diagnostics are informational: they report
// recoverable data-absence and degradation, never fatal errors.
type Entry struct {
	Kind    Kind
	Message string
}

// Log accumulates diagnostics for one analysis run and mirrors every entry to
// the operator console.
type Log struct {
	entries []Entry
	quiet   bool
}

// NewLog creates an empty diagnostics log.
func NewLog() *Log {
	return &Log{}
}

// NewQuietLog creates a log that accumulates without console output (tests).
func NewQuietLog() *Log {
	return &Log{quiet: true}
}

// Addf records a formatted diagnostic entry.
func (l *Log) Addf(kind Kind, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.entries = append(l.entries, Entry{Kind: kind, Message: msg})
	if !l.quiet {
		log.Printf("[diag] %s: %s", kind, msg)
	}
}

// Entries returns all recorded entries in order.
func (l *Log) Entries() []Entry {
	return l.entries
}

// Count returns the number of entries, optionally filtered by kind.
func (l *Log) Count(kinds ...Kind) int {
	if len(kinds) == 0 {
		return len(l.entries)
	}
	n := 0
	for _, e := range l.entries {
		for _, k := range kinds {
			if e.Kind == k {
				n++
				break
			}
		}
	}
	return n
}

// Messages returns the entry texts in order.
func (l *Log) Messages() []string {
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Message
	}
	return out
}
