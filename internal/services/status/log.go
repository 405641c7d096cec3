// Package status provides the ordered, append-only status log shown to the user.
package status

import (
	"sync"
	"time"

	"github.com/fgeck/sbat-slotwatch/internal/models"
	"github.com/rs/zerolog"
)

// Sink receives status lines in the order they occur.
type Sink interface {
	Append(ts time.Time, message string)
}

// Func adapts a plain function to the Sink interface.
type Func func(ts time.Time, message string)

// Append calls f(ts, message).
func (f Func) Append(ts time.Time, message string) { f(ts, message) }

// Discard is a Sink that drops every entry.
var Discard Sink = Func(func(time.Time, string) {})

// Log is an in-memory Sink that mirrors every entry to a zerolog logger at
// debug level.
type Log struct {
	mu       sync.Mutex
	entries  []models.StatusEntry
	capacity int
	logger   zerolog.Logger
}

// New creates a status log. A capacity of zero keeps every entry; otherwise
// the oldest entries are dropped once capacity is reached.
func New(logger zerolog.Logger, capacity int) *Log {
	return &Log{
		capacity: capacity,
		logger:   logger,
	}
}

// Append records a status line.
func (l *Log) Append(ts time.Time, message string) {
	l.mu.Lock()
	l.entries = append(l.entries, models.StatusEntry{Time: ts, Message: message})
	if l.capacity > 0 && len(l.entries) > l.capacity {
		l.entries = append(l.entries[:0:0], l.entries[len(l.entries)-l.capacity:]...)
	}
	l.mu.Unlock()

	l.logger.Debug().Time("at", ts).Msg(message)
}

// Entries returns a copy of the recorded entries, oldest first.
func (l *Log) Entries() []models.StatusEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.StatusEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Messages returns the recorded messages without timestamps.
func (l *Log) Messages() []string {
	entries := l.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}
