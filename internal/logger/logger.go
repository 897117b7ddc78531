// Package logger provides a small tagged logger that is passed explicitly to
// the components that need to emit diagnostics. There is no package level
// instance; the machine owns one and hands it out.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Logger is the minimal capability the emulation core depends on.
type Logger interface {
	Log(tag, detail string)
	Logf(tag, format string, args ...any)
}

// Entry is a single line in the log.
type Entry struct {
	Timestamp time.Time
	Tag       string
	Detail    string
	Repeated  int
}

func (e Entry) String() string {
	var s strings.Builder
	s.WriteString(e.Tag)
	s.WriteString(": ")
	s.WriteString(e.Detail)
	if e.Repeated > 0 {
		fmt.Fprintf(&s, " (repeat x%d)", e.Repeated+1)
	}
	return s.String()
}

// Central keeps the most recent entries in memory and optionally echoes
// every new entry to a writer. Identical consecutive entries are collapsed
// into one with a repeat count.
type Central struct {
	mu         sync.Mutex
	maxEntries int
	entries    []Entry
	echo       io.Writer
}

// NewCentral creates a logger holding at most maxEntries entries.
func NewCentral(maxEntries int) *Central {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &Central{maxEntries: maxEntries}
}

// SetEcho sets the writer that receives every new or repeated entry. A nil
// writer disables echoing.
func (l *Central) SetEcho(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.echo = w
}

func (l *Central) Log(tag, detail string) {
	tag = strings.ReplaceAll(tag, "\n", "")
	detail = strings.ReplaceAll(detail, "\n", "")

	l.mu.Lock()
	defer l.mu.Unlock()

	var e *Entry
	if n := len(l.entries); n > 0 && l.entries[n-1].Tag == tag && l.entries[n-1].Detail == detail {
		e = &l.entries[n-1]
		e.Repeated++
		e.Timestamp = time.Now()
	} else {
		l.entries = append(l.entries, Entry{Timestamp: time.Now(), Tag: tag, Detail: detail})
		e = &l.entries[len(l.entries)-1]
	}

	if l.echo != nil {
		io.WriteString(l.echo, e.String()+"\n")
	}

	if len(l.entries) > l.maxEntries {
		l.entries = append(l.entries[:0], l.entries[len(l.entries)-l.maxEntries:]...)
	}
}

func (l *Central) Logf(tag, format string, args ...any) {
	l.Log(tag, fmt.Sprintf(format, args...))
}

// Tail returns a copy of the last n entries.
func (l *Central) Tail(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Write dumps all entries to w, one per line.
func (l *Central) Write(w io.Writer) error {
	for _, e := range l.Tail(0) {
		if _, err := io.WriteString(w, e.String()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Clear drops all entries.
func (l *Central) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}

type discard struct{}

func (discard) Log(string, string)          {}
func (discard) Logf(string, string, ...any) {}

// Discard drops everything logged to it.
var Discard Logger = discard{}
