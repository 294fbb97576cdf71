// Package logsink is the append-only operator log shown by the display surfaces.
package logsink

import (
	"fmt"
	"sync"

	"github.com/clippy-ai/clippy-ctl/internal/logging"
)

// Sink is an ordered, append-only line buffer with live subscribers.
// It is safe for concurrent use.
type Sink struct {
	mu     sync.Mutex
	lines  []string
	subs   map[int]chan string
	nextID int
}

// New creates an empty sink.
func New() *Sink {
	return &Sink{subs: make(map[int]chan string)}
}

// Append adds a line and forwards it to subscribers. A subscriber whose
// buffer is full misses the line; Lines still has it.
func (s *Sink) Append(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = append(s.lines, line)
	logging.Debug("log", "line", line)

	for id, ch := range s.subs {
		select {
		case ch <- line:
		default:
			logging.Debug("log subscriber lagging, line dropped", "subscriber", id)
		}
	}
}

// Appendf formats and appends a line.
func (s *Sink) Appendf(format string, args ...any) {
	s.Append(fmt.Sprintf(format, args...))
}

// Lines returns a snapshot of every line so far.
func (s *Sink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// Since returns the lines appended after the first n.
func (s *Sink) Since(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n >= len(s.lines) {
		return nil
	}
	return append([]string(nil), s.lines[n:]...)
}

// Len returns the number of lines.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Subscribe returns a channel receiving lines appended from now on and a
// cancel function that closes it.
func (s *Sink) Subscribe(buffer int) (<-chan string, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan string, buffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}
