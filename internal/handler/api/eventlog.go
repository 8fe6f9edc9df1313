package api

import (
	"sync"

	"StepFuse/internal/usecase"
)

const defaultEventLogSize = 500

// EventLog retains the most recent engine events for the diagnostics
// endpoint. It subscribes to the bus and drains in its own goroutine.
type EventLog struct {
	mu   sync.Mutex
	buf  []usecase.Envelope
	next int
	full bool
}

func NewEventLog(bus *usecase.Bus, size int) *EventLog {
	if size <= 0 {
		size = defaultEventLogSize
	}
	l := &EventLog{buf: make([]usecase.Envelope, size)}
	ch, _ := bus.Subscribe(size)
	go func() {
		for env := range ch {
			l.add(env)
		}
	}()
	return l
}

func (l *EventLog) add(env usecase.Envelope) {
	l.mu.Lock()
	l.buf[l.next] = env
	l.next++
	if l.next == len(l.buf) {
		l.next = 0
		l.full = true
	}
	l.mu.Unlock()
}

// Recent returns up to limit events, newest first.
func (l *EventLog) Recent(limit int) []usecase.Envelope {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.next
	if l.full {
		n = len(l.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]usecase.Envelope, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (l.next - 1 - i + len(l.buf)) % len(l.buf)
		out = append(out, l.buf[idx])
	}
	return out
}
