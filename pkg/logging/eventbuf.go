// Package logging records recent configuration events and forwards log
// records to syslog.
package logging

import (
	"strings"
	"sync"
	"time"
)

// Event types.
const (
	EventParse    = "PARSE"
	EventAnalyze  = "ANALYZE"
	EventGenerate = "GENERATE"
	EventReject   = "REJECT"
	EventCommit   = "COMMIT"
	EventRollback = "ROLLBACK"
	EventSetBase  = "SET_BASE"
	EventLog      = "LOG"
)

// EventRecord is one transformation or store event.
type EventRecord struct {
	Seq    uint64    `json:"seq"`
	Time   time.Time `json:"time"`
	Type   string    `json:"type"`
	Source string    `json:"source,omitempty"` // "api", "grpc", "log"
	// Kind is the validation error kind for REJECT events.
	Kind      string `json:"kind,omitempty"`
	Interface string `json:"interface,omitempty"`
	Line      int    `json:"line,omitempty"`
	Lines     int    `json:"lines,omitempty"` // generated command lines
	CommitID  string `json:"commitId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// EventBuffer is a thread-safe circular buffer for recent events.
type EventBuffer struct {
	mu    sync.RWMutex
	buf   []EventRecord
	size  int
	head  int    // next write position
	count int    // number of events stored
	seq   uint64 // monotonically increasing sequence number

	subMu sync.RWMutex
	subs  map[*Subscription]struct{}
}

// Subscription receives new events from an EventBuffer.
type Subscription struct {
	C  chan EventRecord
	eb *EventBuffer
}

// Close unsubscribes. The channel is left open for pending reads.
func (s *Subscription) Close() {
	s.eb.unsubscribe(s)
}

// NewEventBuffer creates a new event buffer with the given capacity.
func NewEventBuffer(size int) *EventBuffer {
	if size < 1 {
		size = 1
	}
	return &EventBuffer{
		buf:  make([]EventRecord, size),
		size: size,
		subs: make(map[*Subscription]struct{}),
	}
}

// Add stamps rec with a sequence number (and the current time when unset)
// and stores it, overwriting the oldest event if full. Subscribers are
// notified non-blocking.
func (eb *EventBuffer) Add(rec EventRecord) EventRecord {
	eb.mu.Lock()
	eb.seq++
	rec.Seq = eb.seq
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	eb.buf[eb.head] = rec
	eb.head = (eb.head + 1) % eb.size
	if eb.count < eb.size {
		eb.count++
	}
	eb.mu.Unlock()

	eb.subMu.RLock()
	for sub := range eb.subs {
		select {
		case sub.C <- rec:
		default: // drop if subscriber is slow
		}
	}
	eb.subMu.RUnlock()
	return rec
}

// Subscribe returns a Subscription that receives new events.
// Call Close() on the subscription when done.
func (eb *EventBuffer) Subscribe(bufSize int) *Subscription {
	if bufSize < 1 {
		bufSize = 64
	}
	sub := &Subscription{
		C:  make(chan EventRecord, bufSize),
		eb: eb,
	}
	eb.subMu.Lock()
	eb.subs[sub] = struct{}{}
	eb.subMu.Unlock()
	return sub
}

func (eb *EventBuffer) unsubscribe(sub *Subscription) {
	eb.subMu.Lock()
	delete(eb.subs, sub)
	eb.subMu.Unlock()
}

// EventFilter specifies criteria for filtering events.
type EventFilter struct {
	Type   string // exact match, case-insensitive
	Source string // exact match
	// Interface matches case-insensitive substrings, so "FortyGigE"
	// selects every FortyGigE port.
	Interface string
}

// IsEmpty returns true if no filter criteria are set.
func (f EventFilter) IsEmpty() bool {
	return f.Type == "" && f.Source == "" && f.Interface == ""
}

// Matches reports whether rec passes the filter.
func (f EventFilter) Matches(rec *EventRecord) bool {
	if f.Type != "" && !strings.EqualFold(rec.Type, f.Type) {
		return false
	}
	if f.Source != "" && rec.Source != f.Source {
		return false
	}
	if f.Interface != "" && !strings.Contains(strings.ToLower(rec.Interface), strings.ToLower(f.Interface)) {
		return false
	}
	return true
}

// LatestFiltered returns the most recent n events matching the filter, newest first.
func (eb *EventBuffer) LatestFiltered(n int, f EventFilter) []EventRecord {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if n <= 0 {
		return nil
	}

	var result []EventRecord
	for i := 0; i < eb.count && len(result) < n; i++ {
		idx := (eb.head - 1 - i + eb.size) % eb.size
		if f.Matches(&eb.buf[idx]) {
			result = append(result, eb.buf[idx])
		}
	}
	return result
}

// Latest returns the most recent n events, newest first.
func (eb *EventBuffer) Latest(n int) []EventRecord {
	return eb.LatestFiltered(n, EventFilter{})
}

// Since returns events with a sequence number greater than seq, oldest
// first. Used to resume an event stream.
func (eb *EventBuffer) Since(seq uint64) []EventRecord {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	var result []EventRecord
	for i := eb.count - 1; i >= 0; i-- {
		idx := (eb.head - 1 - i + eb.size) % eb.size
		if eb.buf[idx].Seq > seq {
			result = append(result, eb.buf[idx])
		}
	}
	return result
}
