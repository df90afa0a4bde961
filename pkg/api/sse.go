package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/logging"
)

// setSSEHeaders configures the response for Server-Sent Events streaming.
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// writeSSEEvent writes a single SSE event to the response.
func writeSSEEvent(w http.ResponseWriter, id string, event string, data string) {
	fmt.Fprintf(w, "id: %s\n", id)
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// eventFilterFromQuery reads ?type=, ?source= and ?interface=.
func eventFilterFromQuery(r *http.Request) logging.EventFilter {
	q := r.URL.Query()
	return logging.EventFilter{
		Type:      q.Get("type"),
		Source:    q.Get("source"),
		Interface: q.Get("interface"),
	}
}

// eventStreamHandler streams configuration events via SSE. Event ids are
// buffer sequence numbers, so a client reconnecting with Last-Event-ID
// first receives whatever it missed that is still buffered.
// Supports ?type=, ?source=, ?interface= and ?severity= filters.
func (s *Server) eventStreamHandler(w http.ResponseWriter, r *http.Request) {
	if s.eventBuf == nil {
		writeError(w, http.StatusServiceUnavailable, "event buffer not available")
		return
	}

	filter := eventFilterFromQuery(r)
	severityFilter := logging.ParseSeverity(r.URL.Query().Get("severity"))

	setSSEHeaders(w)

	// Subscribe before replaying so nothing falls between the two.
	sub := s.eventBuf.Subscribe(128)
	defer sub.Close()

	var last uint64
	send := func(rec logging.EventRecord) {
		if rec.Seq <= last {
			return
		}
		last = rec.Seq
		if !filter.Matches(&rec) {
			return
		}
		if severityFilter != 0 && eventRecordSeverity(rec.Type) > severityFilter {
			return
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return
		}
		writeSSEEvent(w, strconv.FormatUint(rec.Seq, 10), rec.Type, string(data))
	}

	if id := r.Header.Get("Last-Event-ID"); id != "" {
		if seq, err := strconv.ParseUint(id, 10, 64); err == nil {
			for _, rec := range s.eventBuf.Since(seq) {
				send(rec)
			}
		}
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-sub.C:
			send(rec)
		}
	}
}

// eventRecordSeverity maps event type names to syslog severity.
func eventRecordSeverity(eventType string) int {
	switch eventType {
	case logging.EventReject, logging.EventLog:
		return logging.SyslogWarning
	default:
		return logging.SyslogInfo
	}
}
