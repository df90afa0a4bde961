package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/logging"
)

// syncRecorder guards the recorder body, which the handler writes from
// its own goroutine.
type syncRecorder struct {
	mu sync.Mutex
	*httptest.ResponseRecorder
}

func (r *syncRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(b)
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Body.String()
}

func TestSetSSEHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	setSSEHeaders(w)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}
	if cn := w.Header().Get("Connection"); cn != "keep-alive" {
		t.Errorf("Connection = %q, want keep-alive", cn)
	}
}

func TestWriteSSEEvent(t *testing.T) {
	w := httptest.NewRecorder()
	writeSSEEvent(w, "42", "test_event", `{"key":"value"}`)

	body := w.Body.String()
	if !strings.Contains(body, "id: 42\n") {
		t.Errorf("missing id line in %q", body)
	}
	if !strings.Contains(body, "event: test_event\n") {
		t.Errorf("missing event line in %q", body)
	}
	if !strings.Contains(body, "data: {\"key\":\"value\"}\n") {
		t.Errorf("missing data line in %q", body)
	}
	if !strings.HasSuffix(body, "\n\n") {
		t.Errorf("SSE event should end with double newline")
	}
}

func TestWriteSSEEventNoEventType(t *testing.T) {
	w := httptest.NewRecorder()
	writeSSEEvent(w, "1", "", "hello")

	body := w.Body.String()
	if strings.Contains(body, "event:") {
		t.Errorf("should not have event line when empty, got %q", body)
	}
	if !strings.Contains(body, "id: 1\n") {
		t.Errorf("missing id line")
	}
	if !strings.Contains(body, "data: hello\n") {
		t.Errorf("missing data line")
	}
}

// streamEvents runs the stream handler for path, adds events once the
// subscription is in place and returns the body.
func streamEvents(t *testing.T, buf *logging.EventBuffer, req *http.Request, events ...logging.EventRecord) string {
	t.Helper()
	s := &Server{eventBuf: buf}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req = req.WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		s.eventStreamHandler(w, req)
		close(done)
	}()

	// Wait for subscription to be set up
	time.Sleep(50 * time.Millisecond)
	for _, ev := range events {
		buf.Add(ev)
	}
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	return w.body()
}

func TestEventStreamHandler(t *testing.T) {
	buf := logging.NewEventBuffer(100)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/stream", nil)

	body := streamEvents(t, buf, req, logging.EventRecord{
		Type:      logging.EventReject,
		Source:    "api",
		Kind:      "BundledInterfaceRejected",
		Interface: "HundredGigE0/0/0/10",
		Line:      1,
	})

	if !strings.Contains(body, "event: REJECT") {
		t.Errorf("expected REJECT event in response, got %q", body)
	}
	if !strings.Contains(body, "id: 1\n") {
		t.Errorf("event id should be the buffer sequence, got %q", body)
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var rec logging.EventRecord
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &rec); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if rec.Interface != "HundredGigE0/0/0/10" || rec.Kind != "BundledInterfaceRejected" {
			t.Errorf("decoded event = %+v", rec)
		}
		return
	}
	t.Fatalf("no data line in %q", body)
}

func TestEventStreamTypeFilter(t *testing.T) {
	buf := logging.NewEventBuffer(100)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/stream?type=commit", nil)

	body := streamEvents(t, buf, req,
		logging.EventRecord{Type: logging.EventGenerate, Lines: 5},
		logging.EventRecord{Type: logging.EventCommit, CommitID: "c-1"},
	)

	if strings.Contains(body, "GENERATE") {
		t.Errorf("GENERATE should be filtered out, got %q", body)
	}
	if !strings.Contains(body, "c-1") {
		t.Errorf("COMMIT should pass filter, got %q", body)
	}
}

func TestEventStreamSeverityFilter(t *testing.T) {
	buf := logging.NewEventBuffer(100)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/stream?severity=warning", nil)

	body := streamEvents(t, buf, req,
		logging.EventRecord{Type: logging.EventParse},
		logging.EventRecord{Type: logging.EventReject, Kind: "MissingDescription"},
	)

	if strings.Contains(body, "PARSE") {
		t.Errorf("PARSE (info) should be filtered with severity=warning, got %q", body)
	}
	if !strings.Contains(body, "MissingDescription") {
		t.Errorf("REJECT (warning) should pass severity=warning filter, got %q", body)
	}
}

func TestEventStreamResume(t *testing.T) {
	buf := logging.NewEventBuffer(100)
	buf.Add(logging.EventRecord{Type: logging.EventCommit, CommitID: "old"})
	buf.Add(logging.EventRecord{Type: logging.EventCommit, CommitID: "missed"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/stream", nil)
	req.Header.Set("Last-Event-ID", "1")

	body := streamEvents(t, buf, req, logging.EventRecord{Type: logging.EventCommit, CommitID: "live"})

	if strings.Contains(body, "old") {
		t.Errorf("event 1 should not be replayed, got %q", body)
	}
	missed := strings.Index(body, "missed")
	live := strings.Index(body, "live")
	if missed < 0 || live < 0 || missed > live {
		t.Errorf("want missed then live, got %q", body)
	}
}

func TestEventStreamNoBuffer(t *testing.T) {
	s := &Server{eventBuf: nil}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/stream", nil)
	w := httptest.NewRecorder()
	s.eventStreamHandler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestEventRecordSeverity(t *testing.T) {
	tests := []struct {
		eventType string
		want      int
	}{
		{logging.EventReject, logging.SyslogWarning},
		{logging.EventLog, logging.SyslogWarning},
		{logging.EventCommit, logging.SyslogInfo},
		{"UNKNOWN_TYPE", logging.SyslogInfo},
	}

	for _, tt := range tests {
		if got := eventRecordSeverity(tt.eventType); got != tt.want {
			t.Errorf("eventRecordSeverity(%q) = %d, want %d", tt.eventType, got, tt.want)
		}
	}
}
