package logging

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"
)

func TestEventBufferWrap(t *testing.T) {
	eb := NewEventBuffer(3)
	for i := 0; i < 5; i++ {
		eb.Add(EventRecord{Type: EventGenerate, Lines: i})
	}

	got := eb.Latest(10)
	if len(got) != 3 {
		t.Fatalf("Latest returned %d events, want 3", len(got))
	}
	for i, want := range []int{4, 3, 2} {
		if got[i].Lines != want {
			t.Errorf("event %d: Lines = %d, want %d", i, got[i].Lines, want)
		}
	}
	if got[0].Seq != 5 {
		t.Errorf("newest Seq = %d, want 5", got[0].Seq)
	}
	if got[0].Time.IsZero() {
		t.Error("Time not stamped")
	}

	since := eb.Since(3)
	if len(since) != 2 || since[0].Seq != 4 || since[1].Seq != 5 {
		t.Errorf("Since(3) = %+v", since)
	}
	if eb.Latest(0) != nil {
		t.Error("Latest(0) should be nil")
	}
}

func TestEventBufferFilter(t *testing.T) {
	eb := NewEventBuffer(10)
	eb.Add(EventRecord{Type: EventGenerate, Source: "api", Interface: "FortyGigE0/0/0/46"})
	eb.Add(EventRecord{Type: EventReject, Source: "grpc", Interface: "HundredGigE0/0/0/10", Kind: "BundledInterfaceRejected"})
	eb.Add(EventRecord{Type: EventCommit, Source: "api"})

	tests := []struct {
		filter EventFilter
		want   int
	}{
		{EventFilter{}, 3},
		{EventFilter{Type: "reject"}, 1},
		{EventFilter{Source: "api"}, 2},
		{EventFilter{Interface: "fortygig"}, 1},
		{EventFilter{Type: EventCommit, Source: "grpc"}, 0},
	}
	for _, tt := range tests {
		if got := eb.LatestFiltered(10, tt.filter); len(got) != tt.want {
			t.Errorf("LatestFiltered(%+v) = %d events, want %d", tt.filter, len(got), tt.want)
		}
	}
	if !(EventFilter{}).IsEmpty() {
		t.Error("zero filter should be empty")
	}
}

func TestSubscription(t *testing.T) {
	eb := NewEventBuffer(4)
	sub := eb.Subscribe(1)

	eb.Add(EventRecord{Type: EventCommit, CommitID: "a"})
	eb.Add(EventRecord{Type: EventCommit, CommitID: "b"}) // dropped, channel full

	select {
	case rec := <-sub.C:
		if rec.CommitID != "a" {
			t.Errorf("got %q, want a", rec.CommitID)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	sub.Close()
	eb.Add(EventRecord{Type: EventCommit, CommitID: "c"})
	select {
	case rec := <-sub.C:
		t.Errorf("event after Close: %+v", rec)
	default:
	}
}

func TestHandlerMirrorsWarnings(t *testing.T) {
	var out bytes.Buffer
	eb := NewEventBuffer(8)
	h := NewHandler(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}), eb)
	log := slog.New(h).With("component", "api")

	log.Info("request served")
	log.WithGroup("req").Warn("change input rejected", "kind", "MissingDescription")

	if !strings.Contains(out.String(), "request served") {
		t.Errorf("base handler did not receive record:\n%s", out.String())
	}
	events := eb.Latest(10)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	want := "change input rejected component=api req.kind=MissingDescription"
	if events[0].Type != EventLog || events[0].Message != want {
		t.Errorf("event = %+v, want message %q", events[0], want)
	}
}

func TestSyslogSendReceive(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	c, err := NewSyslogClient(pc.LocalAddr().String(), "xrcfgd")
	if err != nil {
		t.Fatalf("NewSyslogClient: %v", err)
	}
	h := NewHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), nil)
	h.SetClients([]*SyslogClient{c})
	defer h.Close()

	if err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "commit failed", 0)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	buf := make([]byte, 1024)
	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg := string(buf[:n])
	if !strings.HasPrefix(msg, "<131>") {
		t.Errorf("priority prefix wrong: %q", msg)
	}
	if !strings.Contains(msg, "xrcfgd: commit failed") {
		t.Errorf("message body wrong: %q", msg)
	}
}

func TestShouldSend(t *testing.T) {
	c := &SyslogClient{MinSeverity: SyslogWarning}
	if !c.ShouldSend(SyslogError) || !c.ShouldSend(SyslogWarning) || c.ShouldSend(SyslogInfo) {
		t.Error("warning filter misbehaves")
	}
	if ParseSeverity("warning") != SyslogWarning || ParseSeverity("bogus") != 0 {
		t.Error("ParseSeverity misbehaves")
	}
}
