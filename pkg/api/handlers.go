package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/change"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/engine"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/logging"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/simplify"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: false, Error: msg})
}

// record adds an api-sourced event when an event buffer is configured.
func (s *Server) record(rec logging.EventRecord) {
	if s.eventBuf == nil {
		return
	}
	rec.Source = "api"
	s.eventBuf.Add(rec)
}

// writeChangeError reports a failed change operation. Validation errors
// are the caller's fault and map to 422 with the kind attached.
func (s *Server) writeChangeError(w http.ResponseWriter, op string, err error) {
	ve, ok := change.AsValidationError(err)
	if !ok {
		s.metrics.requests.WithLabelValues(op, "error").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.metrics.requests.WithLabelValues(op, "rejected").Inc()
	s.metrics.validationErrors.WithLabelValues(ve.Kind.String()).Inc()
	s.record(logging.EventRecord{
		Type:      logging.EventReject,
		Kind:      ve.Kind.String(),
		Interface: ve.Interface,
		Line:      ve.Line,
		Message:   ve.Error(),
	})
	writeJSON(w, http.StatusUnprocessableEntity, Response{
		Success: false,
		Error:   ve.Error(),
		Data: ErrorDetail{
			Kind:      ve.Kind.String(),
			Interface: ve.Interface,
			VLAN:      ve.VLAN,
			Line:      ve.Line,
		},
	})
}

// ensureConfigure puts the store in configuration mode. The REST API has
// no session, so every mutating call shares the one candidate.
func (s *Server) ensureConfigure() {
	if !s.store.InConfigMode() {
		s.store.EnterConfigure()
	}
}

func nonBlankLines(out string) int {
	return lo.CountBy(strings.Split(out, "\n"), func(l string) bool {
		return strings.TrimSpace(l) != ""
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]string{"status": "ok"})
}

func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	m := s.store.Model()
	writeOK(w, StatusResponse{
		Uptime:       time.Since(s.startTime).Truncate(time.Second).String(),
		ConfigLoaded: len(m.Interfaces) > 0 || len(m.Domains) > 0,
		ConfigMode:   s.store.InConfigMode(),
		Dirty:        s.store.IsDirty(),
		Interfaces:   len(m.Interfaces),
		Domains:      len(m.Domains),
		HistorySize:  len(s.store.History()),
	})
}

func (s *Server) parseHandler(w http.ResponseWriter, r *http.Request) {
	var req ConfigTextRequest
	if err := decodeBody(r, configSchema, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	nodes := engine.ParseConfig(req.Config)
	if nodes == nil {
		nodes = []*config.Node{}
	}
	s.metrics.requests.WithLabelValues("parse", "ok").Inc()
	s.record(logging.EventRecord{
		Type:    logging.EventParse,
		Message: fmt.Sprintf("%d top-level nodes", len(nodes)),
	})
	writeOK(w, nodes)
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req ConfigTextRequest
	if err := decodeBody(r, configSchema, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a := engine.AnalyzeConfig(req.Config)
	s.metrics.requests.WithLabelValues("analyze", "ok").Inc()
	s.record(logging.EventRecord{
		Type:    logging.EventAnalyze,
		Message: fmt.Sprintf("%d bridge-domains, %d findings", len(a.Domains), len(a.Findings)),
	})
	writeOK(w, a)
}

func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeBody(r, generateSchema, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	base := req.Base
	if base == "" {
		base = s.store.ShowActive()
	}

	c, err := engine.GenerateChangeConfig(base, req.Change)
	if err != nil {
		s.writeChangeError(w, "generate", err)
		return
	}
	s.metrics.requests.WithLabelValues("generate", "ok").Inc()
	s.metrics.generatedLines.Observe(float64(c.Lines))
	s.record(logging.EventRecord{Type: logging.EventGenerate, Lines: c.Lines})
	writeOK(w, c)
}

func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	switch format := r.URL.Query().Get("format"); format {
	case "", "text":
		writeOK(w, ConfigResponse{
			Config:     s.store.ShowActive(),
			Candidate:  s.store.ShowCandidate(),
			ConfigMode: s.store.InConfigMode(),
			Dirty:      s.store.IsDirty(),
		})
	case "simplified":
		writeOK(w, map[string]string{"output": simplify.Render(s.store.Model()).Text})
	case "lint":
		res := simplify.Render(s.store.Model())
		writeOK(w, map[string]any{"output": res.LintText(), "findings": res.Findings})
	case "json":
		tree := config.Parse(s.store.ShowActive())
		nodes := tree.Children
		if nodes == nil {
			nodes = []*config.Node{}
		}
		writeOK(w, nodes)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
	}
}

func (s *Server) configSetBaseHandler(w http.ResponseWriter, r *http.Request) {
	var req ConfigTextRequest
	if err := decodeBody(r, configSchema, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	comment := req.Comment
	if comment == "" {
		comment = "set base configuration"
	}
	res, err := s.store.SetBase(r.Context(), req.Config, comment)
	if err != nil {
		s.metrics.requests.WithLabelValues("set-base", "error").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.requests.WithLabelValues("set-base", "ok").Inc()
	s.record(logging.EventRecord{Type: logging.EventSetBase, CommitID: res.ID, Message: comment})
	writeOK(w, CommitResponse{ID: res.ID, Timestamp: res.Timestamp})
}

func (s *Server) configPreviewHandler(w http.ResponseWriter, r *http.Request) {
	var req ChangeRequest
	if err := decodeBody(r, changeSchema, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.ensureConfigure()
	if err := s.store.SetChange(req.Change); err != nil {
		s.writeChangeError(w, "preview", err)
		return
	}
	out, err := s.store.Preview()
	if err != nil {
		s.writeChangeError(w, "preview", err)
		return
	}
	s.metrics.requests.WithLabelValues("preview", "ok").Inc()
	writeOK(w, PreviewResponse{ChangeOutput: out, Lines: nonBlankLines(out)})
}

func (s *Server) configCommitCheckHandler(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if err := decodeBody(r, commitSchema, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.ensureConfigure()
	if req.Change != nil {
		if err := s.store.SetChange(*req.Change); err != nil {
			s.writeChangeError(w, "commit-check", err)
			return
		}
	}
	if err := s.store.CommitCheck(); err != nil {
		s.writeChangeError(w, "commit-check", err)
		return
	}
	s.metrics.requests.WithLabelValues("commit-check", "ok").Inc()
	writeOK(w, CommitResponse{Message: "configuration check succeeds"})
}

func (s *Server) configCommitHandler(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if err := decodeBody(r, commitSchema, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.ensureConfigure()
	if req.Change != nil {
		if err := s.store.SetChange(*req.Change); err != nil {
			s.writeChangeError(w, "commit", err)
			return
		}
	}
	res, err := s.store.Commit(r.Context(), req.Comment)
	if err != nil {
		s.writeChangeError(w, "commit", err)
		return
	}

	s.metrics.requests.WithLabelValues("commit", "ok").Inc()
	if res.Output == "" {
		writeOK(w, CommitResponse{Message: "no changes"})
		return
	}
	lines := nonBlankLines(res.Output)
	s.metrics.commits.Inc()
	s.metrics.generatedLines.Observe(float64(lines))
	s.record(logging.EventRecord{
		Type:     logging.EventCommit,
		CommitID: res.ID,
		Lines:    lines,
		Message:  req.Comment,
	})
	writeOK(w, CommitResponse{ID: res.ID, Timestamp: res.Timestamp, Output: res.Output})
}

func (s *Server) configRollbackHandler(w http.ResponseWriter, r *http.Request) {
	var req RollbackRequest
	if err := decodeBody(r, rollbackSchema, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.ensureConfigure()

	var (
		res *CommitResponse
		err error
	)
	if req.ID != "" {
		cr, rerr := s.store.RollbackTo(r.Context(), req.ID)
		if cr != nil {
			res = &CommitResponse{ID: cr.ID, Timestamp: cr.Timestamp}
		}
		err = rerr
	} else {
		cr, rerr := s.store.Rollback(r.Context(), req.N)
		if cr != nil {
			res = &CommitResponse{ID: cr.ID, Timestamp: cr.Timestamp}
		}
		err = rerr
	}
	if err != nil {
		s.metrics.requests.WithLabelValues("rollback", "error").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.metrics.requests.WithLabelValues("rollback", "ok").Inc()
	if res == nil {
		writeOK(w, CommitResponse{Message: "candidate change discarded"})
		return
	}
	res.Message = "rollback complete"
	s.record(logging.EventRecord{Type: logging.EventRollback, CommitID: res.ID})
	writeOK(w, res)
}

func (s *Server) configHistoryHandler(w http.ResponseWriter, _ *http.Request) {
	entries := s.store.History()
	out := make([]HistoryEntryInfo, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntryInfo{
			Index:     i + 1,
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Comment:   e.Comment,
			Output:    e.Output,
		}
	}
	writeOK(w, out)
}

// configCompareHandler diffs the active configuration against the
// candidate, or against ?rollback=n.
func (s *Server) configCompareHandler(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("rollback"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "rollback must be a positive integer")
			return
		}
		diff, err := s.store.ShowRollback(n)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeOK(w, CompareResponse{Diff: diff})
		return
	}

	s.ensureConfigure()
	diff, err := s.store.ShowCompare()
	if err != nil {
		s.writeChangeError(w, "compare", err)
		return
	}
	writeOK(w, CompareResponse{Diff: diff})
}

// eventsHandler returns recent events, newest first. ?since=seq returns
// the events after seq instead, oldest first.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if s.eventBuf == nil {
		writeError(w, http.StatusServiceUnavailable, "event buffer not available")
		return
	}
	filter := eventFilterFromQuery(r)
	q := r.URL.Query()

	if v := q.Get("since"); v != "" {
		seq, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be a sequence number")
			return
		}
		events := lo.Filter(s.eventBuf.Since(seq), func(rec logging.EventRecord, _ int) bool {
			return filter.Matches(&rec)
		})
		writeOK(w, nonNilEvents(events))
		return
	}

	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	writeOK(w, nonNilEvents(s.eventBuf.LatestFiltered(limit, filter)))
}

func nonNilEvents(events []logging.EventRecord) []logging.EventRecord {
	if events == nil {
		return []logging.EventRecord{}
	}
	return events
}
