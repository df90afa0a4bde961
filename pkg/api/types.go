// Package api implements the HTTP REST API and Prometheus metrics endpoint.
package api

import "time"

// Response is the standard JSON response envelope.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorDetail is attached as Data to rejected change inputs so clients can
// match on the kind instead of the message.
type ErrorDetail struct {
	Kind      string `json:"kind"`
	Interface string `json:"interface,omitempty"`
	VLAN      int    `json:"vlan,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// StatusResponse holds daemon status information.
type StatusResponse struct {
	Uptime       string `json:"uptime"`
	ConfigLoaded bool   `json:"config_loaded"`
	ConfigMode   bool   `json:"config_mode"`
	Dirty        bool   `json:"dirty"`
	Interfaces   int    `json:"interfaces"`
	Domains      int    `json:"bridge_domains"`
	HistorySize  int    `json:"history_size"`
}

// ConfigTextRequest carries a whole base configuration.
type ConfigTextRequest struct {
	Config  string `json:"config"`
	Comment string `json:"comment,omitempty"`
}

// GenerateRequest asks for the commands of a change. An empty Base means
// the active configuration.
type GenerateRequest struct {
	Base   string `json:"base,omitempty"`
	Change string `json:"change"`
}

// ChangeRequest carries a candidate change input.
type ChangeRequest struct {
	Change string `json:"change"`
}

// CommitRequest commits the candidate, replacing it with Change first when
// given.
type CommitRequest struct {
	Change  *string `json:"change,omitempty"`
	Comment string  `json:"comment,omitempty"`
}

// RollbackRequest selects a history entry by index (1 = most recent) or by
// commit id. N=0 with no ID discards the candidate.
type RollbackRequest struct {
	N  int    `json:"n"`
	ID string `json:"id,omitempty"`
}

// ConfigResponse is the active configuration and candidate state.
type ConfigResponse struct {
	Config     string `json:"config"`
	Candidate  string `json:"candidate,omitempty"`
	ConfigMode bool   `json:"config_mode"`
	Dirty      bool   `json:"dirty"`
}

// PreviewResponse holds the commands a candidate would generate.
type PreviewResponse struct {
	ChangeOutput string `json:"changeOutput"`
	Lines        int    `json:"lines"`
}

// CommitResponse describes a commit, set-base or rollback.
type CommitResponse struct {
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Output    string    `json:"output,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// HistoryEntryInfo is one rollback slot.
type HistoryEntryInfo struct {
	Index     int       `json:"index"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Comment   string    `json:"comment,omitempty"`
	Output    string    `json:"output,omitempty"`
}

// CompareResponse is a unified diff.
type CompareResponse struct {
	Diff string `json:"diff"`
}
