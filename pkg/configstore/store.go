// Package configstore holds the active base configuration together with a
// candidate change input, and implements preview, commit and rollback.
package configstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/change"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
)

// DefaultHistorySize bounds the number of rollback snapshots.
const DefaultHistorySize = 50

// CommitResult describes a successful commit.
type CommitResult struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Output    string    `json:"output"`
}

// Store manages the active base configuration and the candidate change.
type Store struct {
	mu         sync.RWMutex
	active     *config.ConfigTree
	model      *config.BaseModel // extracted from active
	change     string            // candidate change input
	history    *History
	dirty      bool
	configMode bool
	backend    Backend
}

// New creates a new config store persisting through backend. A nil
// backend keeps everything in memory.
func New(backend Backend) *Store {
	if backend == nil {
		backend = &MemoryBackend{}
	}
	s := &Store{
		history: NewHistory(DefaultHistorySize),
		backend: backend,
	}
	s.setActive(&config.ConfigTree{})
	return s
}

func (s *Store) setActive(tree *config.ConfigTree) {
	s.active = tree
	s.model = config.Extract(tree)
}

// revisionLister is implemented by backends that keep every revision.
type revisionLister interface {
	Revisions(ctx context.Context, limit int) ([]Revision, error)
}

// Load reads the active configuration from the backend. Backends that keep
// every revision also restore the rollback history.
func (s *Store) Load(ctx context.Context) error {
	text, err := s.backend.Load(ctx)
	if err != nil {
		return err
	}

	var restored *History
	if rl, ok := s.backend.(revisionLister); ok {
		size := s.history.MaxSize()
		revs, err := rl.Revisions(ctx, size+1)
		if err != nil {
			slog.Warn("failed to restore rollback history", "err", err)
		} else {
			restored = historyFromRevisions(revs, size)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setActive(config.Parse(text))
	if restored != nil {
		s.history = restored
	}
	return nil
}

// historyFromRevisions rebuilds rollback snapshots from revisions listed
// newest first. A revision's snapshot is the next older revision, or an
// empty configuration for the first revision ever stored.
func historyFromRevisions(revs []Revision, maxSize int) *History {
	h := NewHistory(maxSize)
	complete := len(revs) <= maxSize
	for i := len(revs) - 1; i >= 0; i-- {
		var replaced *config.ConfigTree
		switch {
		case i+1 < len(revs):
			replaced = config.Parse(revs[i+1].Config)
		case complete:
			replaced = &config.ConfigTree{}
		default:
			continue
		}
		h.Push(&HistoryEntry{
			ID:        revs[i].ID,
			Config:    replaced,
			Timestamp: revs[i].Timestamp,
			Comment:   revs[i].Comment,
		})
	}
	return h
}

// Save persists the active configuration.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	rev := Revision{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Comment:   "save",
		Config:    s.active.Format(),
	}
	s.mu.RUnlock()
	return s.backend.Save(ctx, rev)
}

// SetBase replaces the active configuration with text, keeping the
// previous one in history. Any candidate change is discarded since it was
// validated against the old base.
func (s *Store) SetBase(ctx context.Context, text, comment string) (*CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &CommitResult{ID: uuid.NewString(), Timestamp: time.Now()}
	s.history.Push(&HistoryEntry{
		ID:        res.ID,
		Config:    s.active.Clone(),
		Timestamp: res.Timestamp,
		Comment:   comment,
	})
	s.setActive(config.Parse(text))
	s.change = ""
	s.dirty = false
	s.persistLocked(ctx, res, comment)
	return res, nil
}

// EnterConfigure enters configuration mode with an empty candidate change.
func (s *Store) EnterConfigure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configMode {
		return fmt.Errorf("already in configuration mode")
	}
	s.configMode = true
	s.change = ""
	s.dirty = false
	return nil
}

// ExitConfigure exits configuration mode, discarding the candidate.
func (s *Store) ExitConfigure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.change = ""
	s.configMode = false
	s.dirty = false
}

// InConfigMode returns true if currently in configuration mode.
func (s *Store) InConfigMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configMode
}

// IsDirty returns true if a candidate change has been set.
func (s *Store) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// SetChange validates input against the active base and makes it the
// candidate change. An invalid input leaves the candidate untouched.
func (s *Store) SetChange(input string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.configMode {
		return fmt.Errorf("not in configuration mode")
	}
	if _, err := change.Interpret(change.ParseInput(input), s.model); err != nil {
		return err
	}
	s.change = input
	s.dirty = strings.TrimSpace(input) != ""
	return nil
}

// planLocked interprets the candidate change. Callers hold s.mu.
func (s *Store) planLocked() (*change.Plan, error) {
	if !s.configMode {
		return nil, fmt.Errorf("not in configuration mode")
	}
	set, err := change.Interpret(change.ParseInput(s.change), s.model)
	if err != nil {
		return nil, err
	}
	return change.NewPlan(s.model, set), nil
}

// Preview returns the commands the candidate change would generate.
func (s *Store) Preview() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.planLocked()
	if err != nil {
		return "", err
	}
	return p.Render(), nil
}

// CommitCheck validates the candidate change without applying it.
func (s *Store) CommitCheck() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := s.planLocked()
	return err
}

// Commit applies the candidate change to the active configuration. A
// change that produces no commands is accepted without a history entry.
func (s *Store) Commit(ctx context.Context, comment string) (*CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.planLocked()
	if err != nil {
		return nil, fmt.Errorf("commit check failed: %w", err)
	}

	res := &CommitResult{ID: uuid.NewString(), Timestamp: time.Now(), Output: p.Render()}
	if p.Empty() {
		s.change = ""
		s.dirty = false
		return res, nil
	}

	// Push current active to history
	s.history.Push(&HistoryEntry{
		ID:        res.ID,
		Config:    s.active.Clone(),
		Timestamp: res.Timestamp,
		Comment:   comment,
		Output:    res.Output,
	})

	s.setActive(change.Apply(s.active, p))
	s.change = ""
	s.dirty = false
	s.persistLocked(ctx, res, comment)
	return res, nil
}

// persistLocked saves the active configuration. Failures are logged, not
// returned: the in-memory commit has already happened.
func (s *Store) persistLocked(ctx context.Context, res *CommitResult, comment string) {
	err := s.backend.Save(ctx, Revision{
		ID:        res.ID,
		Timestamp: res.Timestamp,
		Comment:   comment,
		Config:    s.active.Format(),
	})
	if err != nil {
		slog.Warn("failed to save config", "commit", res.ID, "err", err)
	}
}

// Rollback with n=0 discards the candidate change. n>0 restores the
// configuration replaced by the nth most recent commit; the current one is
// kept in history so the rollback can itself be rolled back.
func (s *Store) Rollback(ctx context.Context, n int) (*CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.configMode {
		return nil, fmt.Errorf("not in configuration mode")
	}

	if n == 0 {
		s.change = ""
		s.dirty = false
		return nil, nil
	}

	entry, err := s.history.Get(n - 1)
	if err != nil {
		return nil, err
	}
	restored := entry.Config.Clone()

	res := &CommitResult{ID: uuid.NewString(), Timestamp: time.Now()}
	comment := fmt.Sprintf("rollback %d", n)
	s.history.Push(&HistoryEntry{
		ID:        res.ID,
		Config:    s.active.Clone(),
		Timestamp: res.Timestamp,
		Comment:   comment,
	})
	s.setActive(restored)
	s.change = ""
	s.dirty = false
	s.persistLocked(ctx, res, comment)
	return res, nil
}

// RollbackTo restores the configuration replaced by commit id.
func (s *Store) RollbackTo(ctx context.Context, id string) (*CommitResult, error) {
	s.mu.RLock()
	n, _, ok := s.history.Find(id)
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("commit %s not found in history", id)
	}
	return s.Rollback(ctx, n+1)
}

// ShowActive returns the active configuration as hierarchical text.
func (s *Store) ShowActive() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.Format()
}

// ShowCandidate returns the candidate change input.
func (s *Store) ShowCandidate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.change
}

// Model returns the base model of the active configuration. It must not
// be modified.
func (s *Store) Model() *config.BaseModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// History returns the rollback snapshots, most recent first.
func (s *Store) History() []*HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.List()
}

// ShowCompare returns a unified diff between the active configuration and
// the configuration the candidate change would produce.
func (s *Store) ShowCompare() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.planLocked()
	if err != nil {
		return "", err
	}
	return unifiedDiff(s.active, change.Apply(s.active, p), "active", "candidate")
}

// ShowRollback returns a unified diff between the active configuration and
// rollback n.
func (s *Store) ShowRollback(n int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, err := s.history.Get(n - 1)
	if err != nil {
		return "", err
	}
	return unifiedDiff(s.active, entry.Config, "active", fmt.Sprintf("rollback %d", n))
}

func unifiedDiff(from, to *config.ConfigTree, fromName, toName string) (string, error) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(from.Format()),
		B:        difflib.SplitLines(to.Format()),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("diff: %w", err)
	}
	if diff == "" {
		return "[no changes]\n", nil
	}
	return diff, nil
}
