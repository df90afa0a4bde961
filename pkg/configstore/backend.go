package configstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Revision is one persisted version of the base configuration.
type Revision struct {
	ID        string    `db:"commit_id" json:"id"`
	Timestamp time.Time `db:"created_at" json:"timestamp"`
	Comment   string    `db:"comment" json:"comment"`
	Config    string    `db:"config_text" json:"-"`
}

// Backend persists the active base configuration.
type Backend interface {
	// Load returns the latest stored configuration, or "" when none exists.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, rev Revision) error
}

// FileBackend keeps the configuration in a single text file.
type FileBackend struct {
	Path string
}

// NewFileBackend returns a backend for path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

func (b *FileBackend) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil // start with empty config
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return string(data), nil
}

func (b *FileBackend) Save(ctx context.Context, rev Revision) error {
	if b.Path == "" {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(b.Path), ".xrcfg-*")
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if _, err := tmp.WriteString(rev.Config); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// MemoryBackend keeps revisions in memory. Used by tests and the offline
// CLI.
type MemoryBackend struct {
	Revisions []Revision
}

func (b *MemoryBackend) Load(ctx context.Context) (string, error) {
	if len(b.Revisions) == 0 {
		return "", nil
	}
	return b.Revisions[len(b.Revisions)-1].Config, nil
}

func (b *MemoryBackend) Save(ctx context.Context, rev Revision) error {
	b.Revisions = append(b.Revisions, rev)
	return nil
}
