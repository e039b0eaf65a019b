package adapter

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	m "github.com/mouse-blink/pbox/internal/model"
)

// SnapshotStore persists and retrieves box snapshots.
type SnapshotStore interface {
	SaveSnapshot(path m.Path, snapshot m.Snapshot) error
	LoadSnapshot(path m.Path) (m.Snapshot, error)
}

type snapshotStore struct {
	fs SourceFS
}

// NewSnapshotStore constructs a YAML-backed SnapshotStore.
func NewSnapshotStore(fs SourceFS) SnapshotStore {
	return &snapshotStore{fs: fs}
}

func (s *snapshotStore) SaveSnapshot(path m.Path, snapshot m.Snapshot) error {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := s.fs.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	return nil
}

func (s *snapshotStore) LoadSnapshot(path m.Path) (m.Snapshot, error) {
	var snapshot m.Snapshot

	data, err := s.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return snapshot, fmt.Errorf("snapshot %s does not exist: %w", path, err)
		}

		return snapshot, fmt.Errorf("read snapshot: %w", err)
	}

	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return snapshot, fmt.Errorf("decode snapshot %s: %w", path, err)
	}

	return snapshot, nil
}
