package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/distlab/hiconsensus/pkg/consensustypes"
)

// fileStore persists the peer list as a pretty-printed JSON array,
// rewritten in full and atomically (write-temp-then-rename) on every
// mutation.
type fileStore struct {
	path string
}

func newFileStore(path string) (*fileStore, error) {
	s := &fileStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.write(nil); err != nil {
			return nil, fmt.Errorf("registry: initialize peers file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("registry: stat peers file: %w", err)
	}
	return s, nil
}

func (s *fileStore) read() ([]PeerRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("registry: read peers file: %w", err)
	}
	var peers []PeerRecord
	if err := json.Unmarshal(data, &peers); err != nil {
		return nil, fmt.Errorf("registry: parse peers file: %w", err)
	}
	return peers, nil
}

func (s *fileStore) write(peers []PeerRecord) error {
	if peers == nil {
		peers = []PeerRecord{}
	}
	data, err := json.MarshalIndent(peers, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: encode peers file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("registry: write temp peers file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("registry: rename peers file: %w", err)
	}
	return nil
}

// append adds a new record with id = last id + 1 (or 0 if empty) and
// persists the result, returning the assigned id.
func (s *fileStore) append(addr string) (PeerRecord, error) {
	peers, err := s.read()
	if err != nil {
		return PeerRecord{}, err
	}

	var nextID consensustypes.PeerId
	if len(peers) > 0 {
		nextID = peers[len(peers)-1].ID + 1
	}

	record := PeerRecord{ID: nextID, Addr: addr}
	peers = append(peers, record)

	if err := s.write(peers); err != nil {
		return PeerRecord{}, err
	}
	return record, nil
}
