package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// SessionTimeFormat names session directories.
const SessionTimeFormat = "2006-01-02 15.04.05"

// SegmentStore is where recorded segments are written.
// Implementations must be safe for concurrent use.
type SegmentStore interface {
	Write(name string, data []byte) error
}

// DirStore writes segments as files in one directory.
type DirStore struct {
	dir string
}

// NewSession creates <root>/<name>/<start formatted with SessionTimeFormat>
// and returns a store writing into it.
func NewSession(root, name string, start time.Time) (*DirStore, error) {
	dir := filepath.Join(root, name, start.Format(SessionTimeFormat))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the session directory.
func (s *DirStore) Dir() string {
	return s.dir
}

// Path returns the path a segment called name is written to.
func (s *DirStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Write implements SegmentStore.Write.
func (s *DirStore) Write(name string, data []byte) error {
	if err := os.WriteFile(s.Path(name), data, 0644); err != nil {
		return fmt.Errorf("write segment %s: %w", name, err)
	}
	return nil
}

// MemoryStore keeps segments in memory. Used by tests and dry runs.
type MemoryStore struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

// Write implements SegmentStore.Write.
func (s *MemoryStore) Write(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = append([]byte(nil), data...)
	s.writes++
	return nil
}

// Get returns the bytes written under name.
func (s *MemoryStore) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, ok
}

// Names returns the stored segment names in lexical order.
func (s *MemoryStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Writes returns the number of Write calls.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
