// Package store keeps the last text posted per report kind so unchanged
// reports are not posted twice.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Keys used by the reports.
const (
	KeyStatus   = "status"
	KeyMyStatus = "my-status"
)

// Store maps a report key to the last text seen for it.
type Store interface {
	// Get returns the stored text. ok is false when nothing was stored yet.
	Get(key string) (text string, ok bool, err error)

	// Put replaces the stored text.
	Put(key, text string) error
}

// FileStore keeps one flat text file per key in Dir.
type FileStore struct {
	Dir string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Path returns the file that holds key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.Dir, key+".txt")
}

// Get reads <Dir>/<key>.txt. A missing file is not an error.
func (s *FileStore) Get(key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

// Put writes <Dir>/<key>.txt, creating Dir if needed.
func (s *FileStore) Put(key, text string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.Path(key), []byte(text), 0644)
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid store key %q", key)
	}
	return nil
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]string)}
}

func (s *MemStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.data[key]
	return text, ok, nil
}

func (s *MemStore) Put(key, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = text
	return nil
}
