// Package memory serves resources from process memory or the local disk.
// It backs DATA_BACKEND=memory and the tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned for names the store does not hold.
var ErrNotFound = errors.New("resource not found")

// Store maps names to file contents. mem://<name> reads from the map,
// file:///abs/path reads the file directly.
type Store struct {
	mu    sync.RWMutex
	files map[string][]byte
	hits  map[string]int
}

func New(files map[string][]byte) *Store {
	s := &Store{files: make(map[string][]byte, len(files)), hits: make(map[string]int)}
	for k, v := range files {
		s.files[k] = v
	}
	return s
}

// NewFromDir loads every regular file of dir, keyed by its base name. When
// dir holds none of the three exports the sample data set is used instead.
func NewFromDir(dir string) (*Store, error) {
	s := New(nil)
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read data dir: %w", err)
		}
		for _, e := range entries {
			if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", e.Name(), err)
			}
			s.files[e.Name()] = data
		}
	}
	if !s.has(OrdersFile) && !s.has(ArticlesFile) && !s.has(ExpensesFile) {
		seed, err := SampleFiles()
		if err != nil {
			return nil, err
		}
		for k, v := range seed {
			s.files[k] = v
		}
	}
	return s, nil
}

// Put replaces the content stored under name.
func (s *Store) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = data
}

// Hits reports how many times name was fetched.
func (s *Store) Hits(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits[name]
}

func (s *Store) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "file":
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return data, nil
	case "mem", "":
		name := strings.TrimPrefix(u.Host+u.Path, "/")
		s.mu.Lock()
		defer s.mu.Unlock()
		data, ok := s.files[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		s.hits[name]++
		return append([]byte(nil), data...), nil
	}
	return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
}

func (s *Store) has(name string) bool {
	_, ok := s.files[name]
	return ok
}
