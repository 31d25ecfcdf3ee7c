package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrInvalidKey = errors.New("invalid object key")
	ErrNotFound   = errors.New("object not found")
)

// ObjectStore persists generated artefacts and returns the URL they are
// served from.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}

// LocalStore writes objects below Dir. The HTTP server exposes Dir under Prefix.
type LocalStore struct {
	Dir    string
	Prefix string
}

// NewLocalStore creates dir when missing.
func NewLocalStore(dir, prefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if prefix == "" {
		prefix = "/"
	}
	return &LocalStore{Dir: dir, Prefix: prefix}, nil
}

func (s *LocalStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path.Join(s.Prefix, key), nil
}

type memoryObject struct {
	contentType string
	data        []byte
}

// MemoryStore keeps objects in memory. Useful in tests and dev mode.
type MemoryStore struct {
	Prefix  string
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore(prefix string) *MemoryStore {
	if prefix == "" {
		prefix = "/"
	}
	return &MemoryStore{Prefix: prefix, objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.mu.Lock()
	s.objects[key] = memoryObject{contentType: contentType, data: buf}
	s.mu.Unlock()
	return path.Join(s.Prefix, key), nil
}

// Get returns a stored object and its content type.
func (s *MemoryStore) Get(key string) ([]byte, string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", ErrNotFound
	}
	return obj.data, obj.contentType, nil
}

// Len reports how many objects are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
