package audit

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const fileExt = ".audit"

// FileStore keeps one newline-delimited JSON file per UTC day under a single
// directory, named audit_YYYY-MM-DD.audit. Appends within a partition are
// serialized by a per-partition mutex; Replace holds the same mutex and swaps
// the file in with an atomic rename so readers never see a half-written file.
type FileStore struct {
	dir string

	mu    sync.Mutex // guards locks map
	locks map[string]*sync.Mutex
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &FileStore{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *FileStore) lockFor(partition string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[partition]
	if !ok {
		l = &sync.Mutex{}
		s.locks[partition] = l
	}
	return l
}

func (s *FileStore) path(partition string) string {
	return filepath.Join(s.dir, "audit_"+partition+fileExt)
}

func (s *FileStore) Append(_ context.Context, partition string, line []byte) error {
	l := s.lockFor(partition)
	l.Lock()
	defer l.Unlock()

	f, err := os.OpenFile(s.path(partition), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open partition %s: %w", partition, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append to partition %s: %w", partition, err)
	}
	return nil
}

func (s *FileStore) Partitions(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list audit dir: %w", err)
	}

	var partitions []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "audit_") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		partitions = append(partitions, strings.TrimSuffix(strings.TrimPrefix(name, "audit_"), fileExt))
	}
	return partitions, nil
}

func (s *FileStore) ReadLines(_ context.Context, partition string) ([][]byte, error) {
	data, err := os.ReadFile(s.path(partition))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read partition %s: %w", partition, err)
	}

	var lines [][]byte
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (s *FileStore) Replace(_ context.Context, partition string, lines [][]byte) error {
	l := s.lockFor(partition)
	l.Lock()
	defer l.Unlock()

	path := s.path(partition)
	if len(lines) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove partition %s: %w", partition, err)
		}
		return nil
	}

	tmp, err := os.CreateTemp(s.dir, "audit_"+partition+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for partition %s: %w", partition, err)
	}
	tmpName := tmp.Name()

	for _, line := range lines {
		if _, err := tmp.Write(append(line, '\n')); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("write temp for partition %s: %w", partition, err)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp for partition %s: %w", partition, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("swap partition %s: %w", partition, err)
	}
	return nil
}
