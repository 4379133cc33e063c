package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	fileExt   = ".json"
	tmpSuffix = ".tmp"
)

// Loader reads a collection, writing def first when it does not exist yet.
type Loader interface {
	Load(name string, def, out any) error
}

// Persister reads and atomically replaces collections. *Store implements it.
type Persister interface {
	Loader
	Save(name string, value any) error
}

var _ Persister = (*Store)(nil)

// Store persists named JSON collections under a single directory.
// Every Save goes through write-temp, fsync, rename, so a reader only ever
// sees the previous or the new file content.
type Store struct {
	dir    string
	log    *zap.Logger
	locks  sync.Map // collection name -> *sync.Mutex
	rename func(oldpath, newpath string) error
}

// Open prepares dir (creating it when needed) and removes temp files left
// behind by an interrupted Save.
func Open(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &PersistenceError{Name: dir, Op: "mkdir", Err: err}
	}

	s := &Store{
		dir:    dir,
		log:    log,
		rename: os.Rename,
	}
	if err := s.removeStaleTemps(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file backing the named collection.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// Load decodes the named collection into out. When the file does not exist,
// def is written as the initial content and decoded into out instead.
// A file that exists but does not parse yields *CorruptDataError.
func (s *Store) Load(name string, def, out any) error {
	mu := s.lock(name)
	mu.Lock()
	defer mu.Unlock()

	path := s.Path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		data, err = encode(def)
		if err != nil {
			return &PersistenceError{Name: name, Op: "marshal default", Err: err}
		}
		if err := s.writeAtomic(name, data); err != nil {
			return err
		}
		s.log.Info("collection initialised with default", zap.String("collection", name))
	} else if err != nil {
		return &PersistenceError{Name: name, Op: "read", Err: err}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return &CorruptDataError{Name: name, Path: path, Err: errors.New("empty file")}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &CorruptDataError{Name: name, Path: path, Err: err}
	}
	return nil
}

// Save replaces the named collection with value.
func (s *Store) Save(name string, value any) error {
	data, err := encode(value)
	if err != nil {
		return &PersistenceError{Name: name, Op: "marshal", Err: err}
	}

	mu := s.lock(name)
	mu.Lock()
	defer mu.Unlock()

	return s.writeAtomic(name, data)
}

func (s *Store) writeAtomic(name string, data []byte) (err error) {
	target := s.Path(name)

	tmp, err := os.CreateTemp(s.dir, "."+name+"-*"+tmpSuffix)
	if err != nil {
		return &PersistenceError{Name: name, Op: "create temp", Err: err}
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				err = multierr.Append(err, rmErr)
			}
		}
	}()

	if _, werr := tmp.Write(data); werr != nil {
		return &PersistenceError{Name: name, Op: "write", Err: multierr.Append(werr, tmp.Close())}
	}
	if serr := tmp.Sync(); serr != nil {
		return &PersistenceError{Name: name, Op: "sync", Err: multierr.Append(serr, tmp.Close())}
	}
	if cerr := tmp.Close(); cerr != nil {
		return &PersistenceError{Name: name, Op: "close", Err: cerr}
	}
	if rerr := s.rename(tmpPath, target); rerr != nil {
		return &PersistenceError{Name: name, Op: "rename", Err: rerr}
	}

	// Rename durability needs the directory entry flushed too.
	if derr := syncDir(s.dir); derr != nil {
		s.log.Warn("directory sync failed", zap.String("collection", name), zap.Error(derr))
	}
	return nil
}

func (s *Store) lock(name string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(name, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *Store) removeStaleTemps() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return &PersistenceError{Name: s.dir, Op: "read dir", Err: err}
	}
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasPrefix(n, ".") || !strings.HasSuffix(n, tmpSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, n)); err != nil {
			return &PersistenceError{Name: n, Op: "remove stale temp", Err: err}
		}
		s.log.Warn("removed stale temp file", zap.String("file", n))
	}
	return nil
}

func encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(data, '\n'), nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	return multierr.Append(d.Sync(), d.Close())
}
