// Package store persists pipeline state under the working directory:
// one subdirectory per step with one file per container, and one
// sibling file per global, each type owning its own encoding. A small
// LRU cache short-circuits repeated reads of unchanged files.
package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/core"
)

// cacheEntries bounds the read cache; artifacts beyond this fall back
// to disk.
const cacheEntries = 128

// SerializeError reports a failure writing persistent state.
type SerializeError struct {
	Path string
	Err  error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("serialization failed for %s: %v", e.Path, e.Err)
}

func (e *SerializeError) Unwrap() error { return e.Err }

// DeserializeError reports a failure reading persistent state back.
type DeserializeError struct {
	Path string
	Err  error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("deserialization failed for %s: %v", e.Path, e.Err)
}

func (e *DeserializeError) Unwrap() error { return e.Err }

// Store is a persistent working directory for pipeline artifacts.
type Store struct {
	dir   string
	cache *lru.Cache[string, []byte]
}

// Open prepares the working directory, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("opening artifact store: %w", err)
	}
	cache, err := lru.New[string, []byte](cacheEntries)
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, cache: cache}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// SaveStep writes every container of the step's set to the step's
// subdirectory.
func (s *Store) SaveStep(stepName string, set *container.Set) error {
	stepDir := filepath.Join(s.dir, stepName)
	if err := os.MkdirAll(stepDir, 0o755); err != nil {
		return &SerializeError{Path: stepDir, Err: err}
	}
	for _, name := range set.Names() {
		c, _ := set.Get(name)
		path := filepath.Join(stepDir, name)
		var buf bytes.Buffer
		if err := c.Serialize(&buf); err != nil {
			return &SerializeError{Path: path, Err: err}
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return &SerializeError{Path: path, Err: err}
		}
		s.cache.Add(path, buf.Bytes())
	}
	return nil
}

// LoadStep reads previously persisted container contents into the
// step's set. Containers with no persisted file keep their current
// contents.
func (s *Store) LoadStep(stepName string, set *container.Set) error {
	stepDir := filepath.Join(s.dir, stepName)
	for _, name := range set.Names() {
		c, _ := set.Get(name)
		path := filepath.Join(stepDir, name)
		data, ok := s.cache.Get(path)
		if !ok {
			var err error
			data, err = os.ReadFile(path)
			if os.IsNotExist(err) {
				continue
			}
			if err != nil {
				return &DeserializeError{Path: path, Err: err}
			}
			s.cache.Add(path, data)
		}
		if err := c.Deserialize(bytes.NewReader(data)); err != nil {
			return &DeserializeError{Path: path, Err: err}
		}
	}
	return nil
}

// SaveGlobals persists every global registered on the context as a
// sibling file named by the global's registered name.
func (s *Store) SaveGlobals(pctx *core.Context) error {
	for _, name := range pctx.Names() {
		g, err := pctx.Global(name)
		if err != nil {
			return err
		}
		path := filepath.Join(s.dir, name)
		var buf bytes.Buffer
		if err := g.Serialize(&buf); err != nil {
			return &SerializeError{Path: path, Err: err}
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return &SerializeError{Path: path, Err: err}
		}
	}
	return nil
}

// LoadGlobals restores persisted globals into the context. Globals
// with no persisted file keep their initial values.
func (s *Store) LoadGlobals(pctx *core.Context) error {
	for _, name := range pctx.Names() {
		path := filepath.Join(s.dir, name)
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return &DeserializeError{Path: path, Err: err}
		}
		g, gerr := pctx.Global(name)
		if gerr != nil {
			f.Close()
			return gerr
		}
		if err := g.Deserialize(f); err != nil {
			f.Close()
			return &DeserializeError{Path: path, Err: err}
		}
		f.Close()
	}
	return nil
}
