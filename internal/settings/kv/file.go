package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dshills/italics/internal/settings"
)

// documentVersion is written into every settings file.
const documentVersion = 1

// document is the on-disk shape of a File backend.
type document struct {
	Version     int                       `toml:"version" yaml:"version"`
	Collections map[string]map[string]any `toml:"collections" yaml:"collections"`
}

// File is a settings.Backend persisted to a single TOML or YAML file.
//
// Every operation reads the file, so edits made by other programs are
// visible immediately. Writes go to a temporary file that is renamed over
// the original.
type File struct {
	mu    sync.Mutex
	path  string
	codec Codec
}

var _ settings.Backend = (*File)(nil)

// NewFile creates a file backend. The file need not exist yet.
func NewFile(path string, codec Codec) *File {
	return &File{path: path, codec: codec}
}

// Path returns the settings file path.
func (f *File) Path() string {
	return f.path
}

func (f *File) CollectionExists(path string) (bool, error) {
	var exists bool
	err := f.view(func(c collections) error {
		var err error
		exists, err = c.exists(path)
		return err
	})
	return exists, err
}

func (f *File) CreateCollection(path string) error {
	return f.update(func(c collections) error { return c.create(path) })
}

func (f *File) DeleteCollection(path string) error {
	return f.update(func(c collections) error { return c.delete(path) })
}

func (f *File) GetString(path, key string) (string, error) {
	var value string
	err := f.view(func(c collections) error {
		var err error
		value, err = c.get(path, key)
		return err
	})
	return value, err
}

func (f *File) SetString(path, key, value string) error {
	return f.update(func(c collections) error { return c.set(path, key, value) })
}

func (f *File) SetBoolean(path, key string, value bool) error {
	return f.update(func(c collections) error { return c.set(path, key, value) })
}

func (f *File) PropertyNamesAndValues(path string) (map[string]any, error) {
	var props map[string]any
	err := f.view(func(c collections) error {
		var err error
		props, err = c.properties(path)
		return err
	})
	return props, err
}

func (f *File) view(fn func(collections) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, err := f.load()
	if err != nil {
		return err
	}
	return fn(c)
}

func (f *File) update(fn func(collections) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, err := f.load()
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	return f.store(c)
}

// load reads the file. A missing or empty file is an empty document.
func (f *File) load() (collections, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(collections), nil
		}
		return nil, fmt.Errorf("reading settings file %s: %w", f.path, err)
	}

	var doc document
	if len(data) > 0 {
		if err := f.codec.Unmarshal(data, &doc); err != nil {
			return nil, &CodecError{Path: f.path, Codec: f.codec.Name(), Err: err}
		}
	}

	c := make(collections, len(doc.Collections))
	for path, props := range doc.Collections {
		if props == nil {
			props = make(map[string]any)
		}
		c[path] = props
	}
	return c, nil
}

// store writes the document atomically.
func (f *File) store(c collections) error {
	data, err := f.codec.Marshal(document{Version: documentVersion, Collections: c})
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replacing settings file: %w", err)
	}
	return nil
}
