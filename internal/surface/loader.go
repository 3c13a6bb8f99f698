package surface

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/paulmach/orb/geojson"
)

// Loader resolves a source file reference to decoded GeoJSON. Returned
// collections are shared and must be treated as read-only.
type Loader interface {
	Load(ref string) (*geojson.FeatureCollection, error)
}

// FileLoader reads GeoJSON files relative to a root directory and caches the
// decoded collections for the life of the process.
type FileLoader struct {
	root  string
	mu    sync.Mutex
	cache map[string]*geojson.FeatureCollection
}

// NewFileLoader creates a loader rooted at dir.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{
		root:  dir,
		cache: make(map[string]*geojson.FeatureCollection),
	}
}

// Root returns the directory references are resolved against.
func (l *FileLoader) Root() string {
	return l.root
}

// Load implements Loader.
func (l *FileLoader) Load(ref string) (*geojson.FeatureCollection, error) {
	if strings.Contains(ref, "..") || filepath.IsAbs(ref) {
		return nil, fmt.Errorf("invalid source reference %q", ref)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if fc, ok := l.cache[ref]; ok {
		return fc, nil
	}

	data, err := os.ReadFile(filepath.Join(l.root, filepath.FromSlash(ref)))
	if err != nil {
		return nil, fmt.Errorf("reading geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing geojson %s: %w", ref, err)
	}
	l.cache[ref] = fc
	return fc, nil
}

// StaticLoader serves collections from memory, keyed by reference.
type StaticLoader map[string]*geojson.FeatureCollection

// Load implements Loader.
func (s StaticLoader) Load(ref string) (*geojson.FeatureCollection, error) {
	fc, ok := s[ref]
	if !ok {
		return nil, fmt.Errorf("no geojson for %q: %w", ref, os.ErrNotExist)
	}
	return fc, nil
}
