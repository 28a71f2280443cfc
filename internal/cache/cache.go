// Package cache persists per-file check results keyed by file identity and
// the run's config fingerprint. The in-memory layer is a concurrent map;
// the on-disk layer is a single versioned blob per project root, rewritten
// whole via temp-file and rename so a truncated write is ignored on the
// next load.
package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fulmenhq/quench/internal/checks"
	"github.com/fulmenhq/quench/internal/walker"
	"github.com/fulmenhq/quench/pkg/config"
	"github.com/fulmenhq/quench/pkg/logger"
)

// FileName is the blob name inside the cache directory.
const FileName = "cache.bin"

// magic opens every cache blob.
var magic = [4]byte{'Q', 'N', 'C', 'H'}

// Identity is the cache key: two files with the same identity are assumed
// to have identical content. Permissions and inode are ignored.
type Identity struct {
	AbsPath   string
	MtimeSecs int64
	Size      int64
}

// IdentityOf derives the identity from a walked file's stat.
func IdentityOf(f *walker.WalkedFile) Identity {
	return Identity{AbsPath: f.AbsPath, MtimeSecs: f.Mtime.Unix(), Size: f.Size}
}

// Entry stores exactly the violations a fresh run of the covered checks
// would produce over the content the key identifies.
type Entry struct {
	Key        Identity
	Covered    []string
	Violations []checks.Violation
}

// covers reports whether the entry covers every required check.
func (e *Entry) covers(required []string) bool {
	set := make(map[string]bool, len(e.Covered))
	for _, name := range e.Covered {
		set[name] = true
	}
	for _, name := range required {
		if !set[name] {
			return false
		}
	}
	return true
}

// Cache is the process-owned store for one project root.
type Cache struct {
	mu          sync.RWMutex
	entries     map[string]*Entry
	fingerprint uint64
	toolVersion string

	hits   atomic.Int64
	misses atomic.Int64
}

// New returns an empty cache bound to a fingerprint.
func New(fingerprint uint64, toolVersion string) *Cache {
	return &Cache{
		entries:     make(map[string]*Entry),
		fingerprint: fingerprint,
		toolVersion: toolVersion,
	}
}

// Load reads the blob under dir. Any mismatch of magic, schema version,
// tool version, or fingerprint, and any I/O or decode error, yields an
// empty cache: a read-only or corrupt cache directory degrades to correct,
// uncached behavior.
func Load(dir string, fingerprint uint64, toolVersion string) *Cache {
	c := New(fingerprint, toolVersion)
	path := filepath.Join(dir, FileName)
	f, err := os.Open(path) // #nosec G304 -- engine-owned cache directory
	if err != nil {
		return c
	}
	defer func() { _ = f.Close() }()

	header, err := readHeader(f)
	if err != nil {
		logger.Debug("cache header rejected", logger.String("path", path), logger.Err(err))
		return c
	}
	if header.schema != config.CacheSchemaVersion ||
		header.toolVersion != toolVersion ||
		header.fingerprint != fingerprint {
		logger.Debug("cache discarded: fingerprint or version mismatch",
			logger.String("path", path))
		return c
	}

	var entries map[string]*Entry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		logger.Debug("cache body rejected", logger.String("path", path), logger.Err(err))
		return c
	}
	c.entries = entries
	return c
}

// Lookup returns the entry for absPath when its identity matches exactly
// and it covers every required check. Hit/miss counters are updated.
func (c *Cache) Lookup(id Identity, required []string) (*Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id.AbsPath]
	c.mu.RUnlock()
	if !ok || entry.Key != id || !entry.covers(required) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry, true
}

// Insert overwrites any existing entry for the path. Entries created in
// the current run are marked with the checks that actually ran, so a later
// run with a superset of checks misses.
func (c *Cache) Insert(id Identity, covered []string, violations []checks.Violation) {
	entry := &Entry{
		Key:        id,
		Covered:    append([]string{}, covered...),
		Violations: append([]checks.Violation{}, violations...),
	}
	c.mu.Lock()
	c.entries[id.AbsPath] = entry
	c.mu.Unlock()
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Save serializes the cache under dir via a temporary file and rename, so
// concurrent writers cannot corrupt each other: the last complete rename
// wins. An I/O error logs and does not fail the run.
func (c *Cache) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	var buf bytes.Buffer
	if err := writeHeader(&buf, header{
		schema:      config.CacheSchemaVersion,
		toolVersion: c.toolVersion,
		fingerprint: c.fingerprint,
	}); err != nil {
		return err
	}
	c.mu.RLock()
	snapshot := make(map[string]*Entry, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	c.mu.RUnlock()
	if err := gob.NewEncoder(&buf).Encode(snapshot); err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing cache: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, FileName)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming cache: %w", err)
	}
	return nil
}

// header is the fixed-layout prefix of the blob, written before the gob
// body so a mismatch is detected without decoding entries.
type header struct {
	schema      uint32
	toolVersion string
	fingerprint uint64
}

func writeHeader(w io.Writer, h header) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.schema); err != nil {
		return err
	}
	version := []byte(h.toolVersion)
	if err := binary.Write(w, binary.LittleEndian, uint16(len(version))); err != nil { // #nosec G115 -- version strings are short
		return err
	}
	if _, err := w.Write(version); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, h.fingerprint)
}

func readHeader(r io.Reader) (header, error) {
	var h header
	var m [4]byte
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return h, err
	}
	if m != magic {
		return h, fmt.Errorf("bad magic %q", m)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.schema); err != nil {
		return h, err
	}
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return h, err
	}
	version := make([]byte, n)
	if _, err := io.ReadFull(r, version); err != nil {
		return h, err
	}
	h.toolVersion = string(version)
	return h, binary.Read(r, binary.LittleEndian, &h.fingerprint)
}
