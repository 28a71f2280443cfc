package config

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	toml "github.com/pelletier/go-toml/v2"
)

// CacheSchemaVersion is bumped whenever the cache blob layout changes.
// A mismatch discards every stored entry.
const CacheSchemaVersion uint32 = 1

// Fingerprint hashes the normalized effective configuration together with
// the tool version and cache schema version. Any change invalidates the
// whole file cache.
func (c *Config) Fingerprint(toolVersion string) uint64 {
	h := xxhash.New()
	// toml.Marshal serializes struct fields in declaration order, which keeps
	// the digest stable across runs for an identical effective config.
	if data, err := toml.Marshal(c); err == nil {
		_, _ = h.Write(data)
	}
	_, _ = h.Write([]byte(toolVersion))
	_, _ = fmt.Fprintf(h, "schema=%d", CacheSchemaVersion)
	return h.Sum64()
}
