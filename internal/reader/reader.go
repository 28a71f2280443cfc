// Package reader is the only module that touches file bytes. Small files
// are read into an owned string; files at or above the threshold are
// memory-mapped and decoded on demand.
package reader

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/edsrzf/mmap-go"
)

// mmapThreshold is the size at or above which files are memory-mapped
// instead of read into an owned buffer.
const mmapThreshold = 64 << 10

// ErrNotUTF8 marks files that are not valid UTF-8. Callers skip them
// silently.
var ErrNotUTF8 = errors.New("not valid UTF-8")

// Content is a file's decoded text. Close must be called on every exit
// path; for small files it is a no-op.
type Content struct {
	text   string
	mapped mmap.MMap
	file   *os.File
}

// Read opens path and returns its content. The size argument comes from the
// walker's stat; a negative size forces a fresh stat.
func Read(path string, size int64) (*Content, error) {
	if size < 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		size = info.Size()
	}

	if size < mmapThreshold {
		data, err := os.ReadFile(path) // #nosec G304 -- path discovered under the project root
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(data) {
			return nil, ErrNotUTF8
		}
		return &Content{text: string(data)}, nil
	}

	f, err := os.Open(path) // #nosec G304 -- path discovered under the project root
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	if !utf8.Valid(m) {
		_ = m.Unmap()
		_ = f.Close()
		return nil, ErrNotUTF8
	}
	return &Content{mapped: m, file: f}, nil
}

// Text returns the file content as a string. For mapped files the bytes are
// copied into a new string on each call.
func (c *Content) Text() string {
	if c.mapped != nil {
		return string(c.mapped)
	}
	return c.text
}

// Close releases any mapping. Safe to call more than once.
func (c *Content) Close() error {
	var first error
	if c.mapped != nil {
		first = c.mapped.Unmap()
		c.mapped = nil
	}
	if c.file != nil {
		if err := c.file.Close(); err != nil && first == nil {
			first = err
		}
		c.file = nil
	}
	return first
}
