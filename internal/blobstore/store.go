// Package blobstore persists one state snapshot per fingerprint as a
// gzip-compressed msgpack blob, content-addressed by that fingerprint.
//
// The on-disk format is private to this module: a change in serialization
// scheme simply invalidates existing caches, which is acceptable because
// fingerprints change whenever step code changes anyway.
package blobstore

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/prooftree/internal/fsutil"
)

// Extension is the suffix of every blob file managed by a Store.
const Extension = ".cache"

// ErrNotFound is returned by Load when no blob exists at the given path.
var ErrNotFound = errors.New("blobstore: blob not found")

// CorruptError indicates a blob exists on disk but its bytes cannot be
// decompressed or decoded, typically after an interrupted write by an older
// process. Callers usually treat this as a cache miss.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("blobstore: corrupt blob at %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// BlobInfo describes one blob file present in a cache directory.
type BlobInfo struct {
	Fingerprint string
	Path        string
	Size        int64
	ModTime     time.Time
}

// Store manages the blob files inside a single cache directory.
type Store struct {
	dir string
}

// New returns a Store for the given cache directory. The directory is
// created lazily on the first Save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the cache directory this store manages.
func (s *Store) Dir() string { return s.dir }

// Path returns the deterministic blob path for a fingerprint.
func (s *Store) Path(fingerprint string) string {
	return filepath.Join(s.dir, fingerprint+Extension)
}

// Exists reports whether a blob file is present at path.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads, decompresses and decodes the blob at path. It returns
// ErrNotFound when the file is absent and a *CorruptError when the bytes
// cannot be turned back into a state map.
func (s *Store) Load(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("blobstore: reading %s: %w", path, err)
	}

	state, err := Decode(raw)
	if err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	return state, nil
}

// Save encodes state and atomically replaces the blob at path, creating
// parent directories as needed. The state is fully serialized before any
// byte reaches the destination, so a failed save never damages a
// previously valid blob, and later in-process mutation of the map cannot
// change what was persisted.
func (s *Store) Save(path string, state map[string]any) error {
	raw, err := Encode(state)
	if err != nil {
		return fmt.Errorf("blobstore: encoding state for %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("blobstore: creating %s: %w", dir, err)
	}

	// Write-then-rename in the same directory keeps the replacement atomic
	// on POSIX filesystems.
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("blobstore: creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("blobstore: writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("blobstore: closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("blobstore: replacing %s: %w", path, err)
	}
	return nil
}

// List enumerates the blob files currently present in the cache directory,
// sorted by fingerprint.
func (s *Store) List() ([]BlobInfo, error) {
	paths, err := fsutil.ListByExtension(s.dir, Extension)
	if err != nil {
		return nil, fmt.Errorf("blobstore: listing %s: %w", s.dir, err)
	}

	blobs := make([]BlobInfo, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			// Swept or removed between listing and stat.
			continue
		}
		blobs = append(blobs, BlobInfo{
			Fingerprint: strings.TrimSuffix(filepath.Base(path), Extension),
			Path:        path,
			Size:        info.Size(),
			ModTime:     info.ModTime(),
		})
	}
	return blobs, nil
}

// Sweep deletes every blob file in the cache directory whose path is not
// in keep, and returns the number of files removed. Files that do not
// carry the blob extension are never touched.
func (s *Store) Sweep(keep map[string]struct{}) (int, error) {
	paths, err := fsutil.ListByExtension(s.dir, Extension)
	if err != nil {
		return 0, fmt.Errorf("blobstore: listing %s: %w", s.dir, err)
	}

	removed := 0
	for _, path := range paths {
		if _, ok := keep[path]; ok {
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("blobstore: removing stale blob %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

// Encode serializes a state map to compressed bytes.
func Encode(state map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := msgpack.NewEncoder(zw).Encode(state); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode. Loose interface decoding keeps the value types
// predictable across a round-trip: all integers come back as int64 and all
// floats as float64, regardless of how compactly they were encoded.
func Decode(raw []byte) (map[string]any, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	dec := msgpack.NewDecoder(zr)
	dec.UseLooseInterfaceDecoding(true)

	var state map[string]any
	if err := dec.Decode(&state); err != nil {
		return nil, err
	}
	if state == nil {
		state = map[string]any{}
	}
	return state, nil
}
