// Package regcache implements the optional process-wide registry-file
// cache SPEC_FULL.md §5/§6.2 describes: a disk-backed cache keyed by
// (absolute path, mtime), safe to bypass, and the only process-wide mutable
// state the engine carries. Grounded on golang-dep/internal/gps's
// source_cache_bolt.go (a pluggable BoltDB-backed cache consulted before a
// potentially expensive re-derivation) and source_cache_bolt_encode.go's
// use of fixed-width binary keys, generalized here from version/revision
// records to raw registry file bytes.
package regcache

import (
	"crypto/sha1"
	"time"

	"github.com/boltdb/bolt"
	"github.com/jmank88/nuts"
	"github.com/pkg/errors"

	"github.com/pkgdepot/core/registry"
)

var filesBucket = []byte("files")

var _ registry.FileCache = (*Cache)(nil)

// Cache is a BoltDB-backed implementation of registry.FileCache.
type Cache struct {
	db *bolt.DB

	// installed records whether this Cache was installed as the registry
	// package's process-wide file cache via Install. Close clears the
	// registry's installed file cache only when this flag is set; it clears
	// whatever cache is installed at that moment, even if a later Install
	// has replaced this one.
	installed bool
}

// Open opens (creating if necessary) a bolt database at path to back the
// cache. The caller owns the returned Cache and must Close it.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening registry file cache %q", path)
	}
	return &Cache{db: db}, nil
}

// Install opens a BoltDB-backed cache at path and installs it as the
// registry package's process-wide file cache via registry.SetFileCache, so
// every subsequent registry.Open/RegistryInfo read is served from it. The
// caller owns the returned Cache and should Close it (which also
// uninstalls it) when the cache is no longer needed, e.g. at process
// shutdown or between isolated test runs.
func Install(path string) (*Cache, error) {
	c, err := Open(path)
	if err != nil {
		return nil, err
	}
	c.installed = true
	registry.SetFileCache(c)
	return c, nil
}

// Close releases the underlying database handle and, if this Cache was
// installed via Install, uninstalls it from the registry package
// (registry.SetFileCache(nil)) so a closed database handle is never
// consulted.
func (c *Cache) Close() error {
	if c.installed {
		registry.SetFileCache(nil)
	}
	return errors.Wrap(c.db.Close(), "closing registry file cache")
}

// Get implements registry.FileCache: a hit requires both the path and the
// stored mtime to match exactly (any mtime drift, forward or backward,
// invalidates the entry, since it means the file was touched since the
// cached read).
func (c *Cache) Get(path string, mtime time.Time) ([]byte, bool) {
	var data []byte
	_ = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(filesBucket)
		if b == nil {
			return nil
		}
		v := b.Get(cacheKey(path, mtime))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, data != nil
}

// Put implements registry.FileCache. Failures are swallowed: the cache is
// explicitly allowed to be bypassed (SPEC_FULL.md §5), so a write failure
// degrades to "this read wasn't cached" rather than propagating an error
// through a call chain that doesn't otherwise fail on cache misses.
func (c *Cache) Put(path string, mtime time.Time, data []byte) {
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(filesBucket)
		if err != nil {
			return err
		}
		return b.Put(cacheKey(path, mtime), data)
	})
}

// cacheKey encodes (path, mtime) as a single fixed-width binary key: the
// path is sha1-hashed down to 20 bytes (a bolt key of arbitrary string
// length works fine on its own, but a fixed-width prefix keeps every key in
// this bucket the same shape, which is what lets the mtime suffix be
// appended with nuts.Key.Put exactly as nuts' own example encodes a 128-bit
// value into two fixed 8-byte halves) followed by the mtime's UnixNano as
// an 8-byte big-endian suffix.
func cacheKey(path string, mtime time.Time) nuts.Key {
	sum := sha1.Sum([]byte(path))
	key := make(nuts.Key, len(sum)+8)
	copy(key, sum[:])
	key[len(sum):].Put(uint64(mtime.UnixNano()))
	return key
}
