package registry

import (
	"os"
	"time"
)

// FileCache is the narrow interface the optional process-wide registry-file
// cache satisfies, per SPEC_FULL.md §5's "the only process-wide mutable
// state permitted is the registry-file cache (keyed by absolute path and
// mtime); it is optional and must be safe to bypass." Grounded on
// golang-dep/internal/gps/source_cache_bolt.go's boltCache (a pluggable,
// disk-backed cache the source manager consults before re-deriving
// something it can recompute from scratch), generalized here from
// version/revision lookups to raw registry file bytes.
type FileCache interface {
	Get(path string, mtime time.Time) ([]byte, bool)
	Put(path string, mtime time.Time, data []byte)
}

// globalFileCache is the only process-wide mutable state this package
// carries. Nil by default, meaning every read goes straight to disk.
var globalFileCache FileCache

// SetFileCache installs (or, passed nil, removes) the process-wide
// registry-file cache. Safe to call at most once per process in practice,
// but safe to call with nil at any time to bypass caching entirely.
func SetFileCache(c FileCache) { globalFileCache = c }

// readFile reads path's contents, consulting the installed FileCache (if
// any) first: a cache hit whose stored mtime matches the file's current
// mtime is returned without touching disk content; anything else falls
// through to a real read, and a successful real read is written back to the
// cache for next time.
func readFile(path string) ([]byte, error) {
	st, statErr := os.Stat(path)

	if globalFileCache != nil && statErr == nil {
		if data, ok := globalFileCache.Get(path, st.ModTime()); ok {
			return data, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if globalFileCache != nil {
		mtime := time.Now()
		if statErr == nil {
			mtime = st.ModTime()
		} else if st2, err2 := os.Stat(path); err2 == nil {
			mtime = st2.ModTime()
		}
		globalFileCache.Put(path, mtime, data)
	}
	return data, nil
}
