package tomlcodec

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
)

// AtomicWriteFile renders via render into a temp file alongside path, then
// renames it into place, so a reader never observes a partially written
// file. Mirrors golang-dep's own txn_writer.go/fs.go discipline: stage in
// the target directory (so the final rename is same-device when possible),
// rename into place, and fall back to copy+remove on a cross-device rename
// error (renameWithFallback's EXDEV case).
func AtomicWriteFile(path string, render func(w *Writer)) (err error) {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d", filepath.Base(path), rand.Int63()))

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrapf(err, "creating temp file for atomic write to %s", path)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	w := NewWriter(f)
	render(w)
	if werr := w.Flush(); werr != nil {
		f.Close()
		return errors.Wrapf(werr, "writing temp file for atomic write to %s", path)
	}
	if cerr := f.Close(); cerr != nil {
		return errors.Wrapf(cerr, "closing temp file for atomic write to %s", path)
	}

	if rerr := os.Rename(tmp, path); rerr != nil {
		if linkErr, ok := rerr.(*os.LinkError); ok && linkErr.Err == syscall.EXDEV {
			return renameCrossDevice(tmp, path)
		}
		return errors.Wrapf(rerr, "renaming temp file into place at %s", path)
	}
	return nil
}

func renameCrossDevice(tmp, path string) error {
	src, err := os.Open(tmp)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return os.Remove(tmp)
}
