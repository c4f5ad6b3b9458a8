// Package iofile is the file abstraction the Segmenter writes fragments
// and segments through: a disk-backed, bufio-wrapped file in place of
// an in-memory writer-seeker.
package iofile

import (
	"bufio"
	"io"
	"os"

	"github.com/nevil/edash-packager/media/base"
)

// File is the minimal operation set the Segmenter needs: sequential
// writes, an occasional seek-and-patch (for the sidx/saio offsets it
// only knows after the fact), a size query, and a close that flushes.
type File interface {
	io.Writer
	io.Seeker
	Size() (int64, error)
	Close() error
}

// LocalFile implements File over an *os.File wrapped in a buffered
// writer, flushing before any seek or size query.
type LocalFile struct {
	f *os.File
	w *bufio.Writer
}

// OpenLocalFile creates (truncating) or opens a disk file for writing.
func OpenLocalFile(path string) (*LocalFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return nil, base.NewError(base.FileFailure, "OpenLocalFile", path, err)
	}
	return &LocalFile{f: f, w: bufio.NewWriter(f)}, nil
}

func (lf *LocalFile) Write(p []byte) (int, error) {
	n, err := lf.w.Write(p)
	if err != nil {
		return n, base.NewError(base.FileFailure, "LocalFile.Write", "", err)
	}
	return n, nil
}

// Seek flushes any buffered output before seeking, so a later Write at
// the new position never interleaves with stale buffered bytes.
func (lf *LocalFile) Seek(offset int64, whence int) (int64, error) {
	if err := lf.w.Flush(); err != nil {
		return 0, base.NewError(base.FileFailure, "LocalFile.Seek", "flush", err)
	}
	pos, err := lf.f.Seek(offset, whence)
	if err != nil {
		return pos, base.NewError(base.FileFailure, "LocalFile.Seek", "", err)
	}
	return pos, nil
}

func (lf *LocalFile) Size() (int64, error) {
	if err := lf.w.Flush(); err != nil {
		return 0, base.NewError(base.FileFailure, "LocalFile.Size", "flush", err)
	}
	info, err := lf.f.Stat()
	if err != nil {
		return 0, base.NewError(base.FileFailure, "LocalFile.Size", "", err)
	}
	return info.Size(), nil
}

// Flush pushes buffered bytes to the underlying os.File without closing it.
func (lf *LocalFile) Flush() error {
	if err := lf.w.Flush(); err != nil {
		return base.NewError(base.FileFailure, "LocalFile.Flush", "", err)
	}
	return nil
}

func (lf *LocalFile) Close() error {
	if err := lf.w.Flush(); err != nil {
		lf.f.Close()
		return base.NewError(base.FileFailure, "LocalFile.Close", "flush", err)
	}
	if err := lf.f.Close(); err != nil {
		return base.NewError(base.FileFailure, "LocalFile.Close", "", err)
	}
	return nil
}

// OpenFunc opens a File by name; the Segmenter calls one per generated
// segment file name in multi-file mode.
type OpenFunc func(name string) (File, error)

// LocalOpenFunc returns an OpenFunc that resolves names under dir via
// OpenLocalFile.
func LocalOpenFunc(dir string) OpenFunc {
	return func(name string) (File, error) {
		lf, err := OpenLocalFile(dir + string(os.PathSeparator) + name)
		if err != nil {
			return nil, err
		}
		return lf, nil
	}
}
