package attach

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// readDirPageSize bounds how many children one ReadEntries call returns.
var readDirPageSize = 64

// NewFSEntry adapts the file or directory at name inside fsys to the entry
// API. Entries that are neither files nor directories are returned as plain
// entries and traverse to nothing.
func NewFSEntry(fsys fs.FS, name string) (Entry, error) {
	return newFSEntry(fsys, name, "")
}

// NewPathEntry adapts a local path. Files found under it report their
// absolute path as their origin.
func NewPathEntry(p string) (Entry, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, err
	}
	parent := filepath.Dir(abs)
	return newFSEntry(os.DirFS(parent), filepath.Base(abs), parent)
}

func newFSEntry(fsys fs.FS, name, osRoot string) (Entry, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid path %q", name)
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, err
	}
	return entryFromInfo(fsys, name, osRoot, info), nil
}

func entryFromInfo(fsys fs.FS, name, osRoot string, info fs.FileInfo) Entry {
	base := fsEntry{fsys: fsys, path: name, osRoot: osRoot}
	switch {
	case info.IsDir():
		return &fsDirEntry{fsEntry: base}
	case info.Mode().IsRegular():
		return &fsFileEntry{fsEntry: base, size: info.Size()}
	default:
		return &base
	}
}

type fsEntry struct {
	fsys   fs.FS
	path   string
	osRoot string
}

func (e *fsEntry) Name() string {
	return path.Base(e.path)
}

type fsFileEntry struct {
	fsEntry
	size int64
}

func (e *fsFileEntry) File(ctx context.Context) (RawFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	origin := ""
	if e.osRoot != "" {
		origin = filepath.Join(e.osRoot, filepath.FromSlash(e.path))
	}
	fsys, name := e.fsys, e.path
	return NewOpenerFile(e.Name(), e.size, "", origin, func() (io.ReadCloser, error) {
		return fsys.Open(name)
	}), nil
}

type fsDirEntry struct {
	fsEntry
}

func (e *fsDirEntry) Reader() DirectoryReader {
	return &fsDirReader{entry: e}
}

// fsDirReader pages through a directory listing sorted by name, so
// traversal order does not depend on the filesystem.
type fsDirReader struct {
	entry  *fsDirEntry
	rest   []fs.DirEntry
	loaded bool
	done   bool
}

func (r *fsDirReader) ReadEntries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.done {
		return nil, nil
	}

	page, err := r.nextPage()
	if err != nil {
		r.close()
		return nil, err
	}
	if len(page) == 0 {
		r.close()
		return nil, nil
	}

	out := make([]Entry, 0, len(page))
	for _, child := range page {
		entry, err := r.childEntry(child)
		if err != nil {
			r.close()
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *fsDirReader) nextPage() ([]fs.DirEntry, error) {
	if !r.loaded {
		all, err := fs.ReadDir(r.entry.fsys, r.entry.path)
		if err != nil {
			return nil, err
		}
		r.rest = all
		r.loaded = true
	}

	n := min(readDirPageSize, len(r.rest))
	page := r.rest[:n]
	r.rest = r.rest[n:]
	return page, nil
}

func (r *fsDirReader) childEntry(child fs.DirEntry) (Entry, error) {
	name := path.Join(r.entry.path, child.Name())
	info, err := child.Info()
	if err != nil {
		return nil, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		resolved, err := fs.Stat(r.entry.fsys, name)
		if err != nil {
			return nil, err
		}
		// Linked directories are not followed so cycles cannot recurse.
		if resolved.IsDir() {
			return &fsEntry{fsys: r.entry.fsys, path: name, osRoot: r.entry.osRoot}, nil
		}
		info = resolved
	}
	return entryFromInfo(r.entry.fsys, name, r.entry.osRoot, info), nil
}

func (r *fsDirReader) close() {
	r.done = true
	r.rest = nil
}
