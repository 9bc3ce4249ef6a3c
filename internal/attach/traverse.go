package attach

import (
	"context"
	"fmt"
	"io"
)

// Entry is a dropped filesystem entry.
type Entry interface {
	Name() string
}

// FileEntry is an entry that resolves to a file.
type FileEntry interface {
	Entry
	File(ctx context.Context) (RawFile, error)
}

// DirectoryEntry is an entry whose children are read through a DirectoryReader.
type DirectoryEntry interface {
	Entry
	Reader() DirectoryReader
}

// DirectoryReader returns children one page at a time. An empty page means
// there are no more children.
type DirectoryReader interface {
	ReadEntries(ctx context.Context) ([]Entry, error)
}

// FileWithPath is a traversed file and its path relative to the drop root.
type FileWithPath struct {
	File         RawFile
	RelativePath string
}

func (f FileWithPath) Name() string                 { return f.File.Name() }
func (f FileWithPath) Size() int64                  { return f.File.Size() }
func (f FileWithPath) MimeType() string             { return f.File.MimeType() }
func (f FileWithPath) Open() (io.ReadCloser, error) { return f.File.Open() }

// Traverse flattens entry into files, depth first in reader order. File
// entries that resolve to no file are skipped.
func Traverse(ctx context.Context, entry Entry, prefix string) ([]FileWithPath, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch e := entry.(type) {
	case FileEntry:
		file, err := e.File(ctx)
		if err != nil {
			return nil, fmt.Errorf("read %s%s: %w", prefix, e.Name(), err)
		}
		if file == nil {
			return nil, nil
		}
		return []FileWithPath{{File: file, RelativePath: prefix + e.Name()}}, nil
	case DirectoryEntry:
		return traverseDir(ctx, e, prefix)
	default:
		return nil, nil
	}
}

func traverseDir(ctx context.Context, dir DirectoryEntry, prefix string) ([]FileWithPath, error) {
	reader := dir.Reader()
	if reader == nil {
		return nil, nil
	}
	childPrefix := prefix + dir.Name() + "/"

	var out []FileWithPath
	for {
		page, err := reader.ReadEntries(ctx)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", childPrefix, err)
		}
		if len(page) == 0 {
			return out, nil
		}
		for _, child := range page {
			files, err := Traverse(ctx, child, childPrefix)
			if err != nil {
				return nil, err
			}
			out = append(out, files...)
		}
	}
}
