package filevault

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/absfs/absfs"
	"github.com/google/uuid"
)

// FrameStore keeps one frame file per identifier in a flat directory of an absfs.FileSystem
type FrameStore struct {
	fs  absfs.FileSystem
	dir string
}

// NewFrameStore creates the directory if needed and returns a store rooted there
func NewFrameStore(base absfs.FileSystem, dir string) (*FrameStore, error) {
	if base == nil {
		return nil, ErrNilFileSystem
	}
	if err := base.MkdirAll(dir, 0o700); err != nil {
		return nil, NewIOError("mkdir", dir, err)
	}
	return &FrameStore{fs: base, dir: dir}, nil
}

// Path returns the frame file path for identifier id
func (s *FrameStore) Path(id string) string {
	return path.Join(s.dir, FrameName(id))
}

// Write replaces the frame for id. See writeFileAtomic for when the replace is atomic.
func (s *FrameStore) Write(id string, frame *Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	return writeFileAtomic(s.fs, s.Path(id), frame.Bytes(), 0o600)
}

// Read returns the raw frame bytes for id. A missing file satisfies isNotExist.
func (s *FrameStore) Read(id string) ([]byte, error) {
	return readFile(s.fs, s.Path(id))
}

// Exists reports whether a frame file exists for id
func (s *FrameStore) Exists(id string) (bool, error) {
	_, err := s.fs.Stat(s.Path(id))
	if err == nil {
		return true, nil
	}
	if isNotExist(err) {
		return false, nil
	}
	return false, NewIOError("stat", s.Path(id), err)
}

// List returns the identifiers of all frame files in directory order
func (s *FrameStore) List() ([]string, error) {
	dir, err := s.fs.Open(s.dir)
	if err != nil {
		return nil, NewIOError("open", s.dir, err)
	}
	defer dir.Close()

	names, err := dir.Readdirnames(-1)
	if err != nil {
		return nil, NewIOError("readdir", s.dir, err)
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := IdentifierFromFrameName(name); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// isNotExist matches both wrapped fs.ErrNotExist and raw os errors from absfs backends
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}

// writeFileAtomic writes data to a uniquely named temp file next to name, syncs it and
// renames it over name. On failure the temp file is removed.
//
// The replace is atomic only when the backend's Rename replaces an existing target, as
// DirFS does through os.Rename. Backends that refuse (memfs) get a Remove then Rename
// fallback: readers never see partial content, but a crash between the two calls leaves
// name missing with the new data still in the temp file.
func writeFileAtomic(fsys absfs.FileSystem, name string, data []byte, perm os.FileMode) error {
	tmp := path.Join(path.Dir(name), fmt.Sprintf(".%s.%s.tmp", path.Base(name), uuid.NewString()))

	f, err := fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return NewIOError("create", tmp, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		fsys.Remove(tmp)
		return NewIOError("write", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		fsys.Remove(tmp)
		return NewIOError("sync", tmp, err)
	}
	if err := f.Close(); err != nil {
		fsys.Remove(tmp)
		return NewIOError("close", tmp, err)
	}

	if err := fsys.Rename(tmp, name); err != nil {
		// some absfs backends refuse to rename over an existing file
		if _, statErr := fsys.Stat(name); statErr != nil {
			fsys.Remove(tmp)
			return NewIOError("rename", name, err)
		}
		if rmErr := fsys.Remove(name); rmErr != nil {
			fsys.Remove(tmp)
			return NewIOError("rename", name, err)
		}
		if err := fsys.Rename(tmp, name); err != nil {
			fsys.Remove(tmp)
			return NewIOError("rename", name, err)
		}
	}
	return nil
}

// readFile reads a whole file. Missing files are returned unwrapped so callers can test
// them with isNotExist.
func readFile(fsys absfs.FileSystem, name string) ([]byte, error) {
	f, err := fsys.Open(name)
	if err != nil {
		if isNotExist(err) {
			return nil, err
		}
		return nil, NewIOError("open", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, NewIOError("read", name, err)
	}
	return data, nil
}
