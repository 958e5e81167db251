package filevault

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/absfs/absfs"
)

// errPathEscapesRoot is returned when a name resolves outside the DirFS root
var errPathEscapesRoot = errors.New("path escapes root directory")

// DirFS is an absfs.FileSystem rooted at a directory on the host filesystem.
// Names use forward slashes and are resolved against the root, so "/a.enc" and "a.enc"
// both refer to <root>/a.enc when the working directory is "/".
type DirFS struct {
	root string

	mu  sync.RWMutex
	cwd string
}

var _ absfs.FileSystem = (*DirFS)(nil)

// NewDirFS creates the root directory if needed and returns a filesystem rooted there
func NewDirFS(root string) (*DirFS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, NewIOError("resolve", root, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, NewIOError("mkdir", abs, err)
	}
	return &DirFS{root: abs, cwd: "/"}, nil
}

// Root returns the host directory backing the filesystem
func (fs *DirFS) Root() string {
	return fs.root
}

// resolve maps a virtual name to a host path under root
func (fs *DirFS) resolve(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if !path.IsAbs(name) {
		fs.mu.RLock()
		name = path.Join(fs.cwd, name)
		fs.mu.RUnlock()
	}
	// Clean of an absolute path never climbs above "/"
	cleaned := path.Clean("/" + name)
	full := filepath.Join(fs.root, filepath.FromSlash(cleaned))
	if full != fs.root && !strings.HasPrefix(full, fs.root+string(os.PathSeparator)) {
		return "", errPathEscapesRoot
	}
	return full, nil
}

func (fs *DirFS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	p, err := fs.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(p, flag, perm)
}

func (fs *DirFS) Mkdir(name string, perm os.FileMode) error {
	p, err := fs.resolve(name)
	if err != nil {
		return err
	}
	return os.Mkdir(p, perm)
}

func (fs *DirFS) MkdirAll(name string, perm os.FileMode) error {
	p, err := fs.resolve(name)
	if err != nil {
		return err
	}
	return os.MkdirAll(p, perm)
}

func (fs *DirFS) Remove(name string) error {
	p, err := fs.resolve(name)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

func (fs *DirFS) RemoveAll(name string) error {
	p, err := fs.resolve(name)
	if err != nil {
		return err
	}
	if p == fs.root {
		return errPathEscapesRoot
	}
	return os.RemoveAll(p)
}

func (fs *DirFS) Rename(oldpath, newpath string) error {
	from, err := fs.resolve(oldpath)
	if err != nil {
		return err
	}
	to, err := fs.resolve(newpath)
	if err != nil {
		return err
	}
	return os.Rename(from, to)
}

func (fs *DirFS) Stat(name string) (os.FileInfo, error) {
	p, err := fs.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

func (fs *DirFS) Chmod(name string, mode os.FileMode) error {
	p, err := fs.resolve(name)
	if err != nil {
		return err
	}
	return os.Chmod(p, mode)
}

func (fs *DirFS) Chtimes(name string, atime, mtime time.Time) error {
	p, err := fs.resolve(name)
	if err != nil {
		return err
	}
	return os.Chtimes(p, atime, mtime)
}

func (fs *DirFS) Chown(name string, uid, gid int) error {
	p, err := fs.resolve(name)
	if err != nil {
		return err
	}
	return os.Chown(p, uid, gid)
}

func (fs *DirFS) Separator() uint8 {
	return '/'
}

func (fs *DirFS) ListSeparator() uint8 {
	return ':'
}

func (fs *DirFS) Chdir(dir string) error {
	p, err := fs.resolve(dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "chdir", Path: dir, Err: errors.New("not a directory")}
	}

	rel, err := filepath.Rel(fs.root, p)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	fs.cwd = path.Clean("/" + filepath.ToSlash(rel))
	fs.mu.Unlock()
	return nil
}

func (fs *DirFS) Getwd() (string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.cwd, nil
}

func (fs *DirFS) TempDir() string {
	return "/"
}

func (fs *DirFS) Open(name string) (absfs.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

func (fs *DirFS) Create(name string) (absfs.File, error) {
	return fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
}

func (fs *DirFS) Truncate(name string, size int64) error {
	p, err := fs.resolve(name)
	if err != nil {
		return err
	}
	return os.Truncate(p, size)
}
