// FILE: lixenwraith/logpipe/rolling/fs.go
package rolling

import (
	"io"
	"os"
)

// File is the handle a Manager writes to
type File interface {
	io.ReadWriteCloser
	Sync() error
	Stat() (os.FileInfo, error)
}

// FileSystem abstracts the file operations used for writing and rotation
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Rename(oldname, newname string) error
	Remove(name string) error
	Stat(name string) (os.FileInfo, error)
	ReadDir(dir string) ([]os.DirEntry, error)
	MkdirAll(path string, perm os.FileMode) error
}

// OSFileSystem implements FileSystem with the os package
type OSFileSystem struct{}

func (OSFileSystem) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (OSFileSystem) Rename(oldname, newname string) error {
	return os.Rename(oldname, newname)
}

func (OSFileSystem) Remove(name string) error {
	return os.Remove(name)
}

func (OSFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (OSFileSystem) ReadDir(dir string) ([]os.DirEntry, error) {
	return os.ReadDir(dir)
}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// exists reports whether name is present
func exists(fs FileSystem, name string) bool {
	_, err := fs.Stat(name)
	return err == nil
}
