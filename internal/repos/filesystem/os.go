package filesystem

import (
	"errors"
	"io/fs"
	"os"
)

// OSFileSystem implements the filesystem contracts used by the fleet packages on top of the operating system.
type OSFileSystem struct{}

// Stat retrieves file metadata.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// ReadDir lists directory entries sorted by name.
func (OSFileSystem) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// ReadFile reads file contents.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// CreateExclusive writes data to a new file and fails with fs.ErrExist when the path is already taken.
func (OSFileSystem) CreateExclusive(path string, data []byte, permissions fs.FileMode) error {
	file, openError := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, permissions)
	if openError != nil {
		return openError
	}

	_, writeError := file.Write(data)
	closeError := file.Close()
	if writeError != nil {
		return errors.Join(writeError, os.Remove(path))
	}
	if closeError != nil {
		return errors.Join(closeError, os.Remove(path))
	}
	return nil
}
