package storage

import (
	"io"
	"os"
	"time"
)

// BlobStore manages local file operations rooted at a base directory.
// Exports and the snapshot cache write through it so every path is
// sanitized and every write lands atomically.
type BlobStore interface {
	// Write saves data to a file path.
	Write(path string, data []byte, mode os.FileMode) error

	// WriteStream saves data from a reader.
	WriteStream(path string, reader io.Reader, mode os.FileMode) error

	// Read retrieves file contents.
	Read(path string) ([]byte, error)

	// Delete removes a file.
	Delete(path string) error

	// Exists checks if a file exists.
	Exists(path string) (bool, error)

	// Stat returns file information.
	Stat(path string) (FileInfo, error)

	// EnsureDir creates a directory if it doesn't exist.
	EnsureDir(path string) error

	// ListDir returns directory contents.
	ListDir(path string) ([]FileInfo, error)

	// RemoveAll deletes a directory tree rooted inside the store.
	RemoveAll(path string) error
}

// FileInfo contains file metadata.
type FileInfo struct {
	Path      string
	Size      int64
	Mode      os.FileMode
	ModTime   time.Time
	IsDir     bool
	IsSymlink bool
}
