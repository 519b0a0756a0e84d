package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// MakeDir creates a directory with all parent directories
func MakeDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// DeleteFile removes a file
func DeleteFile(path string) error {
	return os.Remove(path)
}

// MoveFile moves or renames a file
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move file from %s to %s: %w", src, dst, err)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := MakeDir(dir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		DeleteFile(tmpPath)
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		DeleteFile(tmpPath)
		return fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		DeleteFile(tmpPath)
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		DeleteFile(tmpPath)
		return fmt.Errorf("failed to chmod %s: %w", tmpPath, err)
	}

	if err := MoveFile(tmpPath, path); err != nil {
		DeleteFile(tmpPath)
		return err
	}
	return nil
}
