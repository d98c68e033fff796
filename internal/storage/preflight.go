package storage

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FreeBytes reports the bytes available on the filesystem holding path.
func FreeBytes(path string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return int64(stat.Bavail) * stat.Bsize, nil
}

// CheckFreeSpace verifies the filesystem holding path has at least minBytes
// available. A zero minBytes disables the check.
func CheckFreeSpace(path string, minBytes int64) error {
	if minBytes <= 0 {
		return nil
	}
	free, err := FreeBytes(path)
	if err != nil {
		return err
	}
	if free < minBytes {
		return fmt.Errorf("insufficient space on %s: %d bytes free, need %d", path, free, minBytes)
	}
	return nil
}

// CheckWritable verifies the process can write into path.
func CheckWritable(path string) error {
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("storage directory %s not writable: %w", path, err)
	}
	return nil
}
