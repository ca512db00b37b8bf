package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateDataPath checks that a configured data directory, such as
// the capture storage root, is usable: it must be an existing writable
// directory or one that can be created. Relative paths resolve against
// basePath. Returns an error before the server commits to a root it
// could never write captures into.
func ValidateDataPath(dataPath string, basePath string) error {
	if dataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}

	// Reject directory traversal outright rather than resolving it.
	if strings.Contains(dataPath, "..") {
		return fmt.Errorf("data path contains invalid directory traversal")
	}

	cleanPath := filepath.Clean(dataPath)
	if filepath.IsAbs(cleanPath) {
		return validateAbsolutePath(cleanPath)
	}
	return validateAbsolutePath(filepath.Join(basePath, cleanPath))
}

func validateAbsolutePath(fullPath string) error {
	info, err := os.Stat(fullPath)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory: %s", fullPath)
		}
		if err := checkWritePermission(fullPath); err != nil {
			return fmt.Errorf("no write permission for existing directory: %w", err)
		}
		return nil
	}

	if os.IsNotExist(err) {
		return checkCanCreatePath(fullPath)
	}

	return fmt.Errorf("cannot access path: %w", err)
}

// checkWritePermission probes a directory by creating and removing a
// marker file. Stat alone cannot see ACLs or read-only mounts.
func checkWritePermission(dirPath string) error {
	tempFile := filepath.Join(dirPath, ".screenshuter_write_check")
	file, err := os.Create(tempFile)
	if err != nil {
		return err
	}
	file.Close()

	os.Remove(tempFile)
	return nil
}

// checkCanCreatePath verifies a missing directory could be created,
// then removes it again. Actual creation is the storage layer's job.
func checkCanCreatePath(fullPath string) error {
	parentDir := filepath.Dir(fullPath)

	if info, err := os.Stat(parentDir); err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(parentDir, 0755); err != nil {
				return fmt.Errorf("cannot create parent directory: %w", err)
			}
		} else {
			return fmt.Errorf("cannot access parent directory: %w", err)
		}
	} else if !info.IsDir() {
		return fmt.Errorf("parent path exists but is not a directory: %s", parentDir)
	}

	if err := checkWritePermission(parentDir); err != nil {
		return fmt.Errorf("no write permission for parent directory: %w", err)
	}

	if err := os.MkdirAll(fullPath, 0755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}

	os.RemoveAll(fullPath)
	return nil
}
