package config

import (
	"fmt"
	"os"
	"time"
)

const staleLockAge = 10 * time.Minute

// Lock acquires a file lock on the config to prevent concurrent provisioning
// runs against the same project directory.
func (s *Store) Lock() error {
	lockPath := s.lockPath()

	// Check if lock already exists
	if info, err := os.Stat(lockPath); err == nil {
		// If lock is older than 10 minutes, consider it stale
		if time.Since(info.ModTime()) > staleLockAge {
			os.Remove(lockPath)
		} else {
			return fmt.Errorf("project config is locked by another process (lock file: %s). "+
				"If this is an error, remove the lock file manually", lockPath)
		}
	}

	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(lockPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	return nil
}

// Unlock releases the config lock.
func (s *Store) Unlock() error {
	if err := os.Remove(s.lockPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (s *Store) lockPath() string {
	return s.path + ".lock"
}
