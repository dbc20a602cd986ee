package keybox

import (
	"fmt"
	"os"
	"path/filepath"
)

// atomicWrite writes data to path via a temp file in
// the same directory, fsync, then rename — so a crash mid-write never
// leaves a corrupt file in path's place.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".keybox-*.tmp")
	if err != nil {
		return fmt.Errorf("keybox: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("keybox: writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("keybox: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("keybox: closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("keybox: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("keybox: renaming into place: %w", err)
	}
	success = true
	return nil
}
