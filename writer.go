package kvenv

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteArtifact replaces path with the artifact as a whole. The bytes go to
// a temp file in the destination directory first and are renamed over path
// only after a successful close, so a failed run never leaves a
// half-written file behind.
func WriteArtifact(path string, artifact []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".kvenv-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(artifact); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	// The artifact holds secrets; keep it owner-only.
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move artifact to %s: %w", path, err)
	}

	return nil
}
