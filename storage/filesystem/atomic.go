package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// writeTemp writes data to a new temp file next to target. The caller owns
// the returned file name.
func writeTemp(target string, data []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+"-*.tmp")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return tmpName, nil
}

// writeFileAtomic replaces target with data. Readers see either the old or
// the new content, never a mix.
func writeFileAtomic(target string, data []byte, perm os.FileMode) error {
	tmpName, err := writeTemp(target, data, perm)
	if err != nil {
		return err
	}
	defer os.Remove(tmpName)

	return os.Rename(tmpName, target)
}

// createFileExclusive publishes data at target only if target does not
// exist yet. Of several concurrent callers exactly one gets created == true.
func createFileExclusive(target string, data []byte, perm os.FileMode) (created bool, err error) {
	tmpName, err := writeTemp(target, data, perm)
	if err != nil {
		return false, err
	}
	defer os.Remove(tmpName)

	if err := os.Link(tmpName, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
