// Package persist provides the atomic write-temp-fsync-rename helper
// shared by the ranker and session-tracker's JSON state files.
//
// DESIGN: Grounded on the teacher's cmd/updater.go self-replace
// idiom (os.Rename as the atomic publish step after a file is fully
// written), extended with an explicit fsync before rename so a crash
// between write and rename cannot leave a truncated temp file mistaken
// for the real one.
package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// SaveJSON atomically writes v as indented JSON to path.
func SaveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// LoadJSON reads and decodes the JSON file at path into v. A missing
// file is not an error - v is left unmodified so the caller starts
// from its zero value.
func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
