package curate

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// HashIndex maps content digest -> canonical stored filename. It persists
// across runs: loaded before ingest, rewritten after. An explicit object, so
// the caller controls its lifetime and write-back.
type HashIndex struct {
	filename string
	entries  map[string]string
}

// LoadHashIndex loads the index from filename, or starts an empty one if the
// file doesn't exist yet.
func LoadHashIndex(filename string) (*HashIndex, error) {
	idx := &HashIndex{
		filename: filename,
		entries:  map[string]string{},
	}
	raw, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return idx, nil
	} else if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &idx.entries); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *HashIndex) Len() int {
	return len(idx.entries)
}

func (idx *HashIndex) Has(digest string) bool {
	_, ok := idx.entries[digest]
	return ok
}

// StoredName returns the canonical filename recorded for digest
func (idx *HashIndex) StoredName(digest string) (string, bool) {
	name, ok := idx.entries[digest]
	return name, ok
}

// NameInUse reports whether any indexed image is stored under name.
// Linear scan; the index is small relative to the image bytes it tracks.
func (idx *HashIndex) NameInUse(name string) bool {
	for _, stored := range idx.entries {
		if stored == name {
			return true
		}
	}
	return false
}

func (idx *HashIndex) Add(digest, storedName string) {
	idx.entries[digest] = storedName
}

// Save rewrites the index atomically (temp file + rename), so a crash mid-write
// can't leave a truncated index behind.
func (idx *HashIndex) Save() error {
	raw, err := json.MarshalIndent(idx.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(idx.filename), 0775); err != nil {
		return err
	}
	tempFile := idx.filename + ".tmp"
	if err := os.WriteFile(tempFile, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tempFile, idx.filename)
}
