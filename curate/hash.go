package curate

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
)

// HashFile computes the hex content digest of a file. The digest depends only
// on the file's bytes, never its name or path, so it serves as the dedup key.
// The file is streamed, so hashing a multi-gigabyte video is fine.
func HashFile(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
