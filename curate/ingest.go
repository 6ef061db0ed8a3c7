package curate

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/gardencam/gardencam/pkg/kibi"
	"github.com/gardencam/gardencam/pkg/videox"
)

// Ingester moves new, previously-unseen images into the unlabeled pool.
// Videos in the incoming pool are first exploded into still frames, which then
// flow through the same hash/dedup path as loose images.
type Ingester struct {
	Log           logs.Log
	Paths         Paths
	FrameInterval float64 // seconds between sampled video frames

	// ExtractFrames and ProbeDuration are swappable for tests.
	// Nil means videox.ExtractFrames / videox.ExtractVideoDuration.
	ExtractFrames func(videoPath, outDir string, everyNSec float64) (int, error)
	ProbeDuration func(videoPath string) (time.Duration, error)
}

func NewIngester(log logs.Log, paths Paths, frameInterval float64) *Ingester {
	return &Ingester{
		Log:           log,
		Paths:         paths,
		FrameInterval: frameInterval,
	}
}

// Run ingests everything in the incoming directories.
// Returns the filenames (not paths) newly added to the unlabeled pool.
// The hash index is written back even if ingestion fails partway, so files
// already copied are never re-ingested by the next run.
func (ing *Ingester) Run() ([]string, error) {
	if err := ing.Paths.EnsureDirs(); err != nil {
		return nil, err
	}

	ing.extractIncomingVideos()

	index, err := LoadHashIndex(ing.Paths.HashIndexFile())
	if err != nil {
		return nil, fmt.Errorf("Failed to load hash index: %w", err)
	}
	newFiles, newBytes, ingestErr := ing.ingestImages(index)
	if err := index.Save(); err != nil {
		ing.Log.Errorf("Failed to save hash index: %v", err)
		if ingestErr == nil {
			ingestErr = err
		}
	}
	ing.Log.Infof("Ingest complete: %v new images (%v) in unlabeled pool", len(newFiles), kibi.Bytes(newBytes))
	return newFiles, ingestErr
}

func (ing *Ingester) extractIncomingVideos() {
	extract := ing.ExtractFrames
	if extract == nil {
		extract = videox.ExtractFrames
	}
	probe := ing.ProbeDuration
	if probe == nil {
		probe = videox.ExtractVideoDuration
	}
	videos, err := listFiles(ing.Paths.IncomingVideos, IsVideoFile)
	if err != nil {
		ing.Log.Warnf("Failed to scan incoming videos: %v", err)
		return
	}
	for _, name := range videos {
		videoPath := filepath.Join(ing.Paths.IncomingVideos, name)
		saved, err := extract(videoPath, ing.Paths.IncomingImages, ing.FrameInterval)
		if err != nil {
			// A broken video must not sink the run
			ing.Log.Warnf("Could not extract frames from %v: %v", name, err)
			continue
		}
		if duration, err := probe(videoPath); err == nil {
			ing.Log.Infof("Extracted %v frames from %v (%v of video)", saved, name, duration.Round(time.Second))
		} else {
			ing.Log.Infof("Extracted %v frames from %v", saved, name)
		}
	}
}

func (ing *Ingester) ingestImages(index *HashIndex) ([]string, int64, error) {
	images, err := listFiles(ing.Paths.IncomingImages, IsImageFile)
	if err != nil {
		return nil, 0, err
	}
	newFiles := []string{}
	newBytes := int64(0)
	for _, name := range images {
		srcPath := filepath.Join(ing.Paths.IncomingImages, name)
		digest, err := HashFile(srcPath)
		if err != nil {
			return newFiles, newBytes, fmt.Errorf("Failed to hash %v: %w", name, err)
		}
		if index.Has(digest) {
			// Same content seen before, possibly under another name. Idempotent no-op.
			continue
		}
		storedName := ing.resolveStoredName(index, name, digest)
		if err := copyFile(srcPath, filepath.Join(ing.Paths.Unlabeled, storedName)); err != nil {
			return newFiles, newBytes, fmt.Errorf("Failed to copy %v into unlabeled pool: %w", name, err)
		}
		if info, err := os.Stat(srcPath); err == nil {
			newBytes += info.Size()
		}
		index.Add(digest, storedName)
		newFiles = append(newFiles, storedName)
	}
	return newFiles, newBytes, nil
}

// resolveStoredName picks the filename an image is stored under in the pools.
// Normally the original name. If a different image already owns that name
// (in the index, or sitting in the unlabeled pool), we namespace on the digest
// instead of clobbering it.
func (ing *Ingester) resolveStoredName(index *HashIndex, name, digest string) string {
	_, statErr := os.Stat(filepath.Join(ing.Paths.Unlabeled, name))
	if !index.NameInUse(name) && os.IsNotExist(statErr) {
		return name
	}
	return digest[:12] + "_" + name
}
