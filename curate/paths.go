package curate

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Package curate implements the corpus curation pipeline: content-addressed
// ingest with dedup, active-learning triage, and train/val dataset assembly.

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
	".mkv": true,
	".m4v": true,
}

func IsImageFile(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

func IsVideoFile(filename string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Paths is the directory layout of the pipeline, all rooted at one directory.
// Pool directories hold image files; Autolabeled and Labeled additionally hold
// one ".txt" annotation per image, same base name.
type Paths struct {
	Root           string
	IncomingImages string // new loose images land here
	IncomingVideos string // new videos land here; frames are extracted into IncomingImages
	Unlabeled      string // ingested, not yet triaged
	ToLabel        string // deferred for human annotation
	Autolabeled    string // accepted with machine-generated annotations
	Labeled        string // human-annotated images + annotations
	DatasetImages  string // final layout: images/{train,val}
	DatasetLabels  string // final layout: labels/{train,val}
	RunsDir        string // hash index, run log, run history DB
}

func NewPaths(root string) Paths {
	dataset := filepath.Join(root, "dataset")
	return Paths{
		Root:           root,
		IncomingImages: filepath.Join(root, "incoming", "images"),
		IncomingVideos: filepath.Join(root, "incoming", "videos"),
		Unlabeled:      filepath.Join(dataset, "unlabeled"),
		ToLabel:        filepath.Join(dataset, "to_label"),
		Autolabeled:    filepath.Join(dataset, "autolabeled"),
		Labeled:        filepath.Join(dataset, "labeled"),
		DatasetImages:  filepath.Join(dataset, "yolo", "images"),
		DatasetLabels:  filepath.Join(dataset, "yolo", "labels"),
		RunsDir:        filepath.Join(root, "pipeline_runs"),
	}
}

func (p Paths) HashIndexFile() string {
	return filepath.Join(p.RunsDir, "hash_index.json")
}

func (p Paths) RunLogFile() string {
	return filepath.Join(p.RunsDir, "log.csv")
}

func (p Paths) RunDBFile() string {
	return filepath.Join(p.RunsDir, "runs.sqlite")
}

// The four destination directories of dataset assembly
func (p Paths) SplitDirs() []string {
	return []string{
		filepath.Join(p.DatasetImages, "train"),
		filepath.Join(p.DatasetImages, "val"),
		filepath.Join(p.DatasetLabels, "train"),
		filepath.Join(p.DatasetLabels, "val"),
	}
}

// EnsureDirs creates every directory of the layout
func (p Paths) EnsureDirs() error {
	dirs := []string{
		p.IncomingImages,
		p.IncomingVideos,
		p.Unlabeled,
		p.ToLabel,
		p.Autolabeled,
		p.Labeled,
		p.RunsDir,
	}
	dirs = append(dirs, p.SplitDirs()...)
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0775); err != nil {
			return err
		}
	}
	return nil
}

// listFiles returns the sorted file names (not paths) in dir that pass keep.
// Non-recursive: subdirectories are ignored.
func listFiles(dir string, keep func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !keep(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	// os.ReadDir sorts by filename, which gives us a stable processing order
	return names, nil
}

// copyFile copies src to dst, creating dst's directory if needed
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0775); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
