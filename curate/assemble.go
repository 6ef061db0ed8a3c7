package curate

import (
	"math/rand"
	"os"
	"path/filepath"

	"github.com/cyclopcam/logs"
)

// pair is one (image, annotation) unit that travels through assembly together
type pair struct {
	imagePath      string
	annotationPath string
	imageName      string
	annotationName string
}

// Assembler builds a fresh train/validation layout from the merged
// human-labeled and autolabeled pools.
type Assembler struct {
	Log      logs.Log
	Paths    Paths
	ValSplit float64 // fraction of the merged pool assigned to validation
	Seed     int64   // shuffle seed; a fixed seed makes the split reproducible
}

func NewAssembler(log logs.Log, paths Paths, valSplit float64, seed int64) *Assembler {
	return &Assembler{
		Log:      log,
		Paths:    paths,
		ValSplit: valSplit,
		Seed:     seed,
	}
}

// Run regenerates the dataset layout from scratch and returns
// (trainCount, valCount). The previous split is discarded entirely, so the
// output always reflects exactly the current labeled+autolabeled pools.
func (a *Assembler) Run() (int, int, error) {
	if err := a.Paths.EnsureDirs(); err != nil {
		return 0, 0, err
	}

	pairs, err := a.collectPairs()
	if err != nil {
		return 0, 0, err
	}

	rnd := rand.New(rand.NewSource(a.Seed))
	rnd.Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})

	nTotal := len(pairs)
	nVal := 0
	if nTotal > 0 {
		nVal = max(1, int(float64(nTotal)*a.ValSplit))
	}

	if err := a.clearSplitDirs(); err != nil {
		return 0, 0, err
	}

	for i, p := range pairs {
		split := "train"
		if i < nVal {
			split = "val"
		}
		if err := copyFile(p.imagePath, filepath.Join(a.Paths.DatasetImages, split, p.imageName)); err != nil {
			return 0, 0, err
		}
		if err := copyFile(p.annotationPath, filepath.Join(a.Paths.DatasetLabels, split, p.annotationName)); err != nil {
			return 0, 0, err
		}
	}

	nTrain := nTotal - nVal
	a.Log.Infof("Dataset assembled: train %v, val %v", nTrain, nVal)
	return nTrain, nVal, nil
}

// collectPairs gathers every image with a matching annotation from the labeled
// and autolabeled pools. An image without its annotation (or vice versa) is
// silently excluded: an incomplete pair must never reach the training set.
func (a *Assembler) collectPairs() ([]pair, error) {
	pairs := []pair{}
	for _, dir := range []string{a.Paths.Labeled, a.Paths.Autolabeled} {
		images, err := listFiles(dir, IsImageFile)
		if err != nil {
			return nil, err
		}
		for _, name := range images {
			annotation := annotationName(name)
			annotationPath := filepath.Join(dir, annotation)
			if _, err := os.Stat(annotationPath); err != nil {
				continue
			}
			pairs = append(pairs, pair{
				imagePath:      filepath.Join(dir, name),
				annotationPath: annotationPath,
				imageName:      name,
				annotationName: annotation,
			})
		}
	}
	return pairs, nil
}

func (a *Assembler) clearSplitDirs() error {
	for _, dir := range a.Paths.SplitDirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}
