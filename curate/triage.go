package curate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/logs"
	"github.com/gardencam/gardencam/pkg/nn"
)

// Margin between the top two confidences below which we consider the model
// ambiguous about an image, regardless of how high the top confidence is
const DefaultMarginCutoff = 0.10

type Route string

const (
	RouteToLabel     Route = "to_label"    // deferred to a human
	RouteAutolabeled Route = "autolabeled" // machine annotation accepted
	RouteError       Route = "error"       // inference or I/O failed; file stays in unlabeled
)

// RouteDecision is the triage outcome for one image
type RouteDecision struct {
	File   string
	Route  Route
	Reason string
}

// TriageStats are the aggregate counts of one triage run
type TriageStats struct {
	Scanned     int
	ToLabel     int
	Autolabeled int
	Errors      int
}

// Triage routes each unlabeled image to the auto-label or human-label path,
// based on how confident the detection model is about it.
type Triage struct {
	Log          logs.Log
	Paths        Paths
	Model        nn.ObjectDetector
	ConfLow      float32 // <= this is low confidence
	ConfHigh     float32 // (low, high] is mid confidence; must be > ConfLow
	MarginCutoff float32 // zero means DefaultMarginCutoff
}

func NewTriage(log logs.Log, paths Paths, model nn.ObjectDetector, confLow, confHigh float32) *Triage {
	return &Triage{
		Log:          log,
		Paths:        paths,
		Model:        model,
		ConfLow:      confLow,
		ConfHigh:     confHigh,
		MarginCutoff: DefaultMarginCutoff,
	}
}

// Run triages every image in the unlabeled pool, one at a time.
// A failure on one image is recorded as a RouteError decision and processing
// continues; the error never escapes to the caller. The returned decisions
// hold one entry per scanned image, for the run log.
func (tr *Triage) Run() (TriageStats, []RouteDecision, error) {
	if err := tr.Paths.EnsureDirs(); err != nil {
		return TriageStats{}, nil, err
	}
	images, err := listFiles(tr.Paths.Unlabeled, IsImageFile)
	if err != nil {
		return TriageStats{}, nil, err
	}

	stats := TriageStats{}
	decisions := make([]RouteDecision, 0, len(images))
	for _, name := range images {
		stats.Scanned++
		decision := tr.triageOne(name)
		decisions = append(decisions, decision)
		switch decision.Route {
		case RouteToLabel:
			stats.ToLabel++
		case RouteAutolabeled:
			stats.Autolabeled++
		case RouteError:
			stats.Errors++
			tr.Log.Warnf("Triage failed on %v: %v", name, decision.Reason)
		}
	}
	tr.Log.Infof("Triage complete: scanned %v, to_label %v, autolabeled %v, errors %v",
		stats.Scanned, stats.ToLabel, stats.Autolabeled, stats.Errors)
	return stats, decisions, nil
}

// triageOne classifies a single image and relocates it. An image that errors
// is left in the unlabeled pool: failure happens before any file move, so the
// fail-safe state is "still waiting for triage".
func (tr *Triage) triageOne(name string) RouteDecision {
	srcPath := filepath.Join(tr.Paths.Unlabeled, name)

	detections, err := tr.Model.DetectObjects(srcPath, nn.InspectionConfidenceFloor)
	if err != nil {
		return RouteDecision{File: name, Route: RouteError, Reason: err.Error()}
	}

	if len(detections) == 0 {
		if err := tr.moveToLabel(srcPath, name); err != nil {
			return RouteDecision{File: name, Route: RouteError, Reason: err.Error()}
		}
		return RouteDecision{File: name, Route: RouteToLabel, Reason: "no_detections"}
	}

	maxConf := nn.MaxConfidence(detections)
	meanConf := nn.MeanConfidence(detections)
	margin := nn.Margin(detections)
	marginCutoff := tr.MarginCutoff
	if marginCutoff == 0 {
		marginCutoff = DefaultMarginCutoff
	}

	// Uncertain if the best detection doesn't clear the high bar, or the top
	// two detections are too close to call
	if maxConf <= tr.ConfHigh || margin < marginCutoff {
		if err := tr.moveToLabel(srcPath, name); err != nil {
			return RouteDecision{File: name, Route: RouteError, Reason: err.Error()}
		}
		return RouteDecision{
			File:   name,
			Route:  RouteToLabel,
			Reason: fmt.Sprintf("uncertain(max=%.2f,mean=%.2f,margin=%.2f)", maxConf, meanConf, margin),
		}
	}

	if err := tr.acceptAutolabel(srcPath, name, detections); err != nil {
		return RouteDecision{File: name, Route: RouteError, Reason: err.Error()}
	}
	return RouteDecision{
		File:   name,
		Route:  RouteAutolabeled,
		Reason: fmt.Sprintf("confident(max=%.2f)", maxConf),
	}
}

func (tr *Triage) moveToLabel(srcPath, name string) error {
	if err := copyFile(srcPath, filepath.Join(tr.Paths.ToLabel, name)); err != nil {
		return err
	}
	return os.Remove(srcPath)
}

func (tr *Triage) acceptAutolabel(srcPath, name string, detections []nn.ObjectDetection) error {
	if err := copyFile(srcPath, filepath.Join(tr.Paths.Autolabeled, name)); err != nil {
		return err
	}
	annotation := annotationName(name)
	if err := nn.WriteAnnotationFile(filepath.Join(tr.Paths.Autolabeled, annotation), detections); err != nil {
		return err
	}
	return os.Remove(srcPath)
}

// annotationName returns the sibling annotation filename for an image,
// eg "lawn_f000030.jpg" -> "lawn_f000030.txt"
func annotationName(imageName string) string {
	return imageName[:len(imageName)-len(filepath.Ext(imageName))] + ".txt"
}
