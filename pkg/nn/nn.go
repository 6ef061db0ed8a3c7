package nn

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
)

// Package nn is the neural network interface layer of the curation pipeline.
// Concrete detectors (eg the remote inference service in pkg/nnremote) implement
// ObjectDetector; everything above this package is backend-agnostic.

// Lowest confidence floor we ever pass to a detector. Triage wants borderline
// detections returned so that it can measure uncertainty, so this is far below
// any threshold a user would configure.
const InspectionConfidenceFloor = 0.001

// Box is a normalized bounding box: center and size expressed as fractions of
// the image width/height, all in [0,1].
type Box struct {
	CX     float32 `json:"cx"`
	CY     float32 `json:"cy"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// ObjectDetection is an object that a neural network has found in an image
type ObjectDetection struct {
	Class      int     `json:"class"`
	Confidence float32 `json:"confidence"`
	Box        Box     `json:"box"`
}

// ObjectDetector is given an image, and returns zero or more detected objects.
// Zero detections is a valid result, not an error.
type ObjectDetector interface {
	// Close closes the detector (release connections or any other backend state)
	Close()

	// DetectObjects runs the model on the image file at imagePath.
	// confidenceFloor is the minimum confidence of detections to return;
	// use InspectionConfidenceFloor to see everything the model found.
	DetectObjects(imagePath string, confidenceFloor float32) ([]ObjectDetection, error)

	// Model Config.
	// Callers assume that ModelConfig will remain constant, so don't change it
	// once the detector has been created.
	Config() *ModelConfig
}

// ModelConfig describes the model behind an ObjectDetector
type ModelConfig struct {
	Architecture string   `json:"architecture"` // eg "yolov8"
	Width        int      `json:"width"`        // eg 640
	Height       int      `json:"height"`       // eg 640
	Classes      []string `json:"classes"`      // eg ["healthy_grass", "dry_grass", ...]
}

// DefaultClasses is the garden hydration class set, in training index order.
// The order matters: annotation files store the index, not the name.
var DefaultClasses = []string{
	"healthy_grass",
	"dry_grass",
	"water",
	"standing_water",
	"mud",
	"mushy_grass",
	"leak",
	"sprinkler",
}

// Load model config from a JSON file
func LoadModelConfig(filename string) (*ModelConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config := &ModelConfig{}
	err = json.Unmarshal(b, config)
	if err != nil {
		return nil, err
	}
	return config, nil
}

// Load a text file with class names on each line
func LoadClassFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	classes := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			classes = append(classes, line)
		}
	}
	return classes, nil
}
