package nn

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Annotation files are the standard YOLO text format: one line per object,
// "<class> <cx> <cy> <w> <h>", box fields normalized and written with 6
// decimal digits, no header. An image and its annotation share a base name,
// with the annotation carrying a ".txt" extension.

// FormatAnnotation returns the annotation file content for detections
func FormatAnnotation(detections []ObjectDetection) string {
	lines := make([]string, 0, len(detections))
	for _, d := range detections {
		lines = append(lines, fmt.Sprintf("%v %.6f %.6f %.6f %.6f", d.Class, d.Box.CX, d.Box.CY, d.Box.Width, d.Box.Height))
	}
	return strings.Join(lines, "\n")
}

// WriteAnnotationFile writes detections as an annotation file
func WriteAnnotationFile(filename string, detections []ObjectDetection) error {
	return os.WriteFile(filename, []byte(FormatAnnotation(detections)), 0644)
}

// ParseAnnotationFile reads an annotation file back into detections.
// Confidence is not stored in annotation files, so it comes back as zero.
func ParseAnnotationFile(filename string) ([]ObjectDetection, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	detections := []ObjectDetection{}
	for i, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, fmt.Errorf("Invalid annotation on line %v of %v: expected 5 fields, got %v", i+1, filename, len(fields))
		}
		class, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("Invalid class id on line %v of %v: %w", i+1, filename, err)
		}
		box := [4]float32{}
		for j := 0; j < 4; j++ {
			v, err := strconv.ParseFloat(fields[j+1], 32)
			if err != nil {
				return nil, fmt.Errorf("Invalid box field on line %v of %v: %w", i+1, filename, err)
			}
			box[j] = float32(v)
		}
		detections = append(detections, ObjectDetection{
			Class: class,
			Box:   Box{CX: box[0], CY: box[1], Width: box[2], Height: box[3]},
		})
	}
	return detections, nil
}
