package nn

import (
	"github.com/chewxy/math32"
)

// MaxConfidence returns the highest confidence among detections, or 0 if empty
func MaxConfidence(detections []ObjectDetection) float32 {
	m := float32(0)
	for _, d := range detections {
		m = math32.Max(m, d.Confidence)
	}
	return m
}

// MeanConfidence returns the arithmetic mean of confidences, or 0 if empty
func MeanConfidence(detections []ObjectDetection) float32 {
	if len(detections) == 0 {
		return 0
	}
	sum := float32(0)
	for _, d := range detections {
		sum += d.Confidence
	}
	return sum / float32(len(detections))
}

// Margin returns the gap between the two highest confidences, which we use as
// a proxy for ambiguity. With a single detection the margin is the confidence
// itself (gap to an implicit zero-confidence runner-up).
func Margin(detections []ObjectDetection) float32 {
	top1 := float32(0)
	top2 := float32(0)
	for _, d := range detections {
		if d.Confidence > top1 {
			top2 = top1
			top1 = d.Confidence
		} else if d.Confidence > top2 {
			top2 = d.Confidence
		}
	}
	return top1 - top2
}
