package nn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfidenceStats(t *testing.T) {
	require.Equal(t, float32(0), MaxConfidence(nil))
	require.Equal(t, float32(0), MeanConfidence(nil))
	require.Equal(t, float32(0), Margin(nil))

	single := []ObjectDetection{{Class: 1, Confidence: 0.451}}
	require.Equal(t, float32(0.451), MaxConfidence(single))
	require.Equal(t, float32(0.451), MeanConfidence(single))
	// a lone detection has an implicit zero-confidence runner-up
	require.Equal(t, float32(0.451), Margin(single))

	pair := []ObjectDetection{
		{Class: 0, Confidence: 0.80},
		{Class: 3, Confidence: 0.75},
	}
	require.Equal(t, float32(0.80), MaxConfidence(pair))
	require.InDelta(t, 0.775, MeanConfidence(pair), 1e-6)
	require.InDelta(t, 0.05, Margin(pair), 1e-6)

	// order must not matter
	pair[0], pair[1] = pair[1], pair[0]
	require.InDelta(t, 0.05, Margin(pair), 1e-6)
}

func TestAnnotationRoundTrip(t *testing.T) {
	detections := []ObjectDetection{
		{Class: 2, Confidence: 0.91, Box: Box{CX: 0.5, CY: 0.25, Width: 0.123456, Height: 0.75}},
		{Class: 7, Confidence: 0.66, Box: Box{CX: 0.001, CY: 0.999, Width: 0.33, Height: 0.44}},
	}
	filename := filepath.Join(t.TempDir(), "frame_000001.txt")
	require.NoError(t, WriteAnnotationFile(filename, detections))

	parsed, err := ParseAnnotationFile(filename)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	for i := range detections {
		require.Equal(t, detections[i].Class, parsed[i].Class)
		require.InDelta(t, detections[i].Box.CX, parsed[i].Box.CX, 1e-6)
		require.InDelta(t, detections[i].Box.CY, parsed[i].Box.CY, 1e-6)
		require.InDelta(t, detections[i].Box.Width, parsed[i].Box.Width, 1e-6)
		require.InDelta(t, detections[i].Box.Height, parsed[i].Box.Height, 1e-6)
	}
}

func TestAnnotationEmpty(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, WriteAnnotationFile(filename, nil))
	parsed, err := ParseAnnotationFile(filename)
	require.NoError(t, err)
	require.Len(t, parsed, 0)
}

func TestAnnotationMalformed(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(filename, []byte("3 0.5 0.5 0.1"), 0644))
	_, err := ParseAnnotationFile(filename)
	require.Error(t, err)
}

func TestLoadClassFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "classes.txt")
	require.NoError(t, os.WriteFile(filename, []byte("healthy_grass\n\n  dry_grass  \nwater\n"), 0644))
	classes, err := LoadClassFile(filename)
	require.NoError(t, err)
	require.Equal(t, []string{"healthy_grass", "dry_grass", "water"}, classes)
}
