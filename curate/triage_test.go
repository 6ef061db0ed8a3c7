package curate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/gardencam/gardencam/pkg/nn"
	"github.com/stretchr/testify/require"
)

// mockDetector returns canned detections per image base name
type mockDetector struct {
	responses map[string][]nn.ObjectDetection
	failures  map[string]error
	config    nn.ModelConfig
}

func newMockDetector() *mockDetector {
	return &mockDetector{
		responses: map[string][]nn.ObjectDetection{},
		failures:  map[string]error{},
		config: nn.ModelConfig{
			Architecture: "mock",
			Width:        640,
			Height:       640,
			Classes:      nn.DefaultClasses,
		},
	}
}

func (m *mockDetector) Close() {}

func (m *mockDetector) Config() *nn.ModelConfig {
	return &m.config
}

func (m *mockDetector) DetectObjects(imagePath string, confidenceFloor float32) ([]nn.ObjectDetection, error) {
	name := filepath.Base(imagePath)
	if err, ok := m.failures[name]; ok {
		return nil, err
	}
	return m.responses[name], nil
}

func det(confidences ...float32) []nn.ObjectDetection {
	out := []nn.ObjectDetection{}
	for i, c := range confidences {
		out = append(out, nn.ObjectDetection{
			Class:      i,
			Confidence: c,
			Box:        nn.Box{CX: 0.5, CY: 0.5, Width: 0.2, Height: 0.2},
		})
	}
	return out
}

func setupTriage(t *testing.T) (Paths, *mockDetector, *Triage) {
	paths := NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirs())
	model := newMockDetector()
	tr := NewTriage(logs.NewTestingLog(t), paths, model, 0.15, 0.45)
	return paths, model, tr
}

func addUnlabeled(t *testing.T, paths Paths, name string) {
	require.NoError(t, os.WriteFile(filepath.Join(paths.Unlabeled, name), []byte("pixels-"+name), 0644))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func decisionFor(decisions []RouteDecision, file string) *RouteDecision {
	for i := range decisions {
		if decisions[i].File == file {
			return &decisions[i]
		}
	}
	return nil
}

func TestTriageNoDetections(t *testing.T) {
	paths, model, tr := setupTriage(t)
	addUnlabeled(t, paths, "empty.jpg")
	model.responses["empty.jpg"] = nil

	stats, decisions, err := tr.Run()
	require.NoError(t, err)
	require.Equal(t, TriageStats{Scanned: 1, ToLabel: 1}, stats)
	require.Equal(t, "no_detections", decisionFor(decisions, "empty.jpg").Reason)
	require.True(t, fileExists(filepath.Join(paths.ToLabel, "empty.jpg")))
	require.False(t, fileExists(filepath.Join(paths.Unlabeled, "empty.jpg")))
}

func TestTriageBoundary(t *testing.T) {
	paths, model, tr := setupTriage(t)
	// exactly at confHigh: uncertain
	addUnlabeled(t, paths, "at_high.jpg")
	model.responses["at_high.jpg"] = det(0.45)
	// just above confHigh, single detection (margin = conf): confident
	addUnlabeled(t, paths, "above_high.jpg")
	model.responses["above_high.jpg"] = det(0.451)

	stats, decisions, err := tr.Run()
	require.NoError(t, err)
	require.Equal(t, TriageStats{Scanned: 2, ToLabel: 1, Autolabeled: 1}, stats)

	require.Equal(t, RouteToLabel, decisionFor(decisions, "at_high.jpg").Route)
	require.Equal(t, RouteAutolabeled, decisionFor(decisions, "above_high.jpg").Route)
	require.Equal(t, "confident(max=0.45)", decisionFor(decisions, "above_high.jpg").Reason)

	require.True(t, fileExists(filepath.Join(paths.ToLabel, "at_high.jpg")))
	require.True(t, fileExists(filepath.Join(paths.Autolabeled, "above_high.jpg")))
	require.True(t, fileExists(filepath.Join(paths.Autolabeled, "above_high.txt")))
}

func TestTriageMarginRule(t *testing.T) {
	paths, model, tr := setupTriage(t)
	// both well above confHigh, but margin 0.05 < 0.10: ambiguous
	addUnlabeled(t, paths, "close_call.jpg")
	model.responses["close_call.jpg"] = det(0.80, 0.75)
	// clear margin: confident
	addUnlabeled(t, paths, "clear.jpg")
	model.responses["clear.jpg"] = det(0.90, 0.60)

	stats, decisions, err := tr.Run()
	require.NoError(t, err)
	require.Equal(t, TriageStats{Scanned: 2, ToLabel: 1, Autolabeled: 1}, stats)
	require.Equal(t, RouteToLabel, decisionFor(decisions, "close_call.jpg").Route)
	require.Contains(t, decisionFor(decisions, "close_call.jpg").Reason, "uncertain")
	require.Contains(t, decisionFor(decisions, "close_call.jpg").Reason, "margin=0.05")
	require.Equal(t, RouteAutolabeled, decisionFor(decisions, "clear.jpg").Route)
}

func TestTriageAnnotationContent(t *testing.T) {
	paths, model, tr := setupTriage(t)
	addUnlabeled(t, paths, "sprinkler.jpg")
	model.responses["sprinkler.jpg"] = []nn.ObjectDetection{
		{Class: 7, Confidence: 0.92, Box: nn.Box{CX: 0.25, CY: 0.5, Width: 0.1, Height: 0.3}},
	}

	_, _, err := tr.Run()
	require.NoError(t, err)

	parsed, err := nn.ParseAnnotationFile(filepath.Join(paths.Autolabeled, "sprinkler.txt"))
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	require.Equal(t, 7, parsed[0].Class)
	require.InDelta(t, 0.25, parsed[0].Box.CX, 1e-6)
	require.InDelta(t, 0.3, parsed[0].Box.Height, 1e-6)
}

func TestTriageErrorIsolation(t *testing.T) {
	paths, model, tr := setupTriage(t)
	addUnlabeled(t, paths, "good1.jpg")
	model.responses["good1.jpg"] = det(0.9)
	addUnlabeled(t, paths, "bad.jpg")
	model.failures["bad.jpg"] = errors.New("model exploded")
	addUnlabeled(t, paths, "good2.jpg")
	model.responses["good2.jpg"] = nil

	stats, decisions, err := tr.Run()
	require.NoError(t, err)
	require.Equal(t, TriageStats{Scanned: 3, ToLabel: 1, Autolabeled: 1, Errors: 1}, stats)
	require.Len(t, decisions, 3)
	require.Equal(t, RouteError, decisionFor(decisions, "bad.jpg").Route)
	require.Equal(t, "model exploded", decisionFor(decisions, "bad.jpg").Reason)
	// the failed image stays put for the next run
	require.True(t, fileExists(filepath.Join(paths.Unlabeled, "bad.jpg")))
	require.False(t, fileExists(filepath.Join(paths.Unlabeled, "good1.jpg")))
	require.False(t, fileExists(filepath.Join(paths.Unlabeled, "good2.jpg")))
}

func TestTriageEmptyPool(t *testing.T) {
	_, _, tr := setupTriage(t)
	stats, decisions, err := tr.Run()
	require.NoError(t, err)
	require.Equal(t, TriageStats{}, stats)
	require.Len(t, decisions, 0)
}
