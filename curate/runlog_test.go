package curate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunLogAppend(t *testing.T) {
	rl := NewRunLog(filepath.Join(t.TempDir(), "log.csv"))

	require.NoError(t, rl.Append([]RouteDecision{
		{File: "a.jpg", Route: RouteToLabel, Reason: "no_detections"},
		{File: "b.jpg", Route: RouteAutolabeled, Reason: "confident(max=0.91)"},
	}))
	rows, err := rl.Read()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, runLogHeader, rows[0])
	require.Equal(t, "a.jpg", rows[1][0])
	require.Equal(t, "to_label", rows[1][1])

	// a second append extends the log; header is not repeated, prior rows untouched
	require.NoError(t, rl.Append([]RouteDecision{
		{File: "c.jpg", Route: RouteError, Reason: "inference failed"},
	}))
	rows, err = rl.Read()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, "b.jpg", rows[2][0])
	require.Equal(t, "c.jpg", rows[3][0])
	require.Equal(t, "error", rows[3][1])
}

func TestRunLogEmptyAppend(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "log.csv")
	rl := NewRunLog(filename)
	require.NoError(t, rl.Append(nil))
	// nothing to say, so the file isn't even created
	_, err := rl.Read()
	require.Error(t, err)
}
