package curate

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"time"
)

// RunLog is the append-only CSV audit trail: one row per triaged asset per
// run, recording which route it took and why. Existing content is never
// rewritten; the header is written only when the file is first created.
type RunLog struct {
	filename string
}

func NewRunLog(filename string) *RunLog {
	return &RunLog{filename: filename}
}

var runLogHeader = []string{"file", "route", "reason", "time"}

// Append writes decisions to the end of the log
func (rl *RunLog) Append(decisions []RouteDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(rl.filename), 0775); err != nil {
		return err
	}
	_, statErr := os.Stat(rl.filename)
	needHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(rl.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(runLogHeader); err != nil {
			return err
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, d := range decisions {
		if err := w.Write([]string{d.File, string(d.Route), d.Reason, now}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// Read loads the whole log back. Mostly for tests and threshold tuning.
func (rl *RunLog) Read() ([][]string, error) {
	f, err := os.Open(rl.filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).ReadAll()
}
