package rundb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Package rundb keeps the pipeline's run history in sqlite, so that threshold
// tuning can query how past runs routed their images. The CSV run log remains
// the append-only audit artifact; this DB is the queryable view of the same
// information, plus per-run aggregates.

type RunDB struct {
	Log logs.Log
	DB  *gorm.DB
}

func Open(logger logs.Log, dbFilename string) (*RunDB, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0775)
	db, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbFilename), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open run database %v: %w", dbFilename, err)
	}
	return &RunDB{
		Log: logger,
		DB:  db,
	}, nil
}

// BeginRun records the start of a pipeline stage and returns the run ID
func (r *RunDB) BeginRun(stage string, confLow, confHigh float64) (string, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Stage:     stage,
		StartedAt: dbh.MakeIntTime(time.Now()),
		ConfLow:   confLow,
		ConfHigh:  confHigh,
	}
	if err := r.DB.Create(run).Error; err != nil {
		return "", err
	}
	return run.ID, nil
}

// FinishRun stores the aggregate counts of a completed run
func (r *RunDB) FinishRun(runID string, scanned, toLabel, autolabeled, errors int) error {
	return r.DB.Model(&Run{}).Where("id = ?", runID).Updates(map[string]any{
		"finished_at": dbh.MakeIntTime(time.Now()),
		"scanned":     scanned,
		"to_label":    toLabel,
		"autolabeled": autolabeled,
		"errors":      errors,
	}).Error
}

// AddRoutes stores one record per triaged asset
func (r *RunDB) AddRoutes(runID string, routes []RouteRecord) error {
	if len(routes) == 0 {
		return nil
	}
	for i := range routes {
		routes[i].RunID = runID
	}
	return r.DB.Create(&routes).Error
}

// GetRun fetches one run by ID
func (r *RunDB) GetRun(runID string) (*Run, error) {
	run := &Run{}
	if err := r.DB.First(run, "id = ?", runID).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// GetRoutes fetches the per-asset records of one run, in insertion order
func (r *RunDB) GetRoutes(runID string) ([]RouteRecord, error) {
	routes := []RouteRecord{}
	if err := r.DB.Where("run_id = ?", runID).Order("id").Find(&routes).Error; err != nil {
		return nil, err
	}
	return routes, nil
}
