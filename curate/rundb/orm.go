package rundb

import (
	"github.com/cyclopcam/dbh"
)

// Run is one invocation of a pipeline stage
type Run struct {
	ID          string      `gorm:"primaryKey" json:"id"` // uuid
	Stage       string      `json:"stage"`                // "select", "prep"
	StartedAt   dbh.IntTime `json:"startedAt"`
	FinishedAt  dbh.IntTime `json:"finishedAt" gorm:"default:null"`
	Scanned     int         `json:"scanned"`
	ToLabel     int         `json:"toLabel"`
	Autolabeled int         `json:"autolabeled"`
	Errors      int         `json:"errors"`
	ConfLow     float64     `json:"confLow"`
	ConfHigh    float64     `json:"confHigh"`
}

// RouteRecord is the triage outcome of one asset in one run
type RouteRecord struct {
	ID     int64  `gorm:"primaryKey" json:"id"`
	RunID  string `json:"runID"`
	File   string `json:"file"`
	Route  string `json:"route"`
	Reason string `json:"reason"`
}

func (RouteRecord) TableName() string {
	return "route"
}

func (Run) TableName() string {
	return "run"
}
