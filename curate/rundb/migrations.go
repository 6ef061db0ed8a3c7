package rundb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE run(
			id TEXT PRIMARY KEY,
			stage TEXT NOT NULL,
			started_at INT NOT NULL,
			finished_at INT,
			scanned INT NOT NULL DEFAULT 0,
			to_label INT NOT NULL DEFAULT 0,
			autolabeled INT NOT NULL DEFAULT 0,
			errors INT NOT NULL DEFAULT 0,
			conf_low REAL NOT NULL DEFAULT 0,
			conf_high REAL NOT NULL DEFAULT 0
		);

		CREATE TABLE route(
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			file TEXT NOT NULL,
			route TEXT NOT NULL,
			reason TEXT NOT NULL
		);
		CREATE INDEX idx_route_run_id ON route (run_id);

	`))

	return migs
}
