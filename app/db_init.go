package app

import (
	"fmt"
	"log"
)

// Open the database on startup and run cleanup operations.
// If init is true, we also first initialize the schema.
func InitDB(fname string, init bool) error {
	if db != nil {
		db.Close()
	}
	var err error
	db, err = OpenDatabase(fname)
	if err != nil {
		return fmt.Errorf("error opening database %s: %v", fname, err)
	}

	if init {
		db.Exec(`CREATE TABLE IF NOT EXISTS models (
			id INTEGER PRIMARY KEY ASC,
			name TEXT,
			-- JSON ModelConfiguration
			config TEXT,
			-- JSON CompiledModelSpec derived from config
			spec TEXT,
			created TIMESTAMP
		)`)
		db.Exec(`CREATE TABLE IF NOT EXISTS datasets (
			model_id INTEGER PRIMARY KEY REFERENCES models(id),
			inputs TEXT,
			targets TEXT,
			split_ratio REAL
		)`)
		db.Exec(`CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER PRIMARY KEY ASC,
			name TEXT,
			-- 'train' or 'test'
			type TEXT,
			metadata TEXT,
			start_time TIMESTAMP,
			state TEXT DEFAULT '',
			done INTEGER DEFAULT 0,
			error TEXT DEFAULT ''
		)`)
	}

	// mark jobs that are still running as error
	res := db.Exec("UPDATE jobs SET error = 'terminated', done = 1 WHERE done = 0")
	if n := res.RowsAffected(); n > 0 {
		log.Printf("[db] marked %d interrupted jobs as terminated", n)
	}
	return nil
}
