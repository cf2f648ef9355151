package store

import "fmt"

var migrations = []string{
	// one row per answered sign or emotion request
	`CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK(kind IN ('sign', 'emotion')),
		label TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		request_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_predictions_kind_created ON predictions(kind, created_at)`,
}

// runMigrations applies the schema in a single transaction.
func (s *Store) runMigrations() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, m := range migrations {
		if _, err := tx.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return tx.Commit()
}
