package db

import (
	"context"
	"fmt"
)

// NormalizeTimestamps rewrites timestamps stored by older versions into
// timeLayout. Rows written as RFC3339 ("2024-01-02T03:04:05Z") or with a Go
// zone suffix (" +0000 UTC") would otherwise miss day-prefix lookups and sort
// incorrectly.
func (db *DB) NormalizeTimestamps() error {
	queries := []string{
		`UPDATE comments
		 SET created_at = REPLACE(SUBSTR(created_at, 1, 19), 'T', ' ')
		 WHERE created_at LIKE '____-__-__T%Z'`,

		`UPDATE comments
		 SET created_at = SUBSTR(created_at, 1, 19)
		 WHERE length(created_at) > 19 AND created_at LIKE '% UTC'`,

		`UPDATE build_runs
		 SET started_at = SUBSTR(started_at, 1, 19)
		 WHERE length(started_at) > 19 AND started_at LIKE '% UTC'`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(context.Background(), query); err != nil {
			return fmt.Errorf("failed to normalize timestamps: %w", err)
		}
	}

	return nil
}
