package postgres

import (
	"context"
	"database/sql"
	"os"

	"github.com/pkg/errors"
)

// schema locations tried in order, relative to wherever the binary runs
var schemaPaths = []string{
	"script/migration/schema.sql",       // repo root (go run ./cmd/api)
	"../script/migration/schema.sql",    // cmd
	"../../script/migration/schema.sql", // cmd/api
}

// RunMigrations executes the schema file to initialize the database
func RunMigrations(ctx context.Context, db *sql.DB) error {
	path, err := locateSchema(schemaPaths)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read migration file %s", path)
	}

	if _, err := db.ExecContext(ctx, string(content)); err != nil {
		return errors.Wrap(err, "failed to execute schema.sql")
	}
	return nil
}

func locateSchema(candidates []string) (string, error) {
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	wd, _ := os.Getwd()
	return "", errors.Errorf("migration file not found (looked for %v from %s)", candidates, wd)
}
