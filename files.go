package credentials

import (
	"context"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

const migrationSplit = "--bun:split"

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// DialectMigrations returns the migrations for dialect ("sqlite" or "postgres").
func DialectMigrations(dialect string) (fs.FS, error) {
	return fs.Sub(migrationsFS, path.Join("data/sql/migrations", dialect))
}

// RegisterModels registers the credentials models with go-persistence-bun.
func RegisterModels() {
	persistence.RegisterModel((*User)(nil))
	persistence.RegisterModel((*Group)(nil))
	persistence.RegisterModel((*UserGroup)(nil))
	persistence.RegisterModel((*Revision)(nil))
}

// ApplyMigrations runs every up migration for dialect in file order. It is
// meant for tests and tools that do not run a migration manager.
func ApplyMigrations(ctx context.Context, db bun.IDB, dialect string) error {
	fsys, err := DialectMigrations(dialect)
	if err != nil {
		return err
	}

	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return goerrors.New("no migrations found", goerrors.CategoryNotFound).
			WithMetadata(map[string]any{"dialect": dialect})
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}

		for _, stmt := range strings.Split(string(raw), migrationSplit) {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migration").
					WithMetadata(map[string]any{"file": name})
			}
		}
	}

	return nil
}
