package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/pkg/db/models"
)

// DefaultDir is where the create and validate commands work on disk.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var bundled embed.FS

// Runner applies goose migrations against Postgres. An empty dir runs the
// SQL bundled into the binary.
type Runner struct {
	db   *sql.DB
	dir  string
	fsys fs.FS
}

func NewRunner(db *sql.DB, dir string) (*Runner, error) {
	if db == nil {
		return nil, errors.New("migrate: db is required")
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("migrate: dialect: %w", err)
	}
	if dir == "" {
		return &Runner{db: db, dir: "migrations", fsys: bundled}, nil
	}
	return &Runner{db: db, dir: dir}, nil
}

// Exec runs a plain goose command such as up, down or status.
func (r *Runner) Exec(ctx context.Context, command string) error {
	goose.SetBaseFS(r.fsys)
	if err := goose.RunContext(ctx, command, r.db, r.dir); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	return nil
}

// To moves the schema up or down until it sits at version.
func (r *Runner) To(ctx context.Context, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("migrate: version %q is not a goose timestamp: %w", version, err)
	}
	goose.SetBaseFS(r.fsys)
	current, err := goose.GetDBVersion(r.db)
	if err != nil {
		return fmt.Errorf("migrate: read version: %w", err)
	}
	switch {
	case target > current:
		err = goose.UpToContext(ctx, r.db, r.dir, target)
	case target < current:
		err = goose.DownToContext(ctx, r.db, r.dir, target)
	}
	if err != nil {
		return fmt.Errorf("migrate to %d: %w", target, err)
	}
	return nil
}

// AutoMigrateModels derives the schema from the gorm models. The sqlite
// mode and the tests use it since the SQL files are Postgres-only.
func AutoMigrateModels(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
