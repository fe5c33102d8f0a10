package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Database wraps a SQLite file opened twice: a pool of readers and a
// single writer, which is what SQLite in WAL mode handles well.
type Database struct {
	logger *slog.Logger
	read   *sql.DB
	write  *sql.DB
	path   string
}

var pragmas = []string{
	"journal_mode = WAL",
	"synchronous = NORMAL",
	"temp_store = MEMORY",
	"busy_timeout = 5000",
	"foreign_keys = ON",
	"trusted_schema = OFF",
}

func init() {
	sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, _ string) error {
		for _, p := range pragmas {
			if _, err := conn.ExecContext(context.Background(), "PRAGMA "+p, nil); err != nil {
				return fmt.Errorf("PRAGMA %s: %w", p, err)
			}
		}
		return nil
	})
}

func open(path string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxConns)
	db.SetConnMaxIdleTime(time.Minute)
	return db, nil
}

// New opens the database at path and applies pending migrations.
func New(ctx context.Context, path string) (*Database, error) {
	read, err := open(path, 8)
	if err != nil {
		return nil, fmt.Errorf("error when opening database (read): %w", err)
	}
	write, err := open(path, 1)
	if err != nil {
		read.Close()
		return nil, fmt.Errorf("error when opening database (write): %w", err)
	}

	d := &Database{
		logger: slog.Default().With(slog.String("module", "database")),
		read:   read,
		write:  write,
		path:   path,
	}
	if err := d.migrate(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return d, nil
}

func (d *Database) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

func (d *Database) Close() {
	d.read.Close()
	d.write.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	return d.read.PingContext(ctx)
}

// Version is the number of the last applied migration.
func (d *Database) Version(ctx context.Context) (int, error) {
	var v int
	err := d.read.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

type migration struct {
	version int
	file    string
}

// migrations lists the embedded NNN_name.sql files ordered by version.
func migrations() ([]migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var res []migration
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		prefix, _, ok := strings.Cut(e.Name(), "_")
		v, err := strconv.Atoi(prefix)
		if !ok || err != nil || v < 1 {
			return nil, fmt.Errorf("migration file %s does not start with a version number", e.Name())
		}
		res = append(res, migration{version: v, file: e.Name()})
	}
	slices.SortFunc(res, func(a, b migration) int { return a.version - b.version })
	return res, nil
}

func (d *Database) migrate(ctx context.Context) error {
	var current int
	if err := d.write.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	all, err := migrations()
	if err != nil {
		return err
	}
	pending := slices.DeleteFunc(all, func(m migration) bool { return m.version <= current })
	if len(pending) == 0 {
		return nil
	}

	// A fresh database has nothing to back up.
	if current > 0 {
		if err := d.Backup(ctx); err != nil {
			return fmt.Errorf("backup database before migration: %w", err)
		}
	}

	for _, m := range pending {
		if err := d.apply(ctx, m); err != nil {
			return err
		}
		d.logger.Info("applied migration", slog.Int("version", m.version), slog.String("file", m.file))
	}
	return nil
}

func (d *Database) apply(ctx context.Context, m migration) error {
	script, err := migrationsFS.ReadFile(path.Join("migrations", m.file))
	if err != nil {
		return fmt.Errorf("read migration %s: %w", m.file, err)
	}

	tx, err := d.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("apply migration %d: %w", m.version, err)
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("set version %d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.version, err)
	}
	return nil
}
