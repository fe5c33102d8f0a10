package database

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	backupLayout = "20060102_150405"
	backupSuffix = "_energymeter.db.zip"
)

// BackupFile is a compressed database copy in the backups directory.
type BackupFile struct {
	Path  string
	Taken time.Time
}

func (d *Database) backupDir() string {
	return filepath.Join(filepath.Dir(d.path), "backups")
}

// Backup writes a zipped copy of the database to the backups directory
// next to the database file.
func (d *Database) Backup(ctx context.Context) error {
	dir := d.backupDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := time.Now().Format(backupLayout) + backupSuffix
	snapshot := filepath.Join(dir, strings.TrimSuffix(name, ".zip"))
	if _, err := d.write.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return fmt.Errorf("vacuuming database into %s: %w", snapshot, err)
	}
	defer func() {
		if err := os.Remove(snapshot); err != nil && !errors.Is(err, fs.ErrNotExist) {
			d.logger.Warn("could not remove uncompressed backup", slog.Any("error", err))
		}
	}()

	dest := filepath.Join(dir, name)
	if err := zipFile(snapshot, dest, filepath.Base(d.path)); err != nil {
		os.Remove(dest)
		return err
	}

	d.logger.Info("database backup complete", slog.String("filename", dest))
	return nil
}

func zipFile(src, dest, entryName string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s for compression: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("create zip header: %w", err)
	}
	header.Name = entryName
	header.Method = zip.Deflate

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create zip entry: %w", err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("compress database: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return out.Close()
}

// Backups lists the backup files, oldest first. Other files in the
// directory are ignored.
func (d *Database) Backups() ([]BackupFile, error) {
	dir := d.backupDir()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var res []BackupFile
	for _, e := range entries {
		if e.IsDir() || len(e.Name()) < len(backupLayout) {
			continue
		}
		taken, err := time.ParseInLocation(backupLayout, e.Name()[:len(backupLayout)], time.Local)
		if err != nil {
			continue
		}
		res = append(res, BackupFile{Path: filepath.Join(dir, e.Name()), Taken: taken})
	}
	slices.SortFunc(res, func(a, b BackupFile) int { return a.Taken.Compare(b.Taken) })
	return res, nil
}

// PurgeBackups removes backups older than retentionDays.
func (d *Database) PurgeBackups(ctx context.Context, retentionDays int) error {
	if retentionDays < 1 {
		return nil
	}
	backups, err := d.Backups()
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, b := range backups {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !b.Taken.Before(cutoff) {
			break
		}
		if err := os.Remove(b.Path); err != nil {
			return fmt.Errorf("remove old backup %s: %w", b.Path, err)
		}
		removed++
	}

	d.logger.Info("backup purge complete", slog.Int("removed", removed), slog.Int("kept", len(backups)-removed))
	return nil
}
