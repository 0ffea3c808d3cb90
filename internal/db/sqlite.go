package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RichardoC/csvchat/internal/models"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS datasets (
    id TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    path TEXT NOT NULL UNIQUE,
    row_count INTEGER NOT NULL,
    column_count INTEGER NOT NULL,
    source TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);`

// ErrDatasetNotFound is returned when no catalog entry matches.
var ErrDatasetNotFound = errors.New("dataset not found")

type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; one connection also keeps :memory: databases
	// from splitting across the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

// SaveDataset records rec, filling ID and CreatedAt when unset. A file that
// is already catalogued keeps its ID and gets refreshed counts; an upload
// claims a file the watcher saw first.
func (db *Database) SaveDataset(ctx context.Context, rec *models.DatasetRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO datasets (id, filename, path, row_count, column_count, source, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(path) DO UPDATE SET
            filename = excluded.filename,
            row_count = excluded.row_count,
            column_count = excluded.column_count,
            source = CASE WHEN excluded.source = 'upload' THEN 'upload' ELSE datasets.source END`

	_, err := db.db.ExecContext(ctx, query,
		rec.ID, rec.Filename, rec.Path, rec.Rows, rec.Columns, string(rec.Source), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}

	stored, err := db.GetDatasetByPath(ctx, rec.Path)
	if err != nil {
		return err
	}
	*rec = *stored
	return nil
}

func (db *Database) GetDataset(ctx context.Context, id string) (*models.DatasetRecord, error) {
	return db.getDataset(ctx, "id", id)
}

func (db *Database) GetDatasetByPath(ctx context.Context, path string) (*models.DatasetRecord, error) {
	return db.getDataset(ctx, "path", path)
}

func (db *Database) getDataset(ctx context.Context, column, value string) (*models.DatasetRecord, error) {
	query := `
        SELECT id, filename, path, row_count, column_count, source, created_at
        FROM datasets
        WHERE ` + column + ` = ?`

	rec, err := scanDataset(db.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return rec, nil
}

// ListDatasets returns every catalogued dataset, newest first.
func (db *Database) ListDatasets(ctx context.Context) ([]models.DatasetRecord, error) {
	query := `
        SELECT id, filename, path, row_count, column_count, source, created_at
        FROM datasets
        ORDER BY created_at DESC, rowid DESC`

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return []models.DatasetRecord{}, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	datasets := make([]models.DatasetRecord, 0)
	for rows.Next() {
		rec, err := scanDataset(rows)
		if err != nil {
			return []models.DatasetRecord{}, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, *rec)
	}
	return datasets, rows.Err()
}

func (db *Database) DeleteDataset(ctx context.Context, id string) error {
	res, err := db.db.ExecContext(ctx, "DELETE FROM datasets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return nil
}

// DeleteDatasetByPath drops the entry for a file that no longer exists.
func (db *Database) DeleteDatasetByPath(ctx context.Context, path string) error {
	res, err := db.db.ExecContext(ctx, "DELETE FROM datasets WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row rowScanner) (*models.DatasetRecord, error) {
	var (
		rec    models.DatasetRecord
		source string
	)
	if err := row.Scan(&rec.ID, &rec.Filename, &rec.Path, &rec.Rows, &rec.Columns, &source, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Source = models.DatasetSource(source)
	return &rec, nil
}
