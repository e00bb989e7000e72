// Package db persists parsed resumes and their activity logs.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/resume-enhancer/internal/types"
)

// ErrNotFound is returned when a resume id does not exist
var ErrNotFound = errors.New("resume not found")

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the resume session store
type Store interface {
	// SaveResume inserts rec, or replaces the row with the same ID
	SaveResume(ctx context.Context, rec *ResumeRecord) error
	GetResume(ctx context.Context, id string) (*ResumeRecord, error)
	// ListResumes returns summaries, newest first
	ListResumes(ctx context.Context, limit, offset int) ([]ResumeSummary, error)
	// UpdateResume replaces the parsed content of an existing resume
	UpdateResume(ctx context.Context, id string, resume types.ParsedResume) (*ResumeRecord, error)
	DeleteResume(ctx context.Context, id string) error
	// SaveActivities appends activities to a resume's log, preserving order
	SaveActivities(ctx context.Context, resumeID string, activities []types.AgentActivity) error
	ListActivities(ctx context.Context, resumeID string) ([]types.AgentActivity, error)
	Close()
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

var _ Store = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate applies the embedded schema files in name order. Every statement is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	names, err := MigrationFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		sql, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}
	return nil
}

// MigrationFiles lists the embedded migrations in apply order
func MigrationFiles() ([]string, error) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
