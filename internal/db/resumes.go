package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-enhancer/internal/types"
)

// SaveResume inserts rec, or replaces the row with the same ID
func (db *DB) SaveResume(ctx context.Context, rec *ResumeRecord) error {
	if rec.ID == "" {
		rec.ID = rec.Resume.ID
	}
	content, err := json.Marshal(rec.Resume)
	if err != nil {
		return fmt.Errorf("failed to marshal resume: %w", err)
	}

	err = db.pool.QueryRow(ctx,
		`INSERT INTO resumes (id, filename, mime_type, content_hash, archive_key, source, confidence, candidate, content)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		     filename = $2, mime_type = $3, content_hash = $4, archive_key = $5,
		     source = $6, confidence = $7, candidate = $8, content = $9, updated_at = NOW()
		 RETURNING created_at, updated_at`,
		rec.ID, rec.Filename, rec.MIMEType, rec.ContentHash, rec.ArchiveKey,
		string(rec.Source), rec.Confidence, rec.Resume.PersonalInfo.Name, content,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save resume %s: %w", rec.ID, err)
	}
	return nil
}

// GetResume retrieves a resume by ID
func (db *DB) GetResume(ctx context.Context, id string) (*ResumeRecord, error) {
	var rec ResumeRecord
	var source string
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, filename, mime_type, content_hash, archive_key, source, confidence, content, created_at, updated_at
		 FROM resumes WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.Filename, &rec.MIMEType, &rec.ContentHash, &rec.ArchiveKey,
		&source, &rec.Confidence, &content, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resume %s: %w", id, err)
	}

	rec.Source = types.ResultSource(source)
	if err := json.Unmarshal(content, &rec.Resume); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resume %s: %w", id, err)
	}
	return &rec, nil
}

// ListResumes returns summaries, newest first
func (db *DB) ListResumes(ctx context.Context, limit, offset int) ([]ResumeSummary, error) {
	if offset < 0 {
		offset = 0
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, filename, candidate, source, content->'structure', created_at, updated_at
		 FROM resumes ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		ClampLimit(limit), offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	summaries := []ResumeSummary{}
	for rows.Next() {
		var s ResumeSummary
		var source string
		var structure []byte
		if err := rows.Scan(&s.ID, &s.Filename, &s.Name, &source, &structure, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resume row: %w", err)
		}
		s.Source = types.ResultSource(source)
		if len(structure) > 0 {
			if err := json.Unmarshal(structure, &s.Structure); err != nil {
				return nil, fmt.Errorf("failed to unmarshal structure for %s: %w", s.ID, err)
			}
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resumes: %w", err)
	}
	return summaries, nil
}

// UpdateResume replaces the parsed content of an existing resume
func (db *DB) UpdateResume(ctx context.Context, id string, resume types.ParsedResume) (*ResumeRecord, error) {
	resume.ID = id
	content, err := json.Marshal(resume)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resume: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE resumes SET content = $2, candidate = $3, updated_at = NOW() WHERE id = $1`,
		id, content, resume.PersonalInfo.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update resume %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return db.GetResume(ctx, id)
}

// DeleteResume removes a resume and, by cascade, its activities
func (db *DB) DeleteResume(ctx context.Context, id string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM resumes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resume %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveActivities appends activities to a resume's log in one batch
func (db *DB) SaveActivities(ctx context.Context, resumeID string, activities []types.AgentActivity) error {
	if len(activities) == 0 {
		return nil
	}

	var next int
	if err := db.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM resume_activities WHERE resume_id = $1`, resumeID,
	).Scan(&next); err != nil {
		return fmt.Errorf("failed to read activity sequence: %w", err)
	}

	batch := &pgx.Batch{}
	for i, a := range activities {
		batch.Queue(
			`INSERT INTO resume_activities (id, resume_id, seq, agent_name, action, status, details, occurred_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO NOTHING`,
			a.ID, resumeID, next+i+1, a.AgentName, a.Action, string(a.Status), a.Details, a.Timestamp,
		)
	}
	if err := db.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save activities for %s: %w", resumeID, err)
	}
	return nil
}

// ListActivities returns a resume's activities in the order they were recorded
func (db *DB) ListActivities(ctx context.Context, resumeID string) ([]types.AgentActivity, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, agent_name, action, status, details, occurred_at
		 FROM resume_activities WHERE resume_id = $1 ORDER BY seq`,
		resumeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	activities := []types.AgentActivity{}
	for rows.Next() {
		var a types.AgentActivity
		var status string
		if err := rows.Scan(&a.ID, &a.AgentName, &a.Action, &status, &a.Details, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		a.Status = types.ActivityStatus(status)
		a.Timestamp = a.Timestamp.UTC()
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return activities, nil
}
