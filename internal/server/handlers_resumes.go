package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/jonathan/resume-enhancer/internal/db"
	"github.com/jonathan/resume-enhancer/internal/parsing"
	"github.com/jonathan/resume-enhancer/internal/rendering"
	"github.com/jonathan/resume-enhancer/internal/schemas"
	"github.com/jonathan/resume-enhancer/internal/types"
)

// maxEditBytes caps the body of a resume edit
const maxEditBytes = 2 << 20

func (s *Server) store() (db.Store, error) {
	if s.deps.Store == nil {
		return nil, &ErrUnavailable{Feature: "resume store"}
	}
	return s.deps.Store, nil
}

// handleListResumes returns stored resume summaries, newest first
func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	store, err := s.store()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	limit, err := queryInt(r, "limit", db.DefaultListLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if offset < 0 {
		s.writeError(w, r, &ErrValidation{Field: "offset", Message: "must not be negative"})
		return
	}

	summaries, err := store.ListResumes(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.success(w, http.StatusOK, map[string]any{
		"resumes": summaries,
		"count":   len(summaries),
		"limit":   db.ClampLimit(limit),
		"offset":  offset,
	})
}

// handleGetResume returns one stored resume with its upload metadata
func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.success(w, http.StatusOK, rec)
}

// handleUpdateResume replaces the content of a stored resume with a hand-edited
// version. The structure summary is recomputed and rawText cannot change.
func (s *Server) handleUpdateResume(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEditBytes))
	if err != nil {
		s.writeError(w, r, &ErrValidation{Message: "Invalid request body: " + err.Error()})
		return
	}
	if err := schemas.ValidateParsedResume(body); err != nil {
		verr := &ErrValidation{Message: err.Error()}
		var schemaErr *schemas.ValidationError
		if errors.As(err, &schemaErr) && len(schemaErr.Errors) > 0 {
			verr.Field = schemaErr.Errors[0].Field
			verr.Message = schemaErr.Errors[0].Message
		}
		s.writeError(w, r, verr)
		return
	}

	var edited types.ParsedResume
	if err := json.Unmarshal(body, &edited); err != nil {
		s.writeError(w, r, &ErrValidation{Message: "Invalid request body: " + err.Error()})
		return
	}
	if edited.RawText != "" && edited.RawText != rec.Resume.RawText {
		s.writeError(w, r, &ErrValidation{Field: "rawText", Message: "cannot be changed"})
		return
	}
	if edited.ID != "" && edited.ID != rec.ID {
		s.writeError(w, r, &ErrValidation{Field: "id", Message: "does not match the resume being updated"})
		return
	}

	edited.ID = rec.ID
	edited.RawText = rec.Resume.RawText
	parsing.Normalize(&edited)

	updated, err := s.deps.Store.UpdateResume(r.Context(), rec.ID, edited)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.success(w, http.StatusOK, updated)
}

// handleDeleteResume removes a stored resume and its activity log
func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	store, err := s.store()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := store.DeleteResume(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListActivities returns the activity log recorded while parsing a resume
func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	activities, err := s.deps.Store.ListActivities(r.Context(), rec.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.success(w, http.StatusOK, activities)
}

// handleExportResume downloads a stored resume as plain text
func (s *Server) handleExportResume(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	text, err := rendering.RenderText(&rec.Resume)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rendering.ExportFilename(&rec.Resume)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

// handleGetOriginal downloads the archived upload a resume was parsed from
func (s *Server) handleGetOriginal(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.deps.Archive == nil || rec.ArchiveKey == "" {
		s.writeError(w, r, &ErrUnavailable{Feature: "document archive"})
		return
	}

	data, err := s.deps.Archive.Get(r.Context(), rec.ArchiveKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	contentType := rec.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// lookup loads the resume named by the {id} path value
func (s *Server) lookup(r *http.Request) (*db.ResumeRecord, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	return store.GetResume(r.Context(), r.PathValue("id"))
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ErrValidation{Field: key, Message: "must be an integer"}
	}
	return n, nil
}
