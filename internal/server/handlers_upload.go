package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/resume-enhancer/internal/agent"
	"github.com/jonathan/resume-enhancer/internal/db"
	"github.com/jonathan/resume-enhancer/internal/ingestion"
	"github.com/jonathan/resume-enhancer/internal/logging"
	"github.com/jonathan/resume-enhancer/internal/types"
)

// multipartOverhead is the slack allowed above MaxUploadBytes for form boundaries and headers
const multipartOverhead = 1 << 20

// UploadResult is the data of a successful upload response
type UploadResult struct {
	SessionID      string                `json:"sessionId"`
	ParsedResume   *types.ParsedResume   `json:"parsedResume"`
	Activities     []types.AgentActivity `json:"activities"`
	ProcessingTime int64                 `json:"processingTime"`
	Confidence     *float64              `json:"confidence,omitempty"`
	Source         types.ResultSource    `json:"source"`
}

// handleUpload parses one uploaded resume and returns it with the activity log
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, resp := s.parse(r.Context(), doc, nil)
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "Failed to parse resume"
		}
		s.errorResponse(w, http.StatusInternalServerError, msg)
		return
	}
	s.success(w, http.StatusOK, result)
}

// handleUploadStream is handleUpload with each activity streamed as an SSE
// "activity" event, followed by a "result" or "error" event.
func (s *Server) handleUploadStream(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	stream := agent.SinkFunc(func(_ context.Context, activity types.AgentActivity) error {
		return sse.WriteEvent(EventActivity, activity)
	})
	result, resp := s.parse(r.Context(), doc, stream)
	if !resp.Success {
		sse.WriteError(resp.Error)
		return
	}
	if err := sse.WriteEvent(EventResult, envelope{Success: true, Data: result}); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("failed to write result event")
	}
}

// readUpload validates the multipart "file" field: presence, type, then size
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (ingestion.Document, error) {
	limit := s.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ingestion.Document{}, &ErrUploadTooLarge{Limit: limit}
		}
		return ingestion.Document{}, &ErrValidation{Message: "No file provided"}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return ingestion.Document{}, &ErrValidation{Message: "No file provided"}
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !ingestion.IsAllowed(mimeType, header.Filename) {
		return ingestion.Document{}, &ErrValidation{Message: "Unsupported file type. Please upload PDF, Word, or text files."}
	}
	if header.Size > limit {
		return ingestion.Document{}, &ErrUploadTooLarge{Limit: limit}
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return ingestion.Document{}, err
	}
	if int64(len(data)) > limit {
		return ingestion.Document{}, &ErrUploadTooLarge{Limit: limit}
	}

	logging.Ctx(r.Context()).Info().
		Str("file", header.Filename).
		Str("mime", mimeType).
		Int("bytes", len(data)).
		Msg("processing upload")

	return ingestion.Document{Name: header.Filename, MIMEType: mimeType, Data: data}, nil
}

// parse runs a fresh agent over doc and persists a successful result.
// extra receives activities alongside the configured feed.
func (s *Server) parse(ctx context.Context, doc ingestion.Document, extra agent.ActivitySink) (UploadResult, types.AgentResponse) {
	sessionID := uuid.NewString()

	var feed agent.ActivitySink
	if s.deps.Feed != nil {
		feed = s.deps.Feed(sessionID)
	}

	logger := logging.Ctx(ctx).With().Str("session", sessionID).Logger()
	parser := agent.NewResumeParserAgent(agent.Deps{
		Client:      s.deps.Client,
		Extractor:   s.deps.Extractor,
		Cache:       s.deps.Cache,
		Sink:        agent.MultiSink(feed, extra),
		Logger:      &logger,
		Structuring: s.cfg.Structuring,
	})

	resp := parser.Execute(ctx, doc)
	activities := parser.Activities()
	if !resp.Success {
		return UploadResult{}, resp
	}

	logger.Info().
		Str("name", resp.Data.PersonalInfo.Name).
		Str("source", string(resp.Source)).
		Msg("resume parsed")
	s.persist(ctx, doc, resp, activities)

	return UploadResult{
		SessionID:      sessionID,
		ParsedResume:   resp.Data,
		Activities:     activities,
		ProcessingTime: resp.ProcessingTime,
		Confidence:     resp.Confidence,
		Source:         resp.Source,
	}, resp
}

// persist archives and stores a parsed upload. Failures are logged; the caller
// still gets its parse result.
func (s *Server) persist(ctx context.Context, doc ingestion.Document, resp types.AgentResponse, activities []types.AgentActivity) {
	logger := logging.Ctx(ctx)
	resumeID := resp.Data.ID

	var archiveKey string
	if s.deps.Archive != nil {
		key, err := s.deps.Archive.Put(ctx, resumeID, doc)
		if err != nil {
			logger.Warn().Err(err).Str("resume_id", resumeID).Msg("failed to archive upload")
		} else {
			archiveKey = key
		}
	}

	if s.deps.Store == nil {
		return
	}
	rec := &db.ResumeRecord{
		ID:          resumeID,
		Filename:    doc.Name,
		MIMEType:    doc.MIMEType,
		ContentHash: doc.ContentHash(),
		ArchiveKey:  archiveKey,
		Source:      resp.Source,
		Confidence:  resp.Confidence,
		Resume:      *resp.Data,
	}
	if err := s.deps.Store.SaveResume(ctx, rec); err != nil {
		logger.Error().Err(err).Str("resume_id", resumeID).Msg("failed to save resume")
		return
	}
	if err := s.deps.Store.SaveActivities(ctx, resumeID, activities); err != nil {
		logger.Error().Err(err).Str("resume_id", resumeID).Msg("failed to save activities")
	}
}
