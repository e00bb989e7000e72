package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathan/resume-enhancer/internal/cache"
	"github.com/jonathan/resume-enhancer/internal/ingestion"
	"github.com/jonathan/resume-enhancer/internal/llm"
	"github.com/jonathan/resume-enhancer/internal/parsing"
	"github.com/jonathan/resume-enhancer/internal/types"
)

// ResumeParserID is the agentId stamped on every envelope this agent returns
const ResumeParserID = "resume-parser"

// Confidence reported per result source
const (
	ConfidenceLLM      = 0.9
	ConfidenceFallback = 0.4
)

// ResumeParserConfig is the agent configuration of the resume parser
var ResumeParserConfig = types.AgentConfig{
	Name:        "Resume Parser",
	Role:        "Extract and structure content from resume files",
	Temperature: parsing.DefaultTemperature,
	MaxTokens:   parsing.DefaultMaxTokens,
}

// TextExtractor converts an uploaded document to text
type TextExtractor interface {
	Extract(ctx context.Context, doc ingestion.Document) (string, error)
}

// Deps are the collaborators of a ResumeParserAgent. Only Extractor has a default;
// a nil Client routes every document through the heuristic fallback.
type Deps struct {
	Client    llm.Client
	Extractor TextExtractor
	Cache     cache.Cache
	Sink      ActivitySink
	Logger    *zerolog.Logger
	// Structuring overrides tier, timeout and input budget. Temperature and
	// MaxTokens always come from ResumeParserConfig.
	Structuring parsing.Options
}

// ResumeParserAgent turns an uploaded resume into a ParsedResume.
// An instance is meant for one invocation: construct a fresh agent per upload
// so activity logs do not interleave.
type ResumeParserAgent struct {
	*BaseAgent
	extractor  TextExtractor
	structurer *parsing.Structurer
	cache      cache.Cache
}

// NewResumeParserAgent creates a ResumeParserAgent
func NewResumeParserAgent(deps Deps) *ResumeParserAgent {
	extractor := deps.Extractor
	if extractor == nil {
		extractor = ingestion.NewRegistry()
	}

	opts := deps.Structuring
	opts.Temperature = ResumeParserConfig.Temperature
	opts.MaxTokens = ResumeParserConfig.MaxTokens

	return &ResumeParserAgent{
		BaseAgent:  NewBaseAgent(ResumeParserConfig, deps.Logger, deps.Sink),
		extractor:  extractor,
		structurer: parsing.NewStructurer(deps.Client, opts),
		cache:      deps.Cache,
	}
}

// Execute parses doc. It never returns an error or panics: every failure is
// reported as an envelope with Success=false. ProcessingTime is always set.
func (a *ResumeParserAgent) Execute(ctx context.Context, doc ingestion.Document) (resp types.AgentResponse) {
	start := a.now()
	a.LogActivity(ctx, fmt.Sprintf("Starting to parse %s", doc.Name), types.ActivityStarted, "")

	defer func() {
		if r := recover(); r != nil {
			resp = a.fail(ctx, start, fmt.Errorf("internal error: %v", r))
		}
	}()

	rawText, err := a.extractor.Extract(ctx, doc)
	if err != nil {
		return a.fail(ctx, start, err)
	}
	a.LogActivity(ctx, "Raw text extracted, structuring content...", types.ActivityProcessing,
		fmt.Sprintf("%d characters", len([]rune(rawText))))

	var contentHash string
	if a.cache != nil {
		contentHash = doc.ContentHash()
		if resume, source, ok := a.lookup(ctx, contentHash); ok {
			a.LogActivity(ctx, "Cache hit", types.ActivityCompleted, "result reused from "+string(source)+" parse")
			return a.succeed(ctx, start, resume, types.SourceCache, confidenceFor(source))
		}
	}

	result := a.structurer.Structure(ctx, rawText)
	a.logModelCall(ctx, result)

	if result.Structured() {
		if a.cache != nil {
			a.store(ctx, contentHash, result.Resume)
		}
		return a.succeed(ctx, start, result.Resume, types.SourceLLM, ConfidenceLLM)
	}

	a.LogActivity(ctx, "AI structuring failed, using fallback parsing", types.ActivityProcessing, errorDetail(result.Err))
	resume := parsing.Fallback(rawText)
	resume.ID = uuid.NewString()
	resume.RawText = rawText
	return a.succeed(ctx, start, resume, types.SourceFallback, ConfidenceFallback)
}

func (a *ResumeParserAgent) logModelCall(ctx context.Context, result parsing.Result) {
	if !result.ModelCalled() {
		return
	}
	var apiErr *parsing.APICallError
	if errors.As(result.Err, &apiErr) {
		a.LogActivity(ctx, fmt.Sprintf("LLM call failed: %v", apiErr), types.ActivityError, "")
		return
	}
	details := ""
	if result.Truncated {
		details = "input truncated to model budget"
	}
	a.LogActivity(ctx, fmt.Sprintf("LLM call completed in %dms", result.Latency.Milliseconds()), types.ActivityCompleted, details)
}

// lookup returns a deep copy of a cached resume with a fresh ID
func (a *ResumeParserAgent) lookup(ctx context.Context, contentHash string) (*types.ParsedResume, types.ResultSource, bool) {
	entry, found, err := a.cache.Get(ctx, contentHash)
	if err != nil {
		a.logger.Warn().Err(err).Str("content_hash", contentHash).Msg("cache lookup failed")
		return nil, "", false
	}
	if !found || entry.Resume == nil {
		return nil, "", false
	}

	resume := entry.Resume.Clone()
	resume.ID = uuid.NewString()
	resume.EnsureSlices()
	resume.RecomputeStructure()
	return resume, entry.Source, true
}

// store caches model-structured results only, so a later upload can still reach the model
func (a *ResumeParserAgent) store(ctx context.Context, contentHash string, resume *types.ParsedResume) {
	entry := cache.Entry{Resume: resume.Clone(), Source: types.SourceLLM, CachedAt: a.now().UTC()}
	if err := a.cache.Set(ctx, contentHash, entry); err != nil {
		a.logger.Warn().Err(err).Str("content_hash", contentHash).Msg("cache write failed")
	}
}

func (a *ResumeParserAgent) succeed(ctx context.Context, start time.Time, resume *types.ParsedResume, source types.ResultSource, confidence float64) types.AgentResponse {
	a.LogActivity(ctx, "Parsing completed successfully", types.ActivityCompleted, "source: "+string(source))
	return types.AgentResponse{
		AgentID:        ResumeParserID,
		Success:        true,
		Data:           resume,
		ProcessingTime: a.since(start),
		Confidence:     &confidence,
		Source:         source,
	}
}

func (a *ResumeParserAgent) fail(ctx context.Context, start time.Time, err error) types.AgentResponse {
	msg := errorDetail(err)
	a.LogActivity(ctx, fmt.Sprintf("Parsing failed: %s", msg), types.ActivityError, "")
	return types.AgentResponse{
		AgentID:        ResumeParserID,
		Success:        false,
		Error:          msg,
		ProcessingTime: a.since(start),
	}
}

func (a *ResumeParserAgent) since(start time.Time) int64 {
	ms := a.now().Sub(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

func confidenceFor(source types.ResultSource) float64 {
	if source == types.SourceFallback {
		return ConfidenceFallback
	}
	return ConfidenceLLM
}

func errorDetail(err error) string {
	if err == nil {
		return "Unknown parsing error"
	}
	return err.Error()
}
