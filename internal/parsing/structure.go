package parsing

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jonathan/resume-enhancer/internal/ingestion"
	"github.com/jonathan/resume-enhancer/internal/llm"
	"github.com/jonathan/resume-enhancer/internal/prompts"
	"github.com/jonathan/resume-enhancer/internal/schemas"
	"github.com/jonathan/resume-enhancer/internal/types"
)

// Defaults for Options
const (
	DefaultTimeout       = 60 * time.Second
	DefaultMaxInputChars = 30000
	DefaultTemperature   = 0.1
	DefaultMaxTokens     = 2000
)

// ResultKind tags a structuring Result
type ResultKind int

const (
	// KindUnparseable means no usable record came back and the caller should fall back
	KindUnparseable ResultKind = iota
	// KindStructured means Resume holds a validated, normalized record
	KindStructured
)

func (k ResultKind) String() string {
	if k == KindStructured {
		return "structured"
	}
	return "unparseable"
}

// Result is the outcome of one structuring attempt.
// Resume is set iff Kind is KindStructured; Err is set iff Kind is KindUnparseable.
type Result struct {
	Kind     ResultKind
	Resume   *types.ParsedResume
	RawReply string
	Err      error
	// Latency is the duration of the model call; zero when no call was made
	Latency time.Duration
	// Truncated reports whether the text sent to the model was cut to MaxInputChars
	Truncated bool
}

// Structured reports whether the result carries a record
func (r Result) Structured() bool {
	return r.Kind == KindStructured
}

// ModelCalled reports whether the model was actually contacted
func (r Result) ModelCalled() bool {
	return r.Latency > 0
}

// Options controls a Structurer
type Options struct {
	Tier          llm.ModelTier
	Temperature   float32
	MaxTokens     int32
	Timeout       time.Duration
	MaxInputChars int
}

// DefaultOptions returns the settings used by the resume parser agent
func DefaultOptions() Options {
	return Options{
		Tier:          llm.TierStandard,
		Temperature:   DefaultTemperature,
		MaxTokens:     DefaultMaxTokens,
		Timeout:       DefaultTimeout,
		MaxInputChars: DefaultMaxInputChars,
	}
}

// Structurer converts raw resume text into a ParsedResume with a single model round trip
type Structurer struct {
	client llm.Client
	opts   Options
	system string
	now    func() time.Time
}

// NewStructurer creates a Structurer. A nil client means no model is configured;
// every call then reports KindUnparseable without contacting anything.
func NewStructurer(client llm.Client, opts Options) *Structurer {
	defaults := DefaultOptions()
	if opts.Tier == "" {
		opts.Tier = defaults.Tier
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = defaults.MaxInputChars
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaults.MaxTokens
	}

	return &Structurer{
		client: client,
		opts:   opts,
		system: BuildSystemPrompt(),
		now:    time.Now,
	}
}

// BuildSystemPrompt returns the system instruction enumerating the resume schema
func BuildSystemPrompt() string {
	return llm.BuildSystemPrompt(llm.ResumeSchema(prompts.MustGet("parsing.json", "resume-system")))
}

// BuildUserPrompt wraps the resume text in the user message template
func BuildUserPrompt(resumeText string) string {
	template := prompts.MustGet("parsing.json", "resume-user")
	return prompts.Format(template, map[string]string{
		"ResumeText": resumeText,
	})
}

// Structure sends rawText to the model and parses its reply. It never returns
// an error directly: any failure is reported as a KindUnparseable Result.
// The returned Resume has a fresh ID and carries rawText verbatim.
func (s *Structurer) Structure(ctx context.Context, rawText string) Result {
	if s.client == nil {
		return Result{
			Kind: KindUnparseable,
			Err:  &APICallError{Message: "no language model configured", Cause: llm.ErrNoAPIKey},
		}
	}

	modelInput, truncated := ingestion.Truncate(ingestion.CleanText(rawText), s.opts.MaxInputChars)

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := s.now()
	reply, err := s.client.Chat(callCtx, llm.ChatRequest{
		System:      s.system,
		User:        BuildUserPrompt(modelInput),
		Tier:        s.opts.Tier,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		JSON:        true,
	})
	latency := s.now().Sub(start)
	if latency <= 0 {
		latency = time.Nanosecond
	}
	if err != nil {
		msg := "failed to generate content from LLM"
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			msg = "LLM call timed out after " + s.opts.Timeout.String()
		}
		return Result{
			Kind:      KindUnparseable,
			Err:       &APICallError{Message: msg, Cause: err},
			Latency:   latency,
			Truncated: truncated,
		}
	}

	resume, err := ParseReply(reply)
	if err != nil {
		return Result{
			Kind:      KindUnparseable,
			RawReply:  reply,
			Err:       err,
			Latency:   latency,
			Truncated: truncated,
		}
	}

	resume.RawText = rawText
	return Result{
		Kind:      KindStructured,
		Resume:    resume,
		RawReply:  reply,
		Latency:   latency,
		Truncated: truncated,
	}
}

// ParseReply extracts, validates and normalizes the JSON object in a model reply.
// Prose around the object and markdown fences are ignored. The first-'{'-to-last-'}'
// span is tried first; if that is not valid JSON the first balanced object is used.
func ParseReply(reply string) (*types.ParsedResume, error) {
	cleaned := llm.CleanJSONBlock(reply)
	if strings.TrimSpace(cleaned) == "" {
		return nil, &ParseError{Message: "empty model reply"}
	}

	span, ok := llm.ExtractJSONSpan(cleaned)
	if !ok {
		return nil, &ParseError{Message: "could not extract JSON from model reply"}
	}
	if !json.Valid([]byte(span)) {
		object, found := llm.ExtractJSONObject(cleaned)
		if !found || !json.Valid([]byte(object)) {
			var probe map[string]interface{}
			return nil, &ParseError{
				Message: "failed to parse JSON response",
				Cause:   json.Unmarshal([]byte(span), &probe),
			}
		}
		span = object
	}

	if err := schemas.ValidateParsedResume([]byte(span)); err != nil {
		field := ""
		var schemaErr *schemas.ValidationError
		if errors.As(err, &schemaErr) && len(schemaErr.Errors) > 0 {
			field = schemaErr.Errors[0].Field
		}
		return nil, &ValidationError{
			Message: "model reply does not match the resume schema",
			Field:   field,
			Cause:   err,
		}
	}

	// structure, id and rawText from the model are ignored; they are derived here
	var payload struct {
		PersonalInfo types.PersonalInfo `json:"personalInfo"`
		Sections     types.Sections     `json:"sections"`
	}
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return nil, &ParseError{Message: "failed to decode resume JSON", Cause: err}
	}

	resume := &types.ParsedResume{
		ID:           newID(),
		PersonalInfo: payload.PersonalInfo,
		Sections:     payload.Sections,
	}
	Normalize(resume)
	return resume, nil
}
