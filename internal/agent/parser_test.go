package agent

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-enhancer/internal/cache"
	"github.com/jonathan/resume-enhancer/internal/ingestion"
	"github.com/jonathan/resume-enhancer/internal/llm"
	"github.com/jonathan/resume-enhancer/internal/types"
)

const llmReply = `Here you go: {
  "personalInfo": {"name": "Jane Doe", "email": "jane@x.com", "phone": "(415) 555-0100", "location": "San Francisco, CA", "linkedin": "", "github": ""},
  "sections": {
    "summary": "Backend engineer",
    "experience": [{"id": "1", "company": "Acme", "position": "Engineer", "startDate": "2020", "endDate": "Present", "bullets": ["Built APIs"]}],
    "education": [{"id": "2", "institution": "State U", "degree": "BS", "graduationDate": "2019"}],
    "skills": ["Go", "SQL"],
    "projects": []
  },
  "structure": {"hasPersonalInfo": true, "hasSummary": true, "experienceCount": 1, "educationCount": 1, "skillsCount": 2, "projectsCount": 0}
} Let me know if you need anything else.`

type fakeClient struct {
	reply string
	err   error
	calls int
}

func (f *fakeClient) Chat(_ context.Context, _ llm.ChatRequest) (string, error) {
	f.calls++
	return f.reply, f.err
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake" }

func (f *fakeClient) Close() error { return nil }

type panickingExtractor struct{}

func (panickingExtractor) Extract(context.Context, ingestion.Document) (string, error) {
	panic("unexpected nil")
}

func textDoc(text string) ingestion.Document {
	return ingestion.Document{Name: "resume.txt", MIMEType: ingestion.MIMEText, Data: []byte(text)}
}

func newTestAgent(client llm.Client, deps Deps) *ResumeParserAgent {
	deps.Client = client
	if deps.Logger == nil {
		deps.Logger = testLogger(&bytes.Buffer{})
	}
	return NewResumeParserAgent(deps)
}

func activityActions(acts []types.AgentActivity) []string {
	out := make([]string, 0, len(acts))
	for _, a := range acts {
		out = append(out, a.Action)
	}
	return out
}

func TestExecute_LLMPath(t *testing.T) {
	client := &fakeClient{reply: llmReply}
	a := newTestAgent(client, Deps{})

	resp := a.Execute(context.Background(), textDoc("Jane Doe\njane@x.com"))

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, ResumeParserID, resp.AgentID)
	assert.Empty(t, resp.Error)
	assert.Equal(t, types.SourceLLM, resp.Source)
	require.NotNil(t, resp.Confidence)
	assert.InDelta(t, ConfidenceLLM, *resp.Confidence, 1e-9)
	assert.GreaterOrEqual(t, resp.ProcessingTime, int64(0))

	require.NotNil(t, resp.Data)
	assert.NotEmpty(t, resp.Data.ID)
	assert.Equal(t, "Jane Doe\njane@x.com", resp.Data.RawText)
	assert.Equal(t, "San Francisco, CA", resp.Data.PersonalInfo.Location)
	assert.True(t, resp.Data.StructureConsistent())

	actions := activityActions(a.Activities())
	require.Len(t, actions, 4)
	assert.Equal(t, "Starting to parse resume.txt", actions[0])
	assert.Equal(t, "Raw text extracted, structuring content...", actions[1])
	assert.Regexp(t, `^LLM call completed in \d+ms$`, actions[2])
	assert.Equal(t, "Parsing completed successfully", actions[3])
	assert.Equal(t, 1, client.calls)
}

func TestExecute_FallbackWhenNoModel(t *testing.T) {
	a := newTestAgent(nil, Deps{})

	resp := a.Execute(context.Background(), textDoc("Jane Doe\njane@x.com\n(415) 555-0100"))

	require.True(t, resp.Success)
	assert.Equal(t, types.SourceFallback, resp.Source)
	require.NotNil(t, resp.Confidence)
	assert.InDelta(t, ConfidenceFallback, *resp.Confidence, 1e-9)

	r := resp.Data
	require.NotNil(t, r)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "Jane Doe", r.PersonalInfo.Name)
	assert.Equal(t, "jane@x.com", r.PersonalInfo.Email)
	assert.Equal(t, "(415) 555-0100", r.PersonalInfo.Phone)
	assert.Empty(t, r.Sections.Experience)
	assert.True(t, r.Structure.HasPersonalInfo)
	assert.Equal(t, "Jane Doe\njane@x.com\n(415) 555-0100", r.RawText)

	actions := activityActions(a.Activities())
	assert.Contains(t, actions, "AI structuring failed, using fallback parsing")
	assert.NotContains(t, actions, "LLM call failed: ")
}

func TestExecute_FallbackWhenReplyHasNoJSON(t *testing.T) {
	a := newTestAgent(&fakeClient{reply: "I cannot parse that."}, Deps{})

	resp := a.Execute(context.Background(), textDoc("Jane Doe\ngithub.com/jane"))

	require.True(t, resp.Success)
	assert.Equal(t, types.SourceFallback, resp.Source)
	assert.Equal(t, "Found in resume", resp.Data.PersonalInfo.GitHub)
	assert.True(t, resp.Data.StructureConsistent())
}

func TestExecute_FallbackWhenModelErrors(t *testing.T) {
	a := newTestAgent(&fakeClient{err: errors.New("401 unauthorized")}, Deps{})

	resp := a.Execute(context.Background(), textDoc("Jane Doe"))

	require.True(t, resp.Success)
	assert.Equal(t, types.SourceFallback, resp.Source)

	var failed *types.AgentActivity
	for _, act := range a.Activities() {
		if act.Status == types.ActivityError {
			act := act
			failed = &act
		}
	}
	require.NotNil(t, failed)
	assert.Contains(t, failed.Action, "LLM call failed")
	assert.Contains(t, failed.Action, "401 unauthorized")
}

func TestExecute_ExtractionFailure(t *testing.T) {
	a := newTestAgent(&fakeClient{reply: llmReply}, Deps{})
	doc := ingestion.Document{Name: "resume.pdf", MIMEType: ingestion.MIMEPDF, Data: []byte("not a pdf")}

	resp := a.Execute(context.Background(), doc)

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Nil(t, resp.Confidence)
	assert.Empty(t, resp.Source)
	assert.Contains(t, resp.Error, "resume.pdf")
	assert.GreaterOrEqual(t, resp.ProcessingTime, int64(0))

	acts := a.Activities()
	last := acts[len(acts)-1]
	assert.Equal(t, types.ActivityError, last.Status)
	assert.Contains(t, last.Action, "Parsing failed")
}

func TestExecute_UnsupportedFormat(t *testing.T) {
	a := newTestAgent(nil, Deps{})
	doc := ingestion.Document{Name: "photo.png", MIMEType: "image/png", Data: []byte{0x89}}

	resp := a.Execute(context.Background(), doc)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unsupported format")
}

func TestExecute_PanicBecomesFailure(t *testing.T) {
	a := newTestAgent(nil, Deps{Extractor: panickingExtractor{}})

	var resp types.AgentResponse
	require.NotPanics(t, func() {
		resp = a.Execute(context.Background(), textDoc("x"))
	})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unexpected nil")
}

func TestExecute_ProcessingTime(t *testing.T) {
	a := newTestAgent(nil, Deps{})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := 0
	a.now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * 25 * time.Millisecond)
	}

	resp := a.Execute(context.Background(), textDoc("Jane"))

	require.True(t, resp.Success)
	assert.Greater(t, resp.ProcessingTime, int64(0))
	assert.Equal(t, int64(0), resp.ProcessingTime%25)
}

func TestExecute_CacheHitSkipsModel(t *testing.T) {
	client := &fakeClient{reply: llmReply}
	c := cache.NewMemoryCache()
	doc := textDoc("Jane Doe\njane@x.com")

	first := newTestAgent(client, Deps{Cache: c}).Execute(context.Background(), doc)
	require.True(t, first.Success)
	assert.Equal(t, 1, c.Len())

	second := newTestAgent(client, Deps{Cache: c})
	resp := second.Execute(context.Background(), doc)

	require.True(t, resp.Success)
	assert.Equal(t, types.SourceCache, resp.Source)
	assert.InDelta(t, ConfidenceLLM, *resp.Confidence, 1e-9)
	assert.NotEqual(t, first.Data.ID, resp.Data.ID)
	assert.Equal(t, first.Data.PersonalInfo, resp.Data.PersonalInfo)
	assert.Equal(t, 1, client.calls)
	assert.Contains(t, activityActions(second.Activities()), "Cache hit")
}

func TestExecute_CallerEditsDoNotReachCache(t *testing.T) {
	client := &fakeClient{reply: llmReply}
	c := cache.NewMemoryCache()
	doc := textDoc("Jane Doe\njane@x.com")

	first := newTestAgent(client, Deps{Cache: c}).Execute(context.Background(), doc)
	require.True(t, first.Success)
	first.Data.PersonalInfo.Name = "edited"
	first.Data.Sections.Experience[0].Company = "edited"

	second := newTestAgent(client, Deps{Cache: c}).Execute(context.Background(), doc)
	require.True(t, second.Success)
	require.Equal(t, types.SourceCache, second.Source)
	assert.Equal(t, "Jane Doe", second.Data.PersonalInfo.Name)
	assert.Equal(t, "Acme", second.Data.Sections.Experience[0].Company)
	second.Data.Sections.Skills[0] = "edited"

	third := newTestAgent(client, Deps{Cache: c}).Execute(context.Background(), doc)
	require.True(t, third.Success)
	assert.Equal(t, []string{"Go", "SQL"}, third.Data.Sections.Skills)
	assert.Equal(t, 1, client.calls)
}

func TestExecute_FallbackResultsAreNotCached(t *testing.T) {
	c := cache.NewMemoryCache()

	resp := newTestAgent(nil, Deps{Cache: c}).Execute(context.Background(), textDoc("Jane"))

	require.True(t, resp.Success)
	assert.Equal(t, 0, c.Len())
}

func TestExecute_SinkReceivesEveryActivity(t *testing.T) {
	sink := &recordingSink{}
	a := newTestAgent(nil, Deps{Sink: sink})

	a.Execute(context.Background(), textDoc("Jane"))

	assert.Equal(t, activityActions(a.Activities()), sink.actions())
}

func TestResumeParserConfig(t *testing.T) {
	a := newTestAgent(nil, Deps{})
	cfg := a.Config()
	assert.Equal(t, "Resume Parser", cfg.Name)
	assert.InDelta(t, 0.1, cfg.Temperature, 1e-6)
	assert.Equal(t, int32(2000), cfg.MaxTokens)
}
