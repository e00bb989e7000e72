package observability

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/resume-enhancer/internal/types"
)

func TestPrintParsedResume(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	r := &types.ParsedResume{
		PersonalInfo: types.PersonalInfo{Name: "Jane Doe", Email: "jane@x.com"},
		Sections: types.Sections{
			Experience: []types.WorkExperience{{Company: "Acme", Position: "Engineer", StartDate: "2020", EndDate: "Present"}},
			Skills:     []string{"Go", "SQL"},
		},
	}
	r.EnsureSlices()
	r.RecomputeStructure()

	p.PrintParsedResume(r)
	output := buf.String()

	assert.Contains(t, output, "PARSED RESUME")
	assert.Contains(t, output, "Jane Doe")
	assert.Contains(t, output, "Phone:    -")
	assert.Contains(t, output, "Engineer @ Acme (2020 - Present)")
	assert.Contains(t, output, "Experience: 1  Education: 0  Skills: 2  Projects: 0")
	assert.Contains(t, output, "Skills: Go, SQL")
}

func TestPrintParsedResume_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintParsedResume(nil)
	assert.Empty(t, buf.String())
}

func TestPrintParsedResume_TruncatesLists(t *testing.T) {
	var buf bytes.Buffer
	r := &types.ParsedResume{}
	for i := 0; i < 8; i++ {
		r.Sections.Experience = append(r.Sections.Experience, types.WorkExperience{Company: fmt.Sprintf("Co%d", i)})
	}
	r.RecomputeStructure()

	NewPrinter(&buf).PrintParsedResume(r)
	assert.Contains(t, buf.String(), "... and 3 more")
	assert.NotContains(t, buf.String(), "Co6")
}

func TestPrintEnvelope(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	confidence := 0.4

	p.PrintEnvelope("resume.pdf", types.AgentResponse{Success: true, Source: types.SourceFallback, Confidence: &confidence, ProcessingTime: 12})
	output := buf.String()
	assert.Contains(t, output, "resume.pdf")
	assert.Contains(t, output, "fallback")
	assert.Contains(t, output, "0.40")
	assert.Contains(t, output, "12ms")

	buf.Reset()
	p.PrintEnvelope("bad.pdf", types.AgentResponse{Success: false, Error: "corrupt"})
	assert.Contains(t, buf.String(), "FAILED")
	assert.Contains(t, buf.String(), "corrupt")
}

func TestPrintActivities(t *testing.T) {
	var buf bytes.Buffer
	ts := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)

	NewPrinter(&buf).PrintActivities([]types.AgentActivity{
		{Action: "Starting to parse resume.pdf", Status: types.ActivityStarted, Timestamp: ts},
		{Action: "Parsing completed successfully", Status: types.ActivityCompleted, Timestamp: ts},
	})

	output := buf.String()
	assert.Contains(t, output, "AGENT ACTIVITY")
	assert.Contains(t, output, "09:30:00.000 [started]")
	assert.Contains(t, output, "Parsing completed successfully")
}

func TestPrintBox_LinesAreFixedWidth(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", "short\n"+strings.Repeat("é", 100))

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, len([]rune(line)), line)
	}
	assert.Contains(t, buf.String(), "...")
}
