package schemas

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResume = `{
  "personalInfo": {"name": "Jane Doe", "email": "jane@x.io", "phone": null},
  "sections": {
    "summary": "Backend engineer",
    "experience": [{"id": "e1", "company": "Acme", "position": "Engineer", "bullets": ["Built things"]}],
    "education": [],
    "skills": ["Go", "SQL"],
    "projects": [{"id": "p1", "name": "cli", "technologies": ["Go"]}]
  },
  "structure": {"hasPersonalInfo": true, "hasSummary": true, "experienceCount": 1, "educationCount": 0, "skillsCount": 2, "projectsCount": 1}
}`

func TestParsedResumeSchema_IsValidJSON(t *testing.T) {
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(ParsedResumeSchema()), &v))
	assert.Equal(t, "ParsedResume", v["title"])
}

func TestValidateParsedResume_Valid(t *testing.T) {
	assert.NoError(t, ValidateParsedResume([]byte(validResume)))
}

func TestValidateParsedResume_StructureOptional(t *testing.T) {
	doc := `{"personalInfo": {}, "sections": {"skills": null}}`
	assert.NoError(t, ValidateParsedResume([]byte(doc)))
}

func TestValidateParsedResume_MissingSections(t *testing.T) {
	err := ValidateParsedResume([]byte(`{"personalInfo": {"name": "Jane"}}`))
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.NotEmpty(t, validationErr.Errors)
	assert.Contains(t, err.Error(), "sections")
}

func TestValidateParsedResume_WrongTypes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"skills as string", `{"personalInfo": {}, "sections": {"skills": "Go, SQL"}}`},
		{"bullets as number", `{"personalInfo": {}, "sections": {"experience": [{"bullets": 3}]}}`},
		{"negative count", `{"personalInfo": {}, "sections": {}, "structure": {"skillsCount": -1}}`},
		{"array root", `[1, 2, 3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParsedResume([]byte(tt.doc))
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestValidateParsedResume_NotJSON(t *testing.T) {
	err := ValidateParsedResume([]byte(`Here you go: not json`))
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
}

func TestValidateParsedResumeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.parsed.json")
	require.NoError(t, os.WriteFile(path, []byte(validResume), 0o644))

	assert.NoError(t, ValidateParsedResumeFile(path))

	err := ValidateParsedResumeFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
