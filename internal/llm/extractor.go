// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name         string        // Schema name (e.g., "ParsedResume")
	Description  string        // System prompt preamble describing the extraction task
	Fields       []SchemaField // Expected top-level output fields
	Instructions []string      // Extra rules appended after the schema
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint or nested example, rendered verbatim
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildSystemPrompt renders the schema as a system instruction. The input text
// is not included; it travels separately as the user message.
func BuildSystemPrompt(schema ExtractionSchema) string {
	var sb strings.Builder

	sb.WriteString(strings.TrimSpace(schema.Description))
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "\"string\""
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, indent(typeHint, "  "), requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	for _, rule := range schema.Instructions {
		sb.WriteString("- ")
		sb.WriteString(rule)
		sb.WriteString("\n")
	}
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n")

	return sb.String()
}

// indent prefixes every line after the first so nested examples line up
func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}

// ResumeSchema returns the extraction schema for resumes.
// Field names must match types.ParsedResume exactly.
func ResumeSchema(description string) ExtractionSchema {
	return ExtractionSchema{
		Name:        "ParsedResume",
		Description: description,
		Fields: []SchemaField{
			{
				Name: "personalInfo",
				Type: `{
  "name": "Full name",
  "email": "email@example.com",
  "phone": "phone number",
  "location": "city, state/country",
  "linkedin": "LinkedIn URL if found",
  "github": "GitHub URL if found"
}`,
				Required: true,
			},
			{
				Name: "sections",
				Type: `{
  "summary": "Professional summary or objective",
  "experience": [
    {
      "id": "unique_id",
      "company": "Company name",
      "position": "Job title",
      "startDate": "Start date",
      "endDate": "End date",
      "location": "Job location",
      "bullets": ["Achievement 1", "Achievement 2"]
    }
  ],
  "education": [
    {
      "id": "unique_id",
      "institution": "School name",
      "degree": "Degree type",
      "field": "Field of study",
      "graduationDate": "Graduation date",
      "gpa": "GPA if mentioned"
    }
  ],
  "skills": ["Skill 1", "Skill 2", "Skill 3"],
  "projects": [
    {
      "id": "unique_id",
      "name": "Project name",
      "description": "Project description",
      "technologies": ["Tech 1", "Tech 2"],
      "link": "Project URL if found",
      "github": "GitHub URL if found"
    }
  ]
}`,
				Required: true,
			},
			{
				Name: "structure",
				Type: `{
  "hasPersonalInfo": true/false,
  "hasSummary": true/false,
  "experienceCount": number,
  "educationCount": number,
  "skillsCount": number,
  "projectsCount": number
}`,
				Required: true,
			},
		},
		Instructions: []string{
			"Generate unique IDs for each item using timestamp + random",
			"If information is not found, use empty strings or empty arrays",
			"Be flexible with date formats",
			"Extract all bullet points for each job",
			"Identify all technical and soft skills mentioned",
			"Extract information directly from the text, do not invent or summarize.",
		},
	}
}
