package db

import (
	"time"

	"github.com/jonathan/resume-enhancer/internal/types"
)

// ResumeRecord is a stored parse result plus upload metadata
type ResumeRecord struct {
	ID          string             `json:"id"`
	Filename    string             `json:"filename"`
	MIMEType    string             `json:"mimeType"`
	ContentHash string             `json:"contentHash"`
	ArchiveKey  string             `json:"archiveKey,omitempty"`
	Source      types.ResultSource `json:"source"`
	Confidence  *float64           `json:"confidence,omitempty"`
	Resume      types.ParsedResume `json:"resume"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// ResumeSummary is the list view of a stored resume
type ResumeSummary struct {
	ID        string               `json:"id"`
	Filename  string               `json:"filename"`
	Name      string               `json:"name"`
	Source    types.ResultSource   `json:"source"`
	Structure types.StructureStats `json:"structure"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Summary returns the list view of r
func (r *ResumeRecord) Summary() ResumeSummary {
	return ResumeSummary{
		ID:        r.ID,
		Filename:  r.Filename,
		Name:      r.Resume.PersonalInfo.Name,
		Source:    r.Source,
		Structure: r.Resume.Structure,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Page limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ClampLimit applies DefaultListLimit and MaxListLimit
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}
