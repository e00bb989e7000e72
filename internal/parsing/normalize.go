package parsing

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/resume-enhancer/internal/types"
)

func newID() string {
	return uuid.NewString()
}

// Normalize trims whitespace, drops blank list entries, assigns an id to every
// item that lacks one or repeats an earlier one, and recomputes structure.
// Duplicate skills are kept.
func Normalize(r *types.ParsedResume) {
	p := &r.PersonalInfo
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Location = strings.TrimSpace(p.Location)
	p.LinkedIn = strings.TrimSpace(p.LinkedIn)
	p.GitHub = strings.TrimSpace(p.GitHub)

	r.Sections.Summary = strings.TrimSpace(r.Sections.Summary)
	r.Sections.Skills = compactStrings(r.Sections.Skills)

	seen := make(map[string]bool)
	uniqueID := func(id string) string {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			id = newID()
		}
		seen[id] = true
		return id
	}

	for i := range r.Sections.Experience {
		exp := &r.Sections.Experience[i]
		exp.ID = uniqueID(exp.ID)
		exp.Bullets = compactStrings(exp.Bullets)
	}
	for i := range r.Sections.Education {
		edu := &r.Sections.Education[i]
		edu.ID = uniqueID(edu.ID)
	}
	for i := range r.Sections.Projects {
		proj := &r.Sections.Projects[i]
		proj.ID = uniqueID(proj.ID)
		proj.Technologies = compactStrings(proj.Technologies)
	}

	r.EnsureSlices()
	r.RecomputeStructure()
}

// compactStrings trims each entry and removes the empty ones, preserving order
func compactStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
