// Package types provides type definitions for structured data used throughout the resume-enhancer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// ParsedResume is the canonical structured form of an uploaded resume
type ParsedResume struct {
	ID           string         `json:"id"`
	PersonalInfo PersonalInfo   `json:"personalInfo"`
	Sections     Sections       `json:"sections"`
	RawText      string         `json:"rawText"`
	Structure    StructureStats `json:"structure"`
}

// PersonalInfo holds contact details. Absent values are empty strings, never null.
type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	LinkedIn string `json:"linkedin"`
	GitHub   string `json:"github"`
}

// Sections holds the body of the resume
type Sections struct {
	Summary    string           `json:"summary"`
	Experience []WorkExperience `json:"experience"`
	Education  []Education      `json:"education"`
	Skills     []string         `json:"skills"`
	Projects   []Project        `json:"projects"`
}

// WorkExperience is a single position held
type WorkExperience struct {
	ID        string   `json:"id"`
	Company   string   `json:"company"`
	Position  string   `json:"position"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Location  string   `json:"location,omitempty"`
	Bullets   []string `json:"bullets"`
}

// Education is a single degree or program
type Education struct {
	ID             string `json:"id"`
	Institution    string `json:"institution"`
	Degree         string `json:"degree"`
	Field          string `json:"field,omitempty"`
	GraduationDate string `json:"graduationDate"`
	GPA            string `json:"gpa,omitempty"`
}

// Project is a portfolio entry
type Project struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	Link         string   `json:"link,omitempty"`
	GitHub       string   `json:"github,omitempty"`
}

// StructureStats summarizes which parts of the resume are populated.
// It is derived data: always recompute it with RecomputeStructure after a mutation.
type StructureStats struct {
	HasPersonalInfo bool `json:"hasPersonalInfo"`
	HasSummary      bool `json:"hasSummary"`
	ExperienceCount int  `json:"experienceCount"`
	EducationCount  int  `json:"educationCount"`
	SkillsCount     int  `json:"skillsCount"`
	ProjectsCount   int  `json:"projectsCount"`
}

// EnsureSlices replaces nil slices with empty ones so they serialize as [] instead of null
func (r *ParsedResume) EnsureSlices() {
	if r.Sections.Experience == nil {
		r.Sections.Experience = []WorkExperience{}
	}
	if r.Sections.Education == nil {
		r.Sections.Education = []Education{}
	}
	if r.Sections.Skills == nil {
		r.Sections.Skills = []string{}
	}
	if r.Sections.Projects == nil {
		r.Sections.Projects = []Project{}
	}
	for i := range r.Sections.Experience {
		if r.Sections.Experience[i].Bullets == nil {
			r.Sections.Experience[i].Bullets = []string{}
		}
	}
	for i := range r.Sections.Projects {
		if r.Sections.Projects[i].Technologies == nil {
			r.Sections.Projects[i].Technologies = []string{}
		}
	}
}

// RecomputeStructure derives the count fields from the section contents.
// HasPersonalInfo is true when an email or phone is present.
func (r *ParsedResume) RecomputeStructure() {
	r.Structure = StructureStats{
		HasPersonalInfo: r.PersonalInfo.Email != "" || r.PersonalInfo.Phone != "",
		HasSummary:      r.Sections.Summary != "",
		ExperienceCount: len(r.Sections.Experience),
		EducationCount:  len(r.Sections.Education),
		SkillsCount:     len(r.Sections.Skills),
		ProjectsCount:   len(r.Sections.Projects),
	}
}

// StructureConsistent reports whether the structure counts match the sections
func (r *ParsedResume) StructureConsistent() bool {
	s := r.Structure
	return s.ExperienceCount == len(r.Sections.Experience) &&
		s.EducationCount == len(r.Sections.Education) &&
		s.SkillsCount == len(r.Sections.Skills) &&
		s.ProjectsCount == len(r.Sections.Projects) &&
		s.HasSummary == (r.Sections.Summary != "")
}

// Clone returns a deep copy of r. Nil slices stay nil.
func (r *ParsedResume) Clone() *ParsedResume {
	if r == nil {
		return nil
	}
	out := *r
	if r.Sections.Experience != nil {
		out.Sections.Experience = make([]WorkExperience, len(r.Sections.Experience))
		for i, exp := range r.Sections.Experience {
			exp.Bullets = cloneStrings(exp.Bullets)
			out.Sections.Experience[i] = exp
		}
	}
	if r.Sections.Education != nil {
		out.Sections.Education = append([]Education{}, r.Sections.Education...)
	}
	out.Sections.Skills = cloneStrings(r.Sections.Skills)
	if r.Sections.Projects != nil {
		out.Sections.Projects = make([]Project, len(r.Sections.Projects))
		for i, p := range r.Sections.Projects {
			p.Technologies = cloneStrings(p.Technologies)
			out.Sections.Projects[i] = p
		}
	}
	return &out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
