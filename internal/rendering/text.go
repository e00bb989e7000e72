package rendering

import (
	"embed"
	"regexp"
	"strings"
	"sync"
	"text/template"

	"github.com/jonathan/resume-enhancer/internal/types"
)

//go:embed templates/resume.txt.tmpl
var templateFS embed.FS

var (
	textTemplateOnce sync.Once
	textTemplate     *template.Template
	textTemplateErr  error
)

// TemplateData is the data passed to the plain text template
type TemplateData struct {
	Header   []string
	Sections []Section
}

// Section is a titled group of blocks; each block is printed as consecutive
// lines followed by a blank line
type Section struct {
	Title  string
	Blocks [][]string
}

func parseTextTemplate() (*template.Template, error) {
	textTemplateOnce.Do(func() {
		content, err := templateFS.ReadFile("templates/resume.txt.tmpl")
		if err != nil {
			textTemplateErr = &TemplateError{Message: "template file not found", Cause: err}
			return
		}
		textTemplate, err = template.New("resume.txt").Parse(string(content))
		if err != nil {
			textTemplateErr = &TemplateError{Message: "failed to parse template", Cause: err}
		}
	})
	return textTemplate, textTemplateErr
}

// RenderText renders a resume as plain text. Empty sections are omitted.
func RenderText(r *types.ParsedResume) (string, error) {
	if r == nil {
		return "", &RenderError{Message: "resume is nil"}
	}

	tmpl, err := parseTextTemplate()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, BuildTemplateData(r)); err != nil {
		return "", &TemplateError{Message: "failed to execute template", Cause: err}
	}
	return sb.String(), nil
}

// BuildTemplateData lays a resume out into header lines and sections
func BuildTemplateData(r *types.ParsedResume) TemplateData {
	p := r.PersonalInfo
	var data TemplateData

	data.Header = appendNonEmpty(data.Header,
		p.Name,
		joinNonEmpty(" | ", p.Email, p.Phone),
		p.Location,
		labelled("LinkedIn", p.LinkedIn),
		labelled("GitHub", p.GitHub),
	)

	s := r.Sections
	if s.Summary != "" {
		data.Sections = append(data.Sections, Section{
			Title:  "PROFESSIONAL SUMMARY",
			Blocks: [][]string{{s.Summary}},
		})
	}

	if len(s.Experience) > 0 {
		sec := Section{Title: "PROFESSIONAL EXPERIENCE"}
		for _, exp := range s.Experience {
			dates := joinNonEmpty(" - ", exp.StartDate, exp.EndDate)
			block := appendNonEmpty(nil,
				joinNonEmpty(" | ", exp.Position, exp.Company),
				joinNonEmpty(" | ", dates, exp.Location),
			)
			for _, bullet := range exp.Bullets {
				block = append(block, "• "+bullet)
			}
			sec.Blocks = append(sec.Blocks, block)
		}
		data.Sections = append(data.Sections, sec)
	}

	if len(s.Education) > 0 {
		sec := Section{Title: "EDUCATION"}
		for _, edu := range s.Education {
			degree := edu.Degree
			if edu.Field != "" {
				degree = joinNonEmpty(" in ", edu.Degree, edu.Field)
			}
			sec.Blocks = append(sec.Blocks, appendNonEmpty(nil,
				degree,
				joinNonEmpty(" | ", edu.Institution, edu.GraduationDate),
				labelled("GPA", edu.GPA),
			))
		}
		data.Sections = append(data.Sections, sec)
	}

	if len(s.Skills) > 0 {
		data.Sections = append(data.Sections, Section{
			Title:  "TECHNICAL SKILLS",
			Blocks: [][]string{{strings.Join(s.Skills, ", ")}},
		})
	}

	if len(s.Projects) > 0 {
		sec := Section{Title: "PROJECTS"}
		for _, proj := range s.Projects {
			sec.Blocks = append(sec.Blocks, appendNonEmpty(nil,
				proj.Name,
				proj.Description,
				labelled("Technologies", strings.Join(proj.Technologies, ", ")),
				labelled("Link", proj.Link),
				labelled("GitHub", proj.GitHub),
			))
		}
		data.Sections = append(data.Sections, sec)
	}

	return data
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ExportFilename returns a download name derived from the candidate name
func ExportFilename(r *types.ParsedResume) string {
	if r == nil {
		return "resume.txt"
	}
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(r.PersonalInfo.Name), "-"), "-")
	if slug == "" {
		return "resume.txt"
	}
	return slug + "-resume.txt"
}

func labelled(label, value string) string {
	if value == "" {
		return ""
	}
	return label + ": " + value
}

func joinNonEmpty(sep string, parts ...string) string {
	return strings.Join(appendNonEmpty(nil, parts...), sep)
}

func appendNonEmpty(dst []string, parts ...string) []string {
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			dst = append(dst, part)
		}
	}
	return dst
}
