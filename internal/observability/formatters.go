// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resume-enhancer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads s to width runes
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		runes := []rune(s)
		return string(runes[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-n)
}

// PrintEnvelope outputs the outcome of one parse: file, source, confidence and timing.
func (p *Printer) PrintEnvelope(filename string, resp types.AgentResponse) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("File:       %s\n", filename))
	if !resp.Success {
		sb.WriteString("Status:     FAILED\n")
		sb.WriteString(fmt.Sprintf("Error:      %s\n", resp.Error))
	} else {
		sb.WriteString("Status:     ok\n")
		sb.WriteString(fmt.Sprintf("Source:     %s\n", resp.Source))
		if resp.Confidence != nil {
			sb.WriteString(fmt.Sprintf("Confidence: %.2f\n", *resp.Confidence))
		}
	}
	sb.WriteString(fmt.Sprintf("Time:       %dms", resp.ProcessingTime))

	p.printBox("PARSE RESULT", sb.String())
}

// PrintParsedResume outputs a human-readable summary of a parsed resume.
func (p *Printer) PrintParsedResume(r *types.ParsedResume) {
	if r == nil {
		return
	}

	var sb strings.Builder
	info := r.PersonalInfo
	sb.WriteString(fmt.Sprintf("Name:     %s\n", orDash(info.Name)))
	sb.WriteString(fmt.Sprintf("Email:    %s\n", orDash(info.Email)))
	sb.WriteString(fmt.Sprintf("Phone:    %s\n", orDash(info.Phone)))
	if info.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", info.Location))
	}
	sb.WriteString("\n")

	s := r.Structure
	sb.WriteString(fmt.Sprintf("Experience: %d  Education: %d  Skills: %d  Projects: %d\n",
		s.ExperienceCount, s.EducationCount, s.SkillsCount, s.ProjectsCount))

	if len(r.Sections.Experience) > 0 {
		sb.WriteString("\nExperience:\n")
		count := min(len(r.Sections.Experience), maxItemsToShow)
		for i := 0; i < count; i++ {
			exp := r.Sections.Experience[i]
			sb.WriteString(fmt.Sprintf("  • %s @ %s", exp.Position, exp.Company))
			if exp.StartDate != "" || exp.EndDate != "" {
				sb.WriteString(fmt.Sprintf(" (%s - %s)", exp.StartDate, exp.EndDate))
			}
			sb.WriteString("\n")
		}
		if len(r.Sections.Experience) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(r.Sections.Experience)-maxItemsToShow))
		}
	}

	if len(r.Sections.Skills) > 0 {
		count := min(len(r.Sections.Skills), maxItemsToShow*2)
		skills := strings.Join(r.Sections.Skills[:count], ", ")
		if len(r.Sections.Skills) > count {
			skills += fmt.Sprintf(" (+%d)", len(r.Sections.Skills)-count)
		}
		sb.WriteString(fmt.Sprintf("\nSkills: %s\n", skills))
	}

	p.printBox("PARSED RESUME", sb.String())
}

// PrintActivities outputs an agent activity log, one line per entry.
func (p *Printer) PrintActivities(activities []types.AgentActivity) {
	if len(activities) == 0 {
		return
	}

	var sb strings.Builder
	for _, a := range activities {
		sb.WriteString(fmt.Sprintf("%s %-10s %s\n", a.Timestamp.Format("15:04:05.000"), "["+string(a.Status)+"]", a.Action))
	}

	p.printBox("AGENT ACTIVITY", sb.String())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
