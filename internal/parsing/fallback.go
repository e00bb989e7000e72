package parsing

import (
	"regexp"
	"strings"

	"github.com/jonathan/resume-enhancer/internal/types"
)

// ProfileLinkMarker is recorded for linkedin/github when the text mentions the site
// but no link is extracted.
const ProfileLinkMarker = "Found in resume"

// space matches what ECMAScript counts as whitespace. RE2's \s is ASCII only,
// and extracted PDF text often separates fields with NBSP.
const space = `\s\x{000B}\p{Zs}\x{2028}\x{2029}\x{FEFF}`

var (
	emailPattern = regexp.MustCompile(`[^` + space + `@]+@[^` + space + `@]+\.[^` + space + `@]+`)
	phonePattern = regexp.MustCompile(`(?:\+?1[-.` + space + `]?)?\(?([0-9]{3})\)?[-.` + space + `]?([0-9]{3})[-.` + space + `]?([0-9]{4})`)
)

// Fallback builds a ParsedResume from raw text without a model. It is a pure
// function of its input and never fails, even on empty text. ID and RawText
// are left empty for the caller to fill.
func Fallback(rawText string) *types.ParsedResume {
	r := &types.ParsedResume{
		PersonalInfo: types.PersonalInfo{
			Name:  firstNonBlankLine(rawText),
			Email: emailPattern.FindString(rawText),
			Phone: phonePattern.FindString(rawText),
		},
	}
	if strings.Contains(rawText, "linkedin.com") {
		r.PersonalInfo.LinkedIn = ProfileLinkMarker
	}
	if strings.Contains(rawText, "github.com") {
		r.PersonalInfo.GitHub = ProfileLinkMarker
	}

	r.EnsureSlices()
	r.RecomputeStructure()
	return r
}

func firstNonBlankLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
