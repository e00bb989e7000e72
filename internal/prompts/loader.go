// Package prompts holds the model prompt templates used by the resume parser.
// Templates live in JSON files embedded at compile time, one object of
// name -> template per file.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// placeholder matches {{.Name}} in a template
var placeholder = regexp.MustCompile(`\{\{\.([A-Za-z][A-Za-z0-9_]*)\}\}`)

// Set is the contents of one prompt file
type Set map[string]string

// Keys returns the template names in the set, sorted
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// loaded caches parsed files by name; files are immutable once embedded
var loaded sync.Map

// Load returns the parsed prompt file. Results are cached for the life of the process.
func Load(filename string) (Set, error) {
	if set, ok := loaded.Load(filename); ok {
		return set.(Set), nil
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	actual, _ := loaded.LoadOrStore(filename, set)
	return actual.(Set), nil
}

// Get retrieves a template by file and key
func Get(filename, key string) (string, error) {
	set, err := Load(filename)
	if err != nil {
		return "", err
	}
	prompt, ok := set[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// MustGet is Get for templates the program cannot run without
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Placeholders returns the distinct placeholder names in template, in order of first use
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Format fills {{.Name}} placeholders from data in a single pass, so values
// that themselves contain placeholder syntax (resume text can) are inserted
// literally. Placeholders with no entry in data are left as-is.
func Format(template string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		if value, ok := data[name]; ok {
			return value
		}
		return match
	})
}
