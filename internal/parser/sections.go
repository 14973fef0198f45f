// Package parser splits interpretation replies into heading-delimited sections.
package parser

import (
	"strings"

	"github.com/raphaelgruber/dreamer/internal/models"
)

// HeadingPrefix marks a section heading line.
const HeadingPrefix = "### "

// ParseSections splits raw into sections introduced by "### " headings.
//
// Lines before the first heading are dropped and blank lines are skipped.
// A heading that repeats re-opens the earlier section and its later lines are
// appended there. A reply without headings yields no sections; callers show
// the raw text instead.
func ParseSections(raw string) models.Sections {
	if raw == "" {
		return nil
	}

	var sections models.Sections
	index := make(map[string]int)
	current := -1

	for line := range strings.SplitSeq(raw, "\n") {
		if strings.HasPrefix(line, HeadingPrefix) {
			name := headingName(line)
			i, ok := index[name]
			if !ok {
				i = len(sections)
				index[name] = i
				sections = append(sections, models.Section{Name: name, Lines: []string{}})
			}
			current = i
			continue
		}

		text := strings.TrimSpace(line)
		if current < 0 || text == "" {
			continue
		}
		sections[current].Lines = append(sections[current].Lines, text)
	}

	return sections
}

// headingName strips the marker: "### Symbols ###" -> "Symbols".
func headingName(line string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "# "))
}

// Label returns the part of a content line before its first colon, trimmed.
// Lines without a colon are their own label.
func Label(line string) string {
	before, _, _ := strings.Cut(line, ":")
	return strings.TrimSpace(before)
}

// Labels maps every non-empty line to its label.
func Labels(lines []string) []string {
	labels := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		labels = append(labels, Label(line))
	}
	return labels
}
