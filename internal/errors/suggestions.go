// Package errors provides CLI-facing errors that carry hints for fixing the
// problem.
package errors

import (
	"fmt"
	"sort"
	"strings"
)

// SuggestiveError is an error that includes suggestions for fixing the problem.
type SuggestiveError struct {
	Message     string
	Suggestions []string
	HelpCommand string
}

func (e *SuggestiveError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nDid you mean one of these?\n")
		for _, s := range e.Suggestions {
			fmt.Fprintf(&b, "  %s\n", s)
		}
	}
	if e.HelpCommand != "" {
		fmt.Fprintf(&b, "\nRun '%s' for more information.", e.HelpCommand)
	}
	return b.String()
}

// SourceNotFoundError reports an unknown alias (without its @ prefix) and
// suggests configured aliases with similar names.
func SourceNotFoundError(alias string, available []string) error {
	similar := closest(alias, available, 3)
	for i, s := range similar {
		similar[i] = "@" + s
	}
	return &SuggestiveError{
		Message:     fmt.Sprintf("source %q not found", "@"+alias),
		Suggestions: similar,
		HelpCommand: "skein sources",
	}
}

// NoSourceError creates an error for when no source argument or default is given.
func NoSourceError() error {
	return &SuggestiveError{
		Message: "no source given and no default_source configured",
		Suggestions: []string{
			"skein stream https://host/api/logs   - Stream from an HTTP endpoint",
			"skein stream ./app.jsonl             - Stream from a local JSON-lines file",
			"skein stream @alias                  - Use a configured alias",
		},
		HelpCommand: "skein sources",
	}
}

// InvalidTimeError creates an error for invalid time format.
func InvalidTimeError(input string) error {
	return &SuggestiveError{
		Message: fmt.Sprintf("invalid time format %q", input),
		Suggestions: []string{
			"Relative: 90s, 30m, 2h, 7d, 1w (before now)",
			"Absolute: 2024-01-15T10:30:00Z (RFC3339)",
			"Date only: 2024-01-15 (midnight UTC)",
		},
	}
}

// UnknownFormatError reports an output format that is not one of valid.
func UnknownFormatError(format string, valid []string) error {
	suggestions := closest(format, valid, 2)
	if len(suggestions) == 0 {
		suggestions = valid
	}
	return &SuggestiveError{
		Message:     fmt.Sprintf("unknown output format %q", format),
		Suggestions: suggestions,
	}
}

// closest returns up to three candidates within maxDistance edits of
// target, nearest first. Ties keep alphabetical order. Matching ignores case.
func closest(target string, candidates []string, maxDistance int) []string {
	type scored struct {
		value string
		dist  int
	}

	target = strings.ToLower(target)
	var hits []scored
	for _, c := range candidates {
		if d := editDistance(target, strings.ToLower(c)); d <= maxDistance {
			hits = append(hits, scored{c, d})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].value < hits[j].value
	})

	out := make([]string, 0, 3)
	for _, h := range hits {
		if len(out) == 3 {
			break
		}
		out = append(out, h.value)
	}
	return out
}

// editDistance is the Levenshtein distance between a and b in runes. It
// keeps two rows of the table.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			sub := prev[j-1]
			if ra[i-1] != rb[j-1] {
				sub++
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
