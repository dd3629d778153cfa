// Package gap implements C7: turning every non-ok field resolution the
// condition compiler recorded into a GapItem with canned impact text and
// Levenshtein-ranked remediation suggestions (spec.md §4.7).
package gap

import (
	"sort"
	"strings"

	"sigmaspl/internal/condition"
	"sigmaspl/internal/resolver"
)

// GapItem describes one field the resolver could not map with full
// confidence.
type GapItem struct {
	Field       string
	Location    string
	Impact      string
	Suggestions []string
}

const (
	missingImpact   = "No mapping exists; query uses raw Sigma field name which may not resolve in Splunk"
	suggestedImpact = "Using CIM/heuristic mapping; verify against your schema"
)

// maxSuggestions caps the suggestion list per missing field (SPEC_FULL.md
// §12: capped at 3).
const maxSuggestions = 3

// levenshteinThreshold is the maximum edit distance, on the lower-cased
// field name, that still counts as a candidate suggestion.
const levenshteinThreshold = 2

// Analyze produces one GapItem per field occurrence whose resolution status
// is not ok (spec.md §8 invariant 3: per occurrence, not deduplicated by
// field name). known is the candidate pool to suggest against for missing
// fields — typically the profile's mapped target fields plus the built-in
// CIM field list.
func Analyze(occurrences []condition.FieldOccurrence, known []string) []GapItem {
	var items []GapItem
	for _, occ := range occurrences {
		switch occ.Result.Status {
		case resolver.StatusMissing:
			items = append(items, GapItem{
				Field:       occ.SigmaField,
				Location:    occ.Location,
				Impact:      missingImpact,
				Suggestions: suggestSimilar(occ.SigmaField, known),
			})
		case resolver.StatusSuggested:
			items = append(items, GapItem{
				Field:       occ.SigmaField,
				Location:    occ.Location,
				Impact:      suggestedImpact,
				Suggestions: []string{occ.Result.Note},
			})
		}
	}
	return items
}

type scoredName struct {
	name     string
	distance int
}

// suggestSimilar ranks known candidates by normalized Levenshtein distance
// to field, keeping those within threshold, ordered by distance then
// alphabetically, capped at maxSuggestions.
func suggestSimilar(field string, known []string) []string {
	target := strings.ToLower(field)
	seen := make(map[string]bool, len(known))
	var scored []scoredName
	for _, k := range known {
		lower := strings.ToLower(k)
		if lower == target || seen[lower] {
			continue
		}
		seen[lower] = true
		d := levenshtein(target, lower)
		if d <= levenshteinThreshold {
			scored = append(scored, scoredName{name: k, distance: d})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].distance != scored[j].distance {
			return scored[i].distance < scored[j].distance
		}
		return scored[i].name < scored[j].name
	})

	if len(scored) > maxSuggestions {
		scored = scored[:maxSuggestions]
	}
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.name
	}
	return out
}

// levenshtein computes the classic edit distance between two strings with a
// two-row dynamic-programming table (no need for the full matrix here).
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
