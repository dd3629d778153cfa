package gap

import (
	"testing"

	"sigmaspl/internal/condition"
	"sigmaspl/internal/resolver"
)

func occ(field, location string, status resolver.Status, note string) condition.FieldOccurrence {
	return condition.FieldOccurrence{
		SigmaField: field,
		Location:   location,
		Result:     resolver.Result{SigmaField: field, TargetField: field, Status: status, Note: note},
	}
}

func TestAnalyzeOneGapPerNonOkOccurrence(t *testing.T) {
	occs := []condition.FieldOccurrence{
		occ("Image", "selection.Image", resolver.StatusOK, ""),
		occ("RareField", "selection.RareField", resolver.StatusMissing, ""),
		occ("CommandLine", "selection.CommandLine", resolver.StatusSuggested, "cim:process"),
	}
	items := Analyze(occs, nil)
	if len(items) != 2 {
		t.Fatalf("expected one GapItem per non-ok occurrence, got %d: %+v", len(items), items)
	}
	if items[0].Field != "RareField" || items[0].Location != "selection.RareField" {
		t.Fatalf("unexpected first gap item: %+v", items[0])
	}
}

func TestAnalyzeMissingAndSuggestedImpactText(t *testing.T) {
	occs := []condition.FieldOccurrence{
		occ("RareField", "loc1", resolver.StatusMissing, ""),
		occ("CommandLine", "loc2", resolver.StatusSuggested, "cim:process"),
	}
	items := Analyze(occs, nil)
	if items[0].Impact != missingImpact {
		t.Fatalf("expected missingImpact text, got %q", items[0].Impact)
	}
	if items[1].Impact != suggestedImpact {
		t.Fatalf("expected suggestedImpact text, got %q", items[1].Impact)
	}
	if len(items[1].Suggestions) != 1 || items[1].Suggestions[0] != "cim:process" {
		t.Fatalf("expected suggested gap to carry the resolver note, got %+v", items[1].Suggestions)
	}
}

func TestAnalyzeNoGapsWhenAllResolved(t *testing.T) {
	occs := []condition.FieldOccurrence{occ("Image", "loc", resolver.StatusOK, "")}
	items := Analyze(occs, nil)
	if len(items) != 0 {
		t.Fatalf("expected no gaps for fully resolved occurrences, got %+v", items)
	}
}

func TestSuggestSimilarRanksByDistanceThenAlpha(t *testing.T) {
	known := []string{"Imaeg", "Imag", "Image", "TotallyDifferent", "Imagee"}
	got := suggestSimilar("image", known)
	// "Image" is an exact case-insensitive match so it's excluded from suggestions.
	// "Imag"/"Imagee" are a single insertion away (distance 1); "Imaeg" is a
	// transposition away (distance 2, no single-op transposition credit).
	want := []string{"Imag", "Imagee", "Imaeg"}
	if len(got) != len(want) {
		t.Fatalf("suggestSimilar(%q) = %v, want %v", "image", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("suggestSimilar(%q)[%d] = %q, want %q (full: %v)", "image", i, got[i], want[i], got)
		}
	}
}

func TestSuggestSimilarCapsAtMaxSuggestions(t *testing.T) {
	known := []string{"Imag", "Imae", "Imga", "Mage", "maIg"}
	got := suggestSimilar("image", known)
	if len(got) > maxSuggestions {
		t.Fatalf("expected at most %d suggestions, got %d: %v", maxSuggestions, len(got), got)
	}
}

func TestSuggestSimilarExcludesFarCandidates(t *testing.T) {
	got := suggestSimilar("image", []string{"CompletelyUnrelatedFieldName"})
	if len(got) != 0 {
		t.Fatalf("expected no suggestions beyond the distance threshold, got %v", got)
	}
}

func TestLevenshteinBasic(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"kitten", "sitting", 3},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Fatalf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
