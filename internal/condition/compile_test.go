package condition

import (
	"testing"

	"sigmaspl/internal/queryast"
	"sigmaspl/internal/resolver"
	"sigmaspl/internal/sigmaast"
)

func selection(name string, matches ...sigmaast.FieldMatch) sigmaast.Selection {
	return sigmaast.Selection{
		Name:         name,
		Alternatives: []sigmaast.SelectionAlternative{{Matches: matches}},
	}
}

func fieldMatch(field string, mods []sigmaast.Modifier, value sigmaast.Value) sigmaast.FieldMatch {
	return sigmaast.FieldMatch{Field: sigmaast.FieldRef{Name: field, Modifiers: mods}, Value: value}
}

func TestCompileSimpleAndCondition(t *testing.T) {
	rule := &sigmaast.Rule{
		Logsource: sigmaast.Logsource{Product: "windows", Category: "process_creation"},
		Detection: sigmaast.Detection{
			Selections: []sigmaast.Selection{
				selection("selection",
					fieldMatch("Image", []sigmaast.Modifier{sigmaast.ModEndsWith}, `\powershell.exe`),
					fieldMatch("CommandLine", []sigmaast.Modifier{sigmaast.ModContains}, "-enc"),
				),
			},
			ConditionText: "selection",
		},
	}
	res := resolver.New(nil, rule.Logsource)
	node, occ, err := Compile(rule, res)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(occ) != 2 {
		t.Fatalf("expected 2 field occurrences, got %d", len(occ))
	}

	want := queryast.And{Items: []queryast.Node{
		queryast.Match{Field: "Image", Op: queryast.OpEndsWith, Value: queryast.StrLit(`\powershell.exe`), CaseInsensitive: true},
		queryast.Match{Field: "CommandLine", Op: queryast.OpContains, Value: queryast.StrLit("-enc"), CaseInsensitive: true},
	}}
	if !queryast.Equal(node, want) {
		t.Fatalf("compiled node %#v does not match expected %#v", node, want)
	}
}

func TestCompileOneOfThemExpandsToOr(t *testing.T) {
	rule := &sigmaast.Rule{
		Detection: sigmaast.Detection{
			Selections: []sigmaast.Selection{
				selection("sel_a", fieldMatch("A", nil, "1")),
				selection("sel_b", fieldMatch("B", nil, "2")),
			},
			ConditionText: "1 of them",
		},
	}
	res := resolver.New(nil, sigmaast.Logsource{})
	node, _, err := Compile(rule, res)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := queryast.Or{Items: []queryast.Node{
		queryast.Match{Field: "A", Op: queryast.OpEquals, Value: queryast.StrLit("1"), CaseInsensitive: true},
		queryast.Match{Field: "B", Op: queryast.OpEquals, Value: queryast.StrLit("2"), CaseInsensitive: true},
	}}
	if !queryast.Equal(node, want) {
		t.Fatalf("compiled node %#v does not match expected %#v", node, want)
	}
}

func TestCompileOneOfPrefixGlobExpandsToOr(t *testing.T) {
	rule := &sigmaast.Rule{
		Detection: sigmaast.Detection{
			Selections: []sigmaast.Selection{
				selection("selection_a", fieldMatch("A", nil, "1")),
				selection("selection_b", fieldMatch("B", nil, "2")),
			},
			ConditionText: "1 of selection_*",
		},
	}
	res := resolver.New(nil, sigmaast.Logsource{})
	node, _, err := Compile(rule, res)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := queryast.Or{Items: []queryast.Node{
		queryast.Match{Field: "A", Op: queryast.OpEquals, Value: queryast.StrLit("1"), CaseInsensitive: true},
		queryast.Match{Field: "B", Op: queryast.OpEquals, Value: queryast.StrLit("2"), CaseInsensitive: true},
	}}
	if !queryast.Equal(node, want) {
		t.Fatalf("compiled node %#v does not match expected %#v", node, want)
	}
}

func TestCompileUnresolvedSelection(t *testing.T) {
	rule := &sigmaast.Rule{
		Detection: sigmaast.Detection{
			Selections:    []sigmaast.Selection{selection("selection", fieldMatch("A", nil, "1"))},
			ConditionText: "other_selection",
		},
	}
	res := resolver.New(nil, sigmaast.Logsource{})
	_, _, err := Compile(rule, res)
	if err == nil {
		t.Fatalf("expected error for unresolved selection reference")
	}
}

func TestCompileUnknownModifier(t *testing.T) {
	rule := &sigmaast.Rule{
		Detection: sigmaast.Detection{
			Selections:    []sigmaast.Selection{selection("selection", fieldMatch("A", []sigmaast.Modifier{"bogus"}, "1"))},
			ConditionText: "selection",
		},
	}
	res := resolver.New(nil, sigmaast.Logsource{})
	_, _, err := Compile(rule, res)
	if err == nil {
		t.Fatalf("expected error for unknown modifier")
	}
}

func TestCompileNullValueBecomesNotExists(t *testing.T) {
	rule := &sigmaast.Rule{
		Detection: sigmaast.Detection{
			Selections:    []sigmaast.Selection{selection("selection", fieldMatch("ParentImage", nil, nil))},
			ConditionText: "selection",
		},
	}
	res := resolver.New(nil, sigmaast.Logsource{})
	node, _, err := Compile(rule, res)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := queryast.Not{Item: queryast.Exists{Field: "ParentImage"}}
	if !queryast.Equal(node, want) {
		t.Fatalf("compiled node %#v does not match expected %#v", node, want)
	}
}

func TestCompileListValueBecomesOr(t *testing.T) {
	rule := &sigmaast.Rule{
		Detection: sigmaast.Detection{
			Selections: []sigmaast.Selection{
				selection("selection", fieldMatch("Image", []sigmaast.Modifier{sigmaast.ModEndsWith}, []sigmaast.Value{`\a.exe`, `\b.exe`})),
			},
			ConditionText: "selection",
		},
	}
	res := resolver.New(nil, sigmaast.Logsource{})
	node, _, err := Compile(rule, res)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := queryast.Or{Items: []queryast.Node{
		queryast.Match{Field: "Image", Op: queryast.OpEndsWith, Value: queryast.StrLit(`\a.exe`), CaseInsensitive: true},
		queryast.Match{Field: "Image", Op: queryast.OpEndsWith, Value: queryast.StrLit(`\b.exe`), CaseInsensitive: true},
	}}
	if !queryast.Equal(node, want) {
		t.Fatalf("compiled node %#v does not match expected %#v", node, want)
	}
}

func TestCompileMissingCondition(t *testing.T) {
	rule := &sigmaast.Rule{Detection: sigmaast.Detection{Selections: []sigmaast.Selection{selection("s", fieldMatch("A", nil, "1"))}}}
	res := resolver.New(nil, sigmaast.Logsource{})
	if _, _, err := Compile(rule, res); err == nil {
		t.Fatalf("expected error when condition text is empty")
	}
}
