package condition

import (
	"testing"

	"sigmaspl/internal/queryast"
	"sigmaspl/internal/resolver"
	"sigmaspl/internal/sigmaast"
)

func TestApplyTransformChainBase64(t *testing.T) {
	variants, err := applyTransformChain("whoami", []sigmaast.Modifier{sigmaast.ModBase64})
	if err != nil {
		t.Fatalf("applyTransformChain: %v", err)
	}
	want := []string{"d2hvYW1p"}
	if len(variants) != 1 || variants[0] != want[0] {
		t.Fatalf("got %v, want %v", variants, want)
	}
}

func TestBase64OffsetVariants(t *testing.T) {
	got := base64OffsetVariants("whoami")
	want := []string{"d2hvYW1p", "dob2Fta", "3aG9hbW"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("variant %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBase64OffsetVariantsNeverContainPadding(t *testing.T) {
	for _, variant := range base64OffsetVariants("whoami") {
		if len(variant) >= 1 && (variant[len(variant)-1] == '=' || (len(variant) >= 2 && variant[len(variant)-2] == '=')) {
			t.Fatalf("variant %q still contains base64 padding, which can never appear mid-string in a real encoded blob", variant)
		}
	}
}

func TestCompileBase64ModifierEncodesValue(t *testing.T) {
	rule := &sigmaast.Rule{
		Detection: sigmaast.Detection{
			Selections: []sigmaast.Selection{
				selection("selection", fieldMatch("CommandLine", []sigmaast.Modifier{sigmaast.ModBase64, sigmaast.ModContains}, "whoami")),
			},
			ConditionText: "selection",
		},
	}
	res := resolver.New(nil, sigmaast.Logsource{})
	node, _, err := Compile(rule, res)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := queryast.Match{Field: "CommandLine", Op: queryast.OpContains, Value: queryast.StrLit("d2hvYW1p"), CaseInsensitive: true}
	if !queryast.Equal(node, want) {
		t.Fatalf("compiled node %#v does not match expected %#v", node, want)
	}
}

func TestCompileBase64OffsetModifierProducesThreeVariants(t *testing.T) {
	rule := &sigmaast.Rule{
		Detection: sigmaast.Detection{
			Selections: []sigmaast.Selection{
				selection("selection", fieldMatch("CommandLine", []sigmaast.Modifier{sigmaast.ModBase64Offset, sigmaast.ModContains}, "whoami")),
			},
			ConditionText: "selection",
		},
	}
	res := resolver.New(nil, sigmaast.Logsource{})
	node, _, err := Compile(rule, res)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	or, ok := node.(queryast.Or)
	if !ok || len(or.Items) != 3 {
		t.Fatalf("expected an Or of 3 match variants, got %#v", node)
	}
}
