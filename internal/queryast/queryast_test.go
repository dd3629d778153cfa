package queryast

import "testing"

func TestNormalizeFlattensAssociativity(t *testing.T) {
	a := And{Items: []Node{
		Match{Field: "x", Op: OpEquals, Value: StrLit("1")},
		And{Items: []Node{
			Match{Field: "y", Op: OpEquals, Value: StrLit("2")},
			Match{Field: "z", Op: OpEquals, Value: StrLit("3")},
		}},
	}}
	b := And{Items: []Node{
		Match{Field: "z", Op: OpEquals, Value: StrLit("3")},
		Match{Field: "y", Op: OpEquals, Value: StrLit("2")},
		Match{Field: "x", Op: OpEquals, Value: StrLit("1")},
	}}
	if !Equal(a, b) {
		t.Fatalf("expected nested and flat And trees with reordered leaves to be equal")
	}
}

func TestNormalizeDedupesLeaves(t *testing.T) {
	a := Or{Items: []Node{
		Match{Field: "f", Op: OpEquals, Value: StrLit("v")},
		Match{Field: "f", Op: OpEquals, Value: StrLit("v")},
	}}
	b := Match{Field: "f", Op: OpEquals, Value: StrLit("v")}
	if !Equal(a, b) {
		t.Fatalf("expected duplicate Or leaf to collapse to the single Match")
	}
}

func TestEqualDistinguishesDifferentOps(t *testing.T) {
	a := Match{Field: "f", Op: OpEquals, Value: StrLit("v")}
	b := Match{Field: "f", Op: OpContains, Value: StrLit("v")}
	if Equal(a, b) {
		t.Fatalf("Match nodes with different ops must not be equal")
	}
}

func TestEqualIgnoresOrCommutativity(t *testing.T) {
	a := Or{Items: []Node{
		Match{Field: "a", Op: OpEquals, Value: StrLit("1")},
		Match{Field: "b", Op: OpEquals, Value: StrLit("2")},
	}}
	b := Or{Items: []Node{
		Match{Field: "b", Op: OpEquals, Value: StrLit("2")},
		Match{Field: "a", Op: OpEquals, Value: StrLit("1")},
	}}
	if !Equal(a, b) {
		t.Fatalf("Or nodes should be equal regardless of item order")
	}
}

func TestLiteralStringRendering(t *testing.T) {
	if got := IntLit(42).String(); got != "42" {
		t.Fatalf("IntLit(42).String() = %q, want 42", got)
	}
	if got := IntLit(-7).String(); got != "-7" {
		t.Fatalf("IntLit(-7).String() = %q, want -7", got)
	}
	if got := BoolLit(true).String(); got != "true" {
		t.Fatalf("BoolLit(true).String() = %q, want true", got)
	}
	if got := StrLit("hello").String(); got != "hello" {
		t.Fatalf("StrLit(hello).String() = %q, want hello", got)
	}
}
