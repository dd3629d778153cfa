// Package queryast is the boolean normal form every forward (Sigma→SPL) and
// reverse (SPL→Sigma) pipeline converges on: And/Or/Not/Match/Exists nodes
// over resolved target fields. The SPL emitter renders it one way; the
// reverse recognizer builds it the other way from parsed SPL text.
package queryast

import "sort"

// MatchOp is the comparison kind for a Match leaf.
type MatchOp string

const (
	OpEquals     MatchOp = "equals"
	OpContains   MatchOp = "contains"
	OpStartsWith MatchOp = "startswith"
	OpEndsWith   MatchOp = "endswith"
	OpRegex      MatchOp = "regex"
	OpCidrIn     MatchOp = "cidrin"
	OpLt         MatchOp = "lt"
	OpLte        MatchOp = "lte"
	OpGt         MatchOp = "gt"
	OpGte        MatchOp = "gte"
)

// Literal is a scalar value carried by a Match leaf. Exactly one of the
// Has* flags is set for non-string literals; strings use Str directly
// since the empty string is itself a valid literal.
type Literal struct {
	Str     string
	Int     int64
	HasInt  bool
	Bool    bool
	HasBool bool
}

// StrLit builds a string literal.
func StrLit(s string) Literal { return Literal{Str: s} }

// IntLit builds an integer literal.
func IntLit(i int64) Literal { return Literal{HasInt: true, Int: i} }

// BoolLit builds a boolean literal.
func BoolLit(b bool) Literal { return Literal{HasBool: true, Bool: b} }

// String renders the literal the way it should appear, unquoted, in SPL or
// Sigma text.
func (l Literal) String() string {
	switch {
	case l.HasInt:
		return formatInt(l.Int)
	case l.HasBool:
		if l.Bool {
			return "true"
		}
		return "false"
	default:
		return l.Str
	}
}

func formatInt(i int64) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Node is any boolean-AST node: And, Or, Not, Match, or Exists.
type Node interface {
	isNode()
	// key returns a canonical, order-independent string used for
	// normalization (sorting siblings) and equality comparison.
	key() string
}

// And is a conjunction. Empty And is not constructed by any component.
type And struct{ Items []Node }

// Or is a disjunction.
type Or struct{ Items []Node }

// Not negates a single child.
type Not struct{ Item Node }

// Match is a field comparison leaf.
type Match struct {
	Field           string
	Op              MatchOp
	Value           Literal
	CaseInsensitive bool
}

// Exists tests for field presence; Not{Exists{f}} is how a Sigma `null`
// value is represented (spec.md §4.4 step 2).
type Exists struct{ Field string }

func (And) isNode()    {}
func (Or) isNode()     {}
func (Not) isNode()    {}
func (Match) isNode()  {}
func (Exists) isNode() {}

func (n And) key() string {
	return "And(" + joinKeys(n.Items) + ")"
}

func (n Or) key() string {
	return "Or(" + joinKeys(n.Items) + ")"
}

func (n Not) key() string {
	return "Not(" + n.Item.key() + ")"
}

func (n Match) key() string {
	ci := "0"
	if n.CaseInsensitive {
		ci = "1"
	}
	return "Match(" + n.Field + "," + string(n.Op) + "," + n.Value.String() + "," + ci + ")"
}

func (n Exists) key() string {
	return "Exists(" + n.Field + ")"
}

func joinKeys(items []Node) string {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.key()
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += "|"
		}
		out += k
	}
	return out
}

// Normalize flattens nested same-type And/Or, sorts siblings canonically,
// and deduplicates identical leaves. It is the basis for the round-trip
// equivalence property (spec.md §8 invariant 1): two trees that differ only
// by associativity/commutativity of And/Or, or by duplicate Match leaves,
// normalize to the same tree.
func Normalize(n Node) Node {
	switch v := n.(type) {
	case And:
		return normalizeAssoc(v.Items, true)
	case Or:
		return normalizeAssoc(v.Items, false)
	case Not:
		return Not{Item: Normalize(v.Item)}
	default:
		return n
	}
}

func normalizeAssoc(items []Node, isAnd bool) Node {
	var flat []Node
	for _, it := range items {
		norm := Normalize(it)
		if isAnd {
			if a, ok := norm.(And); ok {
				flat = append(flat, a.Items...)
				continue
			}
		} else {
			if o, ok := norm.(Or); ok {
				flat = append(flat, o.Items...)
				continue
			}
		}
		flat = append(flat, norm)
	}

	seen := map[string]bool{}
	deduped := make([]Node, 0, len(flat))
	for _, it := range flat {
		k := it.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		deduped = append(deduped, it)
	}

	sort.Slice(deduped, func(i, j int) bool { return deduped[i].key() < deduped[j].key() })

	if len(deduped) == 1 {
		return deduped[0]
	}
	if isAnd {
		return And{Items: deduped}
	}
	return Or{Items: deduped}
}

// Equal reports whether two trees are equivalent under associativity,
// commutativity, and Match-leaf deduplication.
func Equal(a, b Node) bool {
	return Normalize(a).key() == Normalize(b).key()
}
