package condition

import (
	"encoding/base64"
	"fmt"
	"unicode/utf16"

	"sigmaspl/internal/queryast"
	"sigmaspl/internal/sigmaast"
	"sigmaspl/internal/txerr"
)

// buildFieldNode lowers one resolved (targetField, modifiers, rawValue)
// triple into a queryast.Node, folding the modifier chain left to right
// exactly as spec.md §4.4 step 2 describes: contains/startswith/endswith
// change the op; re forces Regex; cidr forces CidrIn; base64/base64offset
// transform the value; wide/utf16 transform the value to UTF-16LE hex;
// all switches list semantics from OR to AND; lt/lte/gt/gte set NumericCmp.
func buildFieldNode(targetField string, mods []sigmaast.Modifier, raw sigmaast.Value) (queryast.Node, error) {
	allMode := hasMod(mods, sigmaast.ModAll)
	caseInsensitive := !hasMod(mods, sigmaast.ModCased)
	op, transformMods := classifyModifiers(mods)

	values := flattenValues(raw)
	nodes := make([]queryast.Node, 0, len(values))
	for _, v := range values {
		node, err := buildLeafForValue(targetField, op, transformMods, v, caseInsensitive)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	if len(nodes) == 1 {
		return nodes[0], nil
	}
	if allMode {
		return queryast.And{Items: nodes}, nil
	}
	return queryast.Or{Items: nodes}, nil
}

func buildLeafForValue(field string, op queryast.MatchOp, transformMods []sigmaast.Modifier, v sigmaast.Value, caseInsensitive bool) (queryast.Node, error) {
	if v == nil {
		return queryast.Not{Item: queryast.Exists{Field: field}}, nil
	}

	if isNumericOp(op) {
		lit, err := numericLiteral(v)
		if err != nil {
			return nil, err
		}
		return queryast.Match{Field: field, Op: op, Value: lit, CaseInsensitive: false}, nil
	}

	raw := valueToString(v)
	variants, err := applyTransformChain(raw, transformMods)
	if err != nil {
		return nil, err
	}

	matchNodes := make([]queryast.Node, len(variants))
	for i, variant := range variants {
		matchNodes[i] = queryast.Match{
			Field:           field,
			Op:              op,
			Value:           queryast.StrLit(variant),
			CaseInsensitive: caseInsensitive,
		}
	}
	if len(matchNodes) == 1 {
		return matchNodes[0], nil
	}
	return queryast.Or{Items: matchNodes}, nil
}

func isNumericOp(op queryast.MatchOp) bool {
	switch op {
	case queryast.OpLt, queryast.OpLte, queryast.OpGt, queryast.OpGte:
		return true
	default:
		return false
	}
}

func hasMod(mods []sigmaast.Modifier, target sigmaast.Modifier) bool {
	for _, m := range mods {
		if m == target {
			return true
		}
	}
	return false
}

// classifyModifiers splits the modifier chain into the single op-selecting
// modifier (defaulting to Equals) and the ordered list of value-transform
// modifiers (base64, base64offset, wide, utf16). all and cased are handled
// by the caller and never appear here.
func classifyModifiers(mods []sigmaast.Modifier) (queryast.MatchOp, []sigmaast.Modifier) {
	op := queryast.OpEquals
	var transforms []sigmaast.Modifier
	for _, m := range mods {
		switch m {
		case sigmaast.ModContains:
			op = queryast.OpContains
		case sigmaast.ModStartsWith:
			op = queryast.OpStartsWith
		case sigmaast.ModEndsWith:
			op = queryast.OpEndsWith
		case sigmaast.ModRegex:
			op = queryast.OpRegex
		case sigmaast.ModCidr:
			op = queryast.OpCidrIn
		case sigmaast.ModLt:
			op = queryast.OpLt
		case sigmaast.ModLte:
			op = queryast.OpLte
		case sigmaast.ModGt:
			op = queryast.OpGt
		case sigmaast.ModGte:
			op = queryast.OpGte
		case sigmaast.ModBase64, sigmaast.ModBase64Offset, sigmaast.ModWide, sigmaast.ModUtf16:
			transforms = append(transforms, m)
		case sigmaast.ModAll, sigmaast.ModCased:
			// handled by the caller
		}
	}
	return op, transforms
}

// applyTransformChain folds the value-transform modifiers over raw,
// producing one or more literal variants (base64offset yields up to three
// byte-alignment variants, spec.md §4.4 step 2 / SPEC_FULL.md S2).
func applyTransformChain(raw string, mods []sigmaast.Modifier) ([]string, error) {
	variants := []string{raw}
	for _, m := range mods {
		switch m {
		case sigmaast.ModBase64:
			next := make([]string, len(variants))
			for i, v := range variants {
				next[i] = base64.StdEncoding.EncodeToString([]byte(v))
			}
			variants = next
		case sigmaast.ModBase64Offset:
			var next []string
			for _, v := range variants {
				next = append(next, base64OffsetVariants(v)...)
			}
			variants = next
		case sigmaast.ModWide, sigmaast.ModUtf16:
			next := make([]string, len(variants))
			for i, v := range variants {
				next[i] = utf16LEHex(v)
			}
			variants = next
		}
	}
	return variants, nil
}

// base64OffsetVariants encodes v as if it appeared at byte offsets 0, 1, 2
// within a surrounding buffer, matching the way base64 chunk boundaries
// shift the encoded form of a command-line substring (Sigma's
// |base64offset| modifier). Both ends are trimmed of the alignment padding's
// own encoding, using Sigma's canonical start_offsets=(0,2,3) and
// end_offsets=(None,-3,-2): the leading offset A-bytes always encode to a
// whole number of leading chars that must be dropped, and for a non-zero
// offset the final 3-byte group is padded short, so its trailing chars
// (including any "=" padding) never appear inside a real encoded blob and
// must be dropped too.
func base64OffsetVariants(v string) []string {
	startOffsets := [3]int{0, 2, 3}
	out := make([]string, 0, 3)
	for offset := 0; offset < 3; offset++ {
		padded := make([]byte, offset, offset+len(v))
		for i := 0; i < offset; i++ {
			padded[i] = 'A'
		}
		padded = append(padded, v...)
		encoded := base64.StdEncoding.EncodeToString(padded)

		start := startOffsets[offset]
		if start > len(encoded) {
			start = len(encoded)
		}
		end := len(encoded)
		switch offset {
		case 1:
			end -= 3
		case 2:
			end -= 2
		}
		if end < start {
			end = start
		}
		out = append(out, encoded[start:end])
	}
	return out
}

func utf16LEHex(s string) string {
	units := utf16.Encode([]rune(s))
	buf := make([]byte, 0, len(units)*4)
	const hexDigits = "0123456789abcdef"
	for _, u := range units {
		lo := byte(u & 0xff)
		hi := byte(u >> 8)
		buf = append(buf, hexDigits[lo>>4], hexDigits[lo&0xf], hexDigits[hi>>4], hexDigits[hi&0xf])
	}
	return string(buf)
}

func valueToString(v sigmaast.Value) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return fmt.Sprintf("%d", t)
	case int:
		return fmt.Sprintf("%d", t)
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func numericLiteral(v sigmaast.Value) (queryast.Literal, error) {
	switch t := v.(type) {
	case int64:
		return queryast.IntLit(t), nil
	case int:
		return queryast.IntLit(int64(t)), nil
	case float64:
		return queryast.IntLit(int64(t)), nil
	default:
		return queryast.Literal{}, txerr.New(txerr.InvalidSigma, "condition", fmt.Sprintf("numeric comparison modifier used with non-numeric value %v", v))
	}
}

func flattenValues(v sigmaast.Value) []sigmaast.Value {
	if list, ok := v.([]sigmaast.Value); ok {
		var out []sigmaast.Value
		for _, item := range list {
			out = append(out, flattenValues(item)...)
		}
		return out
	}
	return []sigmaast.Value{v}
}
