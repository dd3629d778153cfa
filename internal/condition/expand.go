package condition

import (
	"fmt"
	"strings"

	"sigmaspl/internal/txerr"
)

// expandQuantifiers rewrites every quantifierRef in the tree into a
// concrete selOr ("1 of X") or selAnd ("all of X") over the selection names
// that match X, per spec.md §4.1: "1 of X expands to an OR over every
// selection whose name matches X (as exact name or, if X ends in *, as
// prefix match); all of X expands to AND. X = them matches every
// selection."
func expandQuantifiers(node selExpr, selectionNames []string) (selExpr, error) {
	switch v := node.(type) {
	case selAnd:
		items := make([]selExpr, len(v.items))
		for i, item := range v.items {
			expanded, err := expandQuantifiers(item, selectionNames)
			if err != nil {
				return nil, err
			}
			items[i] = expanded
		}
		return selAnd{items: items}, nil
	case selOr:
		items := make([]selExpr, len(v.items))
		for i, item := range v.items {
			expanded, err := expandQuantifiers(item, selectionNames)
			if err != nil {
				return nil, err
			}
			items[i] = expanded
		}
		return selOr{items: items}, nil
	case selNot:
		inner, err := expandQuantifiers(v.item, selectionNames)
		if err != nil {
			return nil, err
		}
		return selNot{item: inner}, nil
	case quantifierRef:
		matches := matchingSelections(v.pattern, selectionNames)
		if len(matches) == 0 {
			return nil, txerr.New(txerr.UnresolvedSelection, "condition", fmt.Sprintf("no selection matches %q", v.pattern))
		}
		refs := make([]selExpr, len(matches))
		for i, name := range matches {
			refs[i] = selRef{name: name}
		}
		if len(refs) == 1 {
			return refs[0], nil
		}
		if v.all {
			return selAnd{items: refs}, nil
		}
		return selOr{items: refs}, nil
	case selRef:
		return v, nil
	default:
		return nil, txerr.New(txerr.Internal, "condition", "unknown selection-expression node")
	}
}

func matchingSelections(pattern string, names []string) []string {
	if strings.EqualFold(pattern, "them") {
		out := make([]string, len(names))
		copy(out, names)
		return out
	}
	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		var out []string
		for _, n := range names {
			if strings.HasPrefix(n, prefix) {
				out = append(out, n)
			}
		}
		return out
	}
	for _, n := range names {
		if n == pattern {
			return []string{n}
		}
	}
	return nil
}
