// Package condition implements C4: lowering a Sigma detection block
// (selections + condition expression) into the normalized boolean
// queryast.Node tree the SPL emitter and reverse recognizer share.
package condition

import (
	"fmt"

	"sigmaspl/internal/queryast"
	"sigmaspl/internal/resolver"
	"sigmaspl/internal/sigmaast"
	"sigmaspl/internal/txerr"
)

// FieldOccurrence records one resolved field reference encountered while
// compiling a rule, for the gap analyzer (C7) and prerequisite analyzer
// (C6) to consume without re-walking the Sigma AST themselves.
type FieldOccurrence struct {
	SigmaField string
	Location   string
	Result     resolver.Result
}

// Compile lowers rule.Detection into a boolean query AST, using res to
// resolve every field it encounters. It returns every field occurrence
// (including duplicates — the gap analyzer decides how to dedupe, per
// spec.md §8 invariant 3: "one GapItem" per occurrence, not per node).
func Compile(rule *sigmaast.Rule, res *resolver.Resolver) (queryast.Node, []FieldOccurrence, error) {
	if rule.Detection.ConditionText == "" {
		return nil, nil, txerr.New(txerr.InvalidSigma, "detection.condition", "condition is required")
	}
	if len(rule.Detection.Selections) == 0 {
		return nil, nil, txerr.New(txerr.InvalidSigma, "detection", "at least one selection is required")
	}

	names := make([]string, len(rule.Detection.Selections))
	for i, s := range rule.Detection.Selections {
		names[i] = s.Name
	}

	raw, err := parseCondition(rule.Detection.ConditionText)
	if err != nil {
		return nil, nil, err
	}
	expanded, err := expandQuantifiers(raw, names)
	if err != nil {
		return nil, nil, err
	}

	c := &compiler{rule: rule, res: res}
	node, err := c.compileSelExpr(expanded)
	if err != nil {
		return nil, nil, err
	}
	return node, c.occurrences, nil
}

type compiler struct {
	rule        *sigmaast.Rule
	res         *resolver.Resolver
	occurrences []FieldOccurrence
}

func (c *compiler) compileSelExpr(node selExpr) (queryast.Node, error) {
	switch v := node.(type) {
	case selAnd:
		items := make([]queryast.Node, len(v.items))
		for i, item := range v.items {
			n, err := c.compileSelExpr(item)
			if err != nil {
				return nil, err
			}
			items[i] = n
		}
		return queryast.And{Items: items}, nil
	case selOr:
		items := make([]queryast.Node, len(v.items))
		for i, item := range v.items {
			n, err := c.compileSelExpr(item)
			if err != nil {
				return nil, err
			}
			items[i] = n
		}
		return queryast.Or{Items: items}, nil
	case selNot:
		inner, err := c.compileSelExpr(v.item)
		if err != nil {
			return nil, err
		}
		return queryast.Not{Item: inner}, nil
	case selRef:
		sel, ok := c.rule.Detection.Selection(v.name)
		if !ok {
			return nil, txerr.New(txerr.UnresolvedSelection, "detection.condition", fmt.Sprintf("selection %q is not defined", v.name))
		}
		return c.compileSelection(sel)
	default:
		return nil, txerr.New(txerr.Internal, "condition", "unknown selection-expression node")
	}
}

// compileSelection lowers one Selection: its Alternatives are OR'd
// together (list form), and within an alternative every field match is
// AND'd (spec.md §4.1: "a selection value that is a mapping is an implicit
// AND ...; a list is an implicit OR ... each of which is itself an AND
// mapping").
func (c *compiler) compileSelection(sel sigmaast.Selection) (queryast.Node, error) {
	if len(sel.Alternatives) == 0 {
		return nil, txerr.New(txerr.InvalidSigma, "detection."+sel.Name, "selection has no entries")
	}

	altNodes := make([]queryast.Node, 0, len(sel.Alternatives))
	for _, alt := range sel.Alternatives {
		if len(alt.Matches) == 0 {
			return nil, txerr.New(txerr.InvalidSigma, "detection."+sel.Name, "selection alternative has no field matches")
		}
		matchNodes := make([]queryast.Node, len(alt.Matches))
		for i, fm := range alt.Matches {
			node, err := c.compileFieldMatch(sel.Name, fm)
			if err != nil {
				return nil, err
			}
			matchNodes[i] = node
		}
		if len(matchNodes) == 1 {
			altNodes = append(altNodes, matchNodes[0])
		} else {
			altNodes = append(altNodes, queryast.And{Items: matchNodes})
		}
	}

	if len(altNodes) == 1 {
		return altNodes[0], nil
	}
	return queryast.Or{Items: altNodes}, nil
}

func (c *compiler) compileFieldMatch(selectionName string, fm sigmaast.FieldMatch) (queryast.Node, error) {
	for _, m := range fm.Field.Modifiers {
		if _, ok := sigmaast.ParseModifier(string(m)); !ok {
			return nil, txerr.New(txerr.UnknownModifier, "detection."+selectionName+"."+fm.Field.Name, fmt.Sprintf("unknown modifier %q", m))
		}
	}

	location := "detection." + selectionName + "." + fm.Field.Name
	result := c.res.Resolve(fm.Field.Name)
	c.occurrences = append(c.occurrences, FieldOccurrence{
		SigmaField: fm.Field.Name,
		Location:   location,
		Result:     result,
	})

	return buildFieldNode(result.TargetField, fm.Field.Modifiers, fm.Value)
}
