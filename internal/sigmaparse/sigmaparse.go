// Package sigmaparse implements C1: loading Sigma YAML text into the
// closed sigmaast.Rule type. Per the "Dynamic YAML" design note, a Sigma
// document is decoded as a generic yaml.Node tree first — selections are a
// genuinely heterogeneous mapping (values can be scalars, lists, or nested
// maps) — and projected onto the typed AST, rejecting anything malformed so
// every component downstream operates on closed types.
//
// bradleyjkemp/sigma-go's ParseRule is used as a narrow, non-fatal
// cross-validation pass limited to the fields internal/rules/sigma_engine.go
// already proves safe to touch (id, title, level, tags, logsource,
// detection.timeframe, detection.conditions[].aggregation). It never gates
// this package's own parse result — a mismatch becomes a warning, not an
// error, since this package's own projection is authoritative.
package sigmaparse

import (
	"fmt"
	"strconv"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
	"gopkg.in/yaml.v3"

	"sigmaspl/internal/sigmaast"
	"sigmaspl/internal/txerr"
)

// Result is the outcome of loading one Sigma rule: the parsed rule plus any
// non-fatal warnings surfaced along the way (unknown top-level keys, sigma-go
// cross-validation mismatches).
type Result struct {
	Rule     sigmaast.Rule
	Warnings []string
}

var knownTopLevelKeys = map[string]bool{
	"id": true, "title": true, "description": true, "status": true,
	"level": true, "author": true, "date": true, "modified": true,
	"references": true, "tags": true, "logsource": true, "detection": true,
	"fields": true, "falsepositives": true, "related": true, "name": true,
}

// Parse decodes one Sigma YAML document into sigmaast.Rule.
func Parse(raw []byte) (Result, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Result{}, txerr.Wrap(txerr.InvalidYaml, "root", err)
	}
	if len(doc.Content) == 0 {
		return Result{}, txerr.New(txerr.InvalidYaml, "root", "empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return Result{}, txerr.New(txerr.InvalidYaml, "root", "top-level document must be a mapping")
	}

	var res Result
	rule := sigmaast.Rule{}

	fields := mappingFields(root)
	for _, key := range fields.order {
		if !knownTopLevelKeys[key] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("unknown top-level key %q ignored", key))
		}
	}

	rule.ID = scalarOr(fields.nodes["id"], "")
	rule.Title = scalarOr(fields.nodes["title"], "")
	rule.Description = scalarOr(fields.nodes["description"], "")
	rule.Status = scalarOr(fields.nodes["status"], "")
	rule.Author = scalarOr(fields.nodes["author"], "")
	rule.Date = scalarOr(fields.nodes["date"], "")
	rule.Level = sigmaast.Level(strings.ToLower(strings.TrimSpace(scalarOr(fields.nodes["level"], ""))))

	if n, ok := fields.nodes["references"]; ok {
		refs, err := scalarSequence(n)
		if err != nil {
			return Result{}, txerr.Wrap(txerr.InvalidYaml, "references", err)
		}
		rule.References = refs
	}
	if n, ok := fields.nodes["tags"]; ok {
		tags, err := scalarSequence(n)
		if err != nil {
			return Result{}, txerr.Wrap(txerr.InvalidYaml, "tags", err)
		}
		rule.Tags = tags
	}
	if n, ok := fields.nodes["fields"]; ok {
		fs, err := scalarSequence(n)
		if err != nil {
			return Result{}, txerr.Wrap(txerr.InvalidYaml, "fields", err)
		}
		rule.Fields = fs
	}
	if n, ok := fields.nodes["falsepositives"]; ok {
		fps, err := scalarSequence(n)
		if err != nil {
			return Result{}, txerr.Wrap(txerr.InvalidYaml, "falsepositives", err)
		}
		rule.FalsePositives = fps
	}

	lsNode, ok := fields.nodes["logsource"]
	if !ok {
		return Result{}, txerr.New(txerr.InvalidSigma, "logsource", "logsource is required")
	}
	ls, err := parseLogsource(lsNode)
	if err != nil {
		return Result{}, err
	}
	rule.Logsource = ls

	detNode, ok := fields.nodes["detection"]
	if !ok {
		return Result{}, txerr.New(txerr.InvalidSigma, "detection", "detection is required")
	}
	det, err := parseDetection(detNode)
	if err != nil {
		return Result{}, err
	}
	rule.Detection = det

	if rule.Title == "" {
		return Result{}, txerr.New(txerr.InvalidSigma, "title", "title is required")
	}
	if rule.Detection.ConditionText == "" {
		return Result{}, txerr.New(txerr.InvalidSigma, "detection.condition", "condition is required")
	}

	res.Rule = rule
	res.Warnings = append(res.Warnings, crossValidate(raw, rule)...)
	return res, nil
}

type orderedFields struct {
	order []string
	nodes map[string]*yaml.Node
}

func mappingFields(n *yaml.Node) orderedFields {
	of := orderedFields{nodes: make(map[string]*yaml.Node)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		of.order = append(of.order, key)
		of.nodes[key] = n.Content[i+1]
	}
	return of
}

func scalarOr(n *yaml.Node, def string) string {
	if n == nil || n.Kind != yaml.ScalarNode {
		return def
	}
	return n.Value
}

func scalarSequence(n *yaml.Node) ([]string, error) {
	if n.Kind == yaml.ScalarNode {
		return []string{n.Value}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected a scalar or a list")
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("expected a list of scalars")
		}
		out = append(out, item.Value)
	}
	return out, nil
}

func parseLogsource(n *yaml.Node) (sigmaast.Logsource, error) {
	if n.Kind != yaml.MappingNode {
		return sigmaast.Logsource{}, txerr.New(txerr.InvalidSigma, "logsource", "logsource must be a mapping")
	}
	of := mappingFields(n)
	ls := sigmaast.Logsource{
		Product:    scalarOr(of.nodes["product"], ""),
		Service:    scalarOr(of.nodes["service"], ""),
		Category:   scalarOr(of.nodes["category"], ""),
		Definition: scalarOr(of.nodes["definition"], ""),
	}
	if ls.Product == "" && ls.Service == "" && ls.Category == "" && ls.Definition == "" {
		return sigmaast.Logsource{}, txerr.New(txerr.InvalidSigma, "logsource", "at least one of product/service/category/definition is required")
	}
	return ls, nil
}

func parseDetection(n *yaml.Node) (sigmaast.Detection, error) {
	if n.Kind != yaml.MappingNode {
		return sigmaast.Detection{}, txerr.New(txerr.InvalidSigma, "detection", "detection must be a mapping")
	}
	of := mappingFields(n)

	det := sigmaast.Detection{}
	for _, key := range of.order {
		if key == "condition" {
			cond, err := scalarSequence(of.nodes[key])
			if err != nil || len(cond) == 0 {
				return sigmaast.Detection{}, txerr.New(txerr.InvalidSigma, "detection.condition", "condition must be a string")
			}
			det.ConditionText = strings.Join(cond, " ")
			continue
		}
		if key == "timeframe" {
			continue
		}
		sel, err := parseSelection(key, of.nodes[key])
		if err != nil {
			return sigmaast.Detection{}, err
		}
		det.Selections = append(det.Selections, sel)
	}
	return det, nil
}

func parseSelection(name string, n *yaml.Node) (sigmaast.Selection, error) {
	sel := sigmaast.Selection{Name: name}
	switch n.Kind {
	case yaml.MappingNode:
		alt, err := parseAlternative(name, n)
		if err != nil {
			return sigmaast.Selection{}, err
		}
		sel.Alternatives = []sigmaast.SelectionAlternative{alt}
	case yaml.SequenceNode:
		for _, item := range n.Content {
			switch item.Kind {
			case yaml.MappingNode:
				alt, err := parseAlternative(name, item)
				if err != nil {
					return sigmaast.Selection{}, err
				}
				sel.Alternatives = append(sel.Alternatives, alt)
			case yaml.ScalarNode:
				// Bare list form ("keywords" search) is not a field match;
				// model it as an Exists-style single match against a
				// synthetic "keyword" sigma field so the compiler still has
				// a FieldMatch to resolve and flag as a gap.
				sel.Alternatives = append(sel.Alternatives, sigmaast.SelectionAlternative{
					Matches: []sigmaast.FieldMatch{{
						Field: sigmaast.FieldRef{Name: "keyword"},
						Value: scalarValue(item),
					}},
				})
			default:
				return sigmaast.Selection{}, txerr.New(txerr.InvalidSigma, "detection."+name, "unsupported selection list entry")
			}
		}
	default:
		return sigmaast.Selection{}, txerr.New(txerr.InvalidSigma, "detection."+name, "selection must be a mapping or a list")
	}
	return sel, nil
}

func parseAlternative(selName string, n *yaml.Node) (sigmaast.SelectionAlternative, error) {
	of := mappingFields(n)
	alt := sigmaast.SelectionAlternative{}
	for _, rawKey := range of.order {
		fieldRef := parseFieldRef(rawKey)
		value, err := parseValue(of.nodes[rawKey])
		if err != nil {
			return sigmaast.SelectionAlternative{}, txerr.Wrap(txerr.InvalidSigma, "detection."+selName+"."+fieldRef.Name, err)
		}
		alt.Matches = append(alt.Matches, sigmaast.FieldMatch{Field: fieldRef, Value: value})
	}
	return alt, nil
}

func parseFieldRef(rawKey string) sigmaast.FieldRef {
	parts := strings.Split(rawKey, "|")
	ref := sigmaast.FieldRef{Name: parts[0]}
	for _, m := range parts[1:] {
		ref.Modifiers = append(ref.Modifiers, sigmaast.Modifier(m))
	}
	return ref
}

func parseValue(n *yaml.Node) (sigmaast.Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return scalarValue(n), nil
	case yaml.SequenceNode:
		out := make([]sigmaast.Value, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("list values must be scalars")
			}
			out = append(out, scalarValue(item))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value shape")
	}
}

func scalarValue(n *yaml.Node) sigmaast.Value {
	if n.Tag == "!!null" {
		return nil
	}
	if n.Tag == "!!bool" {
		b, _ := strconv.ParseBool(n.Value)
		return b
	}
	if n.Tag == "!!int" {
		i, err := strconv.ParseInt(n.Value, 10, 64)
		if err == nil {
			return i
		}
	}
	if n.Tag == "!!float" {
		f, err := strconv.ParseFloat(n.Value, 64)
		if err == nil {
			return f
		}
	}
	return n.Value
}

// crossValidate re-parses raw with bradleyjkemp/sigma-go and compares the
// handful of fields internal/rules/sigma_engine.go already proves safe to
// read. Any mismatch or parse failure becomes a warning; it never fails the
// load, since this package's own projection above is authoritative.
func crossValidate(raw []byte, rule sigmaast.Rule) []string {
	var warnings []string
	sr, err := sigma.ParseRule(raw)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("sigma-go cross-validation parse failed: %v", err))
		return warnings
	}

	if strings.TrimSpace(sr.Title) != rule.Title {
		warnings = append(warnings, "sigma-go cross-validation: title mismatch")
	}
	if !strings.EqualFold(sr.Logsource.Product, rule.Logsource.Product) {
		warnings = append(warnings, "sigma-go cross-validation: logsource.product mismatch")
	}
	if !strings.EqualFold(sr.Logsource.Category, rule.Logsource.Category) {
		warnings = append(warnings, "sigma-go cross-validation: logsource.category mismatch")
	}
	if sr.Detection.Timeframe > 0 {
		warnings = append(warnings, "sigma-go reports a detection.timeframe; aggregation-over-time semantics are not modeled by this translator")
	}
	for _, cond := range sr.Detection.Conditions {
		if cond.Aggregation != nil {
			warnings = append(warnings, "sigma-go reports an aggregation condition; count()/near aggregation is not modeled by this translator")
			break
		}
	}
	return warnings
}
