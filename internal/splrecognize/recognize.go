package splrecognize

import (
	"strconv"
	"strings"

	"sigmaspl/internal/profile"
	"sigmaspl/internal/queryast"
	"sigmaspl/internal/txerr"
)

// Output is the result of reversing one SPL query into Sigma.
type Output struct {
	YAML             string
	LogsourceIndex   string
	LogsourceSource  string
	Fields           []string
	CorrelationNotes []string
}

// Recognize parses spl and renders it back into a Sigma YAML document,
// reversing target field names against p's mappings (nil is allowed: no
// reversal is attempted, raw target field names are kept as-is).
func Recognize(spl string, p *profile.Profile) (Output, error) {
	index, sourcetype, rest, err := stripPreamble(spl)
	if err != nil {
		return Output{}, err
	}

	toks, err := tokenize(rest)
	if err != nil {
		return Output{}, txerr.Wrap(txerr.UnsupportedSpl, "", err)
	}

	node, consumed, err := parsePredicate(toks)
	if err != nil {
		return Output{}, txerr.Wrap(txerr.UnsupportedSpl, "", err)
	}

	out := Output{LogsourceIndex: index, LogsourceSource: sourcetype}

	tail := toks[consumed:]
	fields, notes, err := parseTrailer(tail)
	if err != nil {
		return Output{}, txerr.Wrap(txerr.UnsupportedSpl, "", err)
	}
	out.Fields = fields
	out.CorrelationNotes = append(out.CorrelationNotes, notes...)

	normalized := queryast.Normalize(node)
	inv := buildInverseIndex(p)
	sigmaNode, revNotes := reverseFields(normalized, inv)
	out.CorrelationNotes = append(out.CorrelationNotes, revNotes...)

	out.YAML = renderSigma(sigmaNode, index, sourcetype, out.Fields)
	return out, nil
}

// stripPreamble consumes the fixed "search index=X sourcetype=Y [earliest=-R]"
// prefix the emitter always produces, returning the remaining predicate text.
func stripPreamble(spl string) (index, sourcetype, rest string, err error) {
	s := strings.TrimSpace(spl)
	if strings.HasPrefix(s, "search ") {
		s = s[len("search "):]
	}
	s = strings.TrimSpace(s)

	for {
		switch {
		case strings.HasPrefix(s, "index="):
			s = s[len("index="):]
			index, s = consumeBareValue(s)
		case strings.HasPrefix(s, "sourcetype="):
			s = s[len("sourcetype="):]
			sourcetype, s = consumeBareValue(s)
		case strings.HasPrefix(s, "earliest=-"):
			s = s[len("earliest=-"):]
			_, s = consumeBareValue(s)
		default:
			return index, sourcetype, s, nil
		}
		s = strings.TrimSpace(s)
	}
}

func consumeBareValue(s string) (value, rest string) {
	i := 0
	for i < len(s) && s[i] != ' ' {
		i++
	}
	return s[:i], s[i:]
}

// parseTrailer handles the optional "| stats count by f1, f2, ..." clause,
// which sits outside the boolean predicate grammar. A backtick macro
// reference is not accepted: tokenize rejects the backtick character, so
// input carrying one fails before this function runs.
func parseTrailer(toks []token) ([]string, []string, error) {
	var notes []string
	p := &parser{toks: toks}

	if p.peek().kind == tokEOF {
		return nil, notes, nil
	}
	if p.peek().kind != tokPipe {
		notes = append(notes, "unrecognized trailing fragment after predicate, ignored")
		return nil, notes, nil
	}
	p.next()
	kw, err := p.expect(tokIdent)
	if err != nil || !strings.EqualFold(kw.text, "stats") {
		notes = append(notes, "unrecognized pipeline stage after predicate, ignored")
		return nil, notes, nil
	}
	if ident, err := p.expect(tokIdent); err != nil || !strings.EqualFold(ident.text, "count") {
		notes = append(notes, "unrecognized stats clause, ignored")
		return nil, notes, nil
	}
	if by, err := p.expect(tokIdent); err != nil || !strings.EqualFold(by.text, "by") {
		notes = append(notes, "stats clause missing 'by', ignored")
		return nil, notes, nil
	}

	var fields []string
	for {
		f, err := p.expect(tokIdent)
		if err != nil {
			return nil, notes, err
		}
		fields = append(fields, f.text)
		if p.peek().kind == tokComma {
			p.next()
			continue
		}
		break
	}
	return fields, notes, nil
}

// buildInverseIndex maps a target field back to the first sigma field
// (insertion order) that maps to it; additional sigma fields mapping to the
// same target are recorded for a correlation note.
type inverseEntry struct {
	sigmaField string
	collisions []string
}

func buildInverseIndex(p *profile.Profile) map[string]inverseEntry {
	inv := make(map[string]inverseEntry)
	if p == nil {
		return inv
	}
	for _, m := range p.Mappings {
		e, ok := inv[m.TargetField]
		if !ok {
			inv[m.TargetField] = inverseEntry{sigmaField: m.SigmaField}
			continue
		}
		e.collisions = append(e.collisions, m.SigmaField)
		inv[m.TargetField] = e
	}
	return inv
}

func reverseFields(n queryast.Node, inv map[string]inverseEntry) (queryast.Node, []string) {
	var notes []string
	var walk func(queryast.Node) queryast.Node
	walk = func(n queryast.Node) queryast.Node {
		switch v := n.(type) {
		case queryast.And:
			items := make([]queryast.Node, len(v.Items))
			for i, it := range v.Items {
				items[i] = walk(it)
			}
			return queryast.And{Items: items}
		case queryast.Or:
			items := make([]queryast.Node, len(v.Items))
			for i, it := range v.Items {
				items[i] = walk(it)
			}
			return queryast.Or{Items: items}
		case queryast.Not:
			return queryast.Not{Item: walk(v.Item)}
		case queryast.Match:
			v.Field = reverseOne(v.Field, inv, &notes)
			return v
		case queryast.Exists:
			v.Field = reverseOne(v.Field, inv, &notes)
			return v
		default:
			return n
		}
	}
	return walk(n), notes
}

func reverseOne(target string, inv map[string]inverseEntry, notes *[]string) string {
	e, ok := inv[target]
	if !ok {
		return target
	}
	if len(e.collisions) > 0 {
		*notes = append(*notes, "multiple sigma fields map to target field \""+target+
			"\"; used \""+e.sigmaField+"\" (first by insertion order), skipped "+strings.Join(e.collisions, ", "))
	}
	return e.sigmaField
}

// renderSigma renders the boolean tree into a Sigma YAML document with one
// selection per top-level OR branch (spec.md §4.9), hand-built the way
// internal/splemit builds SPL rather than through a YAML marshaler, so the
// output shape stays exactly what the spec pins.
func renderSigma(n queryast.Node, index, sourcetype string, statsFields []string) string {
	var selections [][]queryast.Node
	var condition string
	var negated []bool

	switch v := n.(type) {
	case queryast.Or:
		for _, item := range v.Items {
			neg := false
			inner := item
			if not, ok := item.(queryast.Not); ok {
				neg = true
				inner = not.Item
			}
			selections = append(selections, flattenAnd(inner))
			negated = append(negated, neg)
		}
	case queryast.Not:
		selections = append(selections, flattenAnd(v.Item))
		negated = append(negated, true)
	default:
		selections = append(selections, flattenAnd(n))
		negated = append(negated, false)
	}

	names := make([]string, len(selections))
	terms := make([]string, len(selections))
	for i := range selections {
		name := "selection"
		if i > 0 {
			name = "selection_" + strconv.Itoa(i+1)
		}
		names[i] = name
		if negated[i] {
			terms[i] = "not " + name
		} else {
			terms[i] = name
		}
	}
	if len(terms) == 1 {
		condition = terms[0]
	} else {
		condition = "1 of (" + strings.Join(terms, " or ") + ")"
	}

	var b strings.Builder
	b.WriteString("title: Reversed from SPL\n")
	b.WriteString("status: experimental\n")
	b.WriteString("level: medium\n")
	b.WriteString("logsource:\n")
	if index != "" {
		b.WriteString("  product: windows\n")
		if index != "" {
			b.WriteString("  service: " + index + "\n")
		}
	}
	if sourcetype != "" {
		b.WriteString("  definition: " + sourcetype + "\n")
	}
	b.WriteString("detection:\n")
	for i, name := range names {
		b.WriteString("  " + name + ":\n")
		for _, m := range selections[i] {
			b.WriteString("    " + renderSigmaMatch(m) + "\n")
		}
	}
	b.WriteString("  condition: " + condition + "\n")
	if len(statsFields) > 0 {
		b.WriteString("fields:\n")
		for _, f := range statsFields {
			b.WriteString("  - " + f + "\n")
		}
	}
	return b.String()
}

func flattenAnd(n queryast.Node) []queryast.Node {
	if and, ok := n.(queryast.And); ok {
		return and.Items
	}
	return []queryast.Node{n}
}

func renderSigmaMatch(n queryast.Node) string {
	switch v := n.(type) {
	case queryast.Match:
		mod := ""
		switch v.Op {
		case queryast.OpContains:
			mod = "|contains"
		case queryast.OpStartsWith:
			mod = "|startswith"
		case queryast.OpEndsWith:
			mod = "|endswith"
		case queryast.OpRegex:
			mod = "|re"
		case queryast.OpCidrIn:
			mod = "|cidr"
		}
		return v.Field + mod + ": " + v.Value.String()
	case queryast.Exists:
		return v.Field + ": null"
	default:
		return ""
	}
}
