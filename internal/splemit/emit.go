// Package splemit implements C5: rendering the boolean query AST plus
// preamble (index/sourcetype/time) and postamble (stats, health checks)
// into SPL text. Quoting and escaping are bit-exact by contract (spec.md
// §4.5): this package builds strings directly with strings.Builder, the
// way the teacher's output writers (internal/output/*/writer.go) build
// wire payloads by hand rather than through a templating layer.
package splemit

import (
	"sort"
	"strings"

	"sigmaspl/internal/profile"
	"sigmaspl/internal/queryast"
	"sigmaspl/internal/sigmaast"
)

// Overrides are caller-supplied values that win over profile and
// logsource-derived defaults.
type Overrides struct {
	Index      string
	Sourcetype string
	TimeRange  string
}

// Input bundles everything the emitter needs for one rendering.
type Input struct {
	Logsource    sigmaast.Logsource
	Profile      *profile.Profile
	Node         queryast.Node
	ResolvedFields []string
	Overrides    Overrides
	HealthChecks []string
}

var defaultStatsFields = []string{"_time", "host", "user", "process", "CommandLine"}

// Emit renders the full SPL text for one translation.
func Emit(in Input) string {
	var b strings.Builder
	b.WriteString(preamble(in))
	if in.Node != nil {
		b.WriteString(" ")
		b.WriteString(renderPredicate(in.Node))
	}
	b.WriteString(postamble(in))
	for _, check := range in.HealthChecks {
		b.WriteString("\n### ")
		b.WriteString(check)
	}
	return b.String()
}

func preamble(in Input) string {
	idx := in.Overrides.Index
	if idx == "" && in.Profile != nil {
		idx = in.Profile.DefaultIndex
	}
	if idx == "" {
		idx = logsourceDefaultIndex(in.Logsource)
	}

	st := in.Overrides.Sourcetype
	if st == "" && in.Profile != nil {
		st = in.Profile.DefaultSourcetype
	}
	if st == "" {
		st = logsourceDefaultSourcetype(in.Logsource)
	}

	var b strings.Builder
	b.WriteString("search index=")
	b.WriteString(idx)
	if st != "" {
		b.WriteString(" sourcetype=")
		b.WriteString(st)
	}
	if in.Overrides.TimeRange != "" {
		b.WriteString(" earliest=-")
		b.WriteString(in.Overrides.TimeRange)
	}
	return b.String()
}

func logsourceDefaultIndex(ls sigmaast.Logsource) string {
	if strings.EqualFold(ls.Product, "windows") {
		return "wineventlog"
	}
	return "main"
}

func logsourceDefaultSourcetype(ls sigmaast.Logsource) string {
	if strings.EqualFold(ls.Product, "windows") {
		return "WinEventLog:*"
	}
	return ""
}

func postamble(in Input) string {
	fields := statsFields(in.ResolvedFields)
	var b strings.Builder
	b.WriteString(" | stats count by ")
	b.WriteString(strings.Join(fields, ", "))

	if in.Profile != nil && in.Profile.Macros != nil {
		if _, ok := in.Profile.Macros[in.Logsource.Category]; ok {
			b.WriteString(" `")
			b.WriteString(in.Logsource.Category)
			b.WriteString("`")
		}
	}
	return b.String()
}

// statsFields filters the default stats field list down to the fields this
// rule actually resolved, falling back to the full default list when none
// of it was resolved (spec.md §4.5 point 3).
func statsFields(resolved []string) []string {
	if len(resolved) == 0 {
		return defaultStatsFields
	}
	set := make(map[string]bool, len(resolved))
	for _, f := range resolved {
		set[f] = true
	}
	var out []string
	for _, f := range defaultStatsFields {
		if set[f] {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return defaultStatsFields
	}
	return out
}

// renderPredicate renders the top-level boolean tree. A top-level And is
// the one case that collapses to SPL's implicit-AND space-separated form
// (spec.md §4.5 point 2); everything else always parenthesizes.
func renderPredicate(n queryast.Node) string {
	if and, ok := n.(queryast.And); ok {
		parts := make([]string, len(and.Items))
		for i, item := range and.Items {
			parts[i] = renderChild(item)
		}
		return strings.Join(parts, " ")
	}
	return renderChild(n)
}

func renderChild(n queryast.Node) string {
	switch v := n.(type) {
	case queryast.And:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = renderChild(item)
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	case queryast.Or:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = renderChild(item)
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	case queryast.Not:
		return "NOT (" + renderChild(v.Item) + ")"
	case queryast.Match:
		return renderMatch(v)
	case queryast.Exists:
		return v.Field + "=*"
	default:
		return ""
	}
}

func renderMatch(m queryast.Match) string {
	switch m.Op {
	case queryast.OpEquals:
		return m.Field + "=" + quote(m.Value.String())
	case queryast.OpContains:
		return m.Field + "=" + quote("*"+m.Value.String()+"*")
	case queryast.OpStartsWith:
		return m.Field + "=" + quote(m.Value.String()+"*")
	case queryast.OpEndsWith:
		return m.Field + "=" + quote("*"+m.Value.String())
	case queryast.OpRegex:
		return "| regex " + m.Field + "=" + quote(m.Value.String())
	case queryast.OpCidrIn:
		return "| where cidrmatch(" + quote(m.Value.String()) + ", " + m.Field + ")"
	case queryast.OpLt:
		return "| where " + m.Field + " < " + m.Value.String()
	case queryast.OpLte:
		return "| where " + m.Field + " <= " + m.Value.String()
	case queryast.OpGt:
		return "| where " + m.Field + " > " + m.Value.String()
	case queryast.OpGte:
		return "| where " + m.Field + " >= " + m.Value.String()
	default:
		return m.Field + "=" + quote(m.Value.String())
	}
}

// quote escapes a string for an SPL double-quoted literal: backslash first,
// then the quote character itself, so escaping never double-applies
// (spec.md §4.5: `"` -> `\"`, `\` -> `\\`).
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// sortStrings returns a sorted copy of ss, leaving ss itself untouched;
// tests use it to build ResolvedFields in a stable order.
func sortStrings(ss []string) []string {
	out := append([]string(nil), ss...)
	sort.Strings(out)
	return out
}
