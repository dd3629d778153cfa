// Package sigmaast is the typed, closed representation of a Sigma rule.
// Nothing downstream of the loader (internal/sigmaparse) ever touches the
// raw YAML document again; every component from the condition compiler on
// operates on these types only.
package sigmaast

// Level is the rule severity as published by the Sigma spec.
type Level string

const (
	LevelInformational Level = "informational"
	LevelLow           Level = "low"
	LevelMedium        Level = "medium"
	LevelHigh          Level = "high"
	LevelCritical      Level = "critical"
)

// Modifier is one recognized field-with-modifier suffix. Order in a
// FieldRef's Modifiers slice is preserved and semantically significant.
type Modifier string

const (
	ModContains     Modifier = "contains"
	ModStartsWith   Modifier = "startswith"
	ModEndsWith     Modifier = "endswith"
	ModRegex        Modifier = "re"
	ModCidr         Modifier = "cidr"
	ModBase64       Modifier = "base64"
	ModBase64Offset Modifier = "base64offset"
	ModWide         Modifier = "wide"
	ModUtf16        Modifier = "utf16"
	ModAll          Modifier = "all"
	ModLt           Modifier = "lt"
	ModLte          Modifier = "lte"
	ModGt           Modifier = "gt"
	ModGte          Modifier = "gte"
	ModCased        Modifier = "cased"
)

var knownModifiers = map[string]Modifier{
	string(ModContains):     ModContains,
	string(ModStartsWith):   ModStartsWith,
	string(ModEndsWith):     ModEndsWith,
	string(ModRegex):        ModRegex,
	string(ModCidr):         ModCidr,
	string(ModBase64):       ModBase64,
	string(ModBase64Offset): ModBase64Offset,
	string(ModWide):         ModWide,
	string(ModUtf16):        ModUtf16,
	string(ModAll):          ModAll,
	string(ModLt):           ModLt,
	string(ModLte):          ModLte,
	string(ModGt):           ModGt,
	string(ModGte):          ModGte,
	string(ModCased):        ModCased,
}

// ParseModifier looks up a modifier token, reporting false for anything not
// in the recognized set (callers turn that into UnknownModifier).
func ParseModifier(token string) (Modifier, bool) {
	m, ok := knownModifiers[token]
	return m, ok
}

// FieldRef is a field name with its ordered modifier chain, e.g.
// "CommandLine|base64|contains".
type FieldRef struct {
	Name      string
	Modifiers []Modifier
}

// HasModifier reports whether m appears anywhere in the chain.
func (f FieldRef) HasModifier(m Modifier) bool {
	for _, existing := range f.Modifiers {
		if existing == m {
			return true
		}
	}
	return false
}

// Value holds a parsed Sigma value: nil, bool, int64, float64, string, or
// []Value for a list. Callers type-switch on it.
type Value interface{}

// FieldMatch is one "field|modifiers: value" entry inside a selection
// mapping.
type FieldMatch struct {
	Field FieldRef
	Value Value
}

// SelectionAlternative is one implicit-AND group of field matches — either
// the sole mapping of a selection, or one element of a selection's list
// form.
type SelectionAlternative struct {
	Matches []FieldMatch
}

// Selection is a named detection entry. Multiple Alternatives are
// implicitly OR'd (list form); a single Alternative is the plain-mapping
// form.
type Selection struct {
	Name         string
	Alternatives []SelectionAlternative
}

// Logsource narrows which event stream a rule applies to. At least one
// field is populated; any may be empty.
type Logsource struct {
	Product    string
	Service    string
	Category   string
	Definition string
}

// Detection is the selections plus the raw condition expression text; the
// condition compiler (internal/condition) parses ConditionText separately
// so the grammar stays a small, hand-written, testable unit.
type Detection struct {
	Selections    []Selection
	ConditionText string
}

// Selection looks up a selection by name, preserving the "not found" signal
// the condition compiler needs to raise UnresolvedSelection.
func (d Detection) Selection(name string) (Selection, bool) {
	for _, s := range d.Selections {
		if s.Name == name {
			return s, true
		}
	}
	return Selection{}, false
}

// Rule is a fully parsed and validated Sigma detection rule.
type Rule struct {
	ID             string
	Title          string
	Description    string
	Level          Level
	Status         string
	Author         string
	Date           string
	References     []string
	Tags           []string
	Logsource      Logsource
	Detection      Detection
	Fields         []string
	FalsePositives []string
}
