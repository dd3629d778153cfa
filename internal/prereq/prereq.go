// Package prereq implements C6: given a rule's logsource, reporting what log
// source must be enabled to evaluate it — primarily Sysmon, with the Windows
// native audit-policy event IDs carried as an alternative — plus the channel,
// sourcetype and setup instructions needed to turn it on. The category table
// is grounded on sysmonCategoryEventMap in internal/rules/sigma_engine.go,
// extended with the Windows-native alternative table named in spec.md §4.6
// but not tabulated there.
package prereq

import "strings"

// EventIDEntry is one {id, name, source} triple, spec.md §4.6.
type EventIDEntry struct {
	ID     int
	Name   string
	Source string // e.g. "sysmon", "windows_audit"
}

// AlternativeLogSource is one additional way to produce the events a
// RequiredLogSource asks for, spec.md §4.6's AlternativeLogSource.
type AlternativeLogSource struct {
	Name              string
	Description       string
	WindowsChannel    string // optional; empty when not applicable
	SplunkSourcetype  string // optional; empty when not applicable
	EventIDs          []EventIDEntry
	SetupInstructions []string
}

// RequiredLogSource is the primary log source a category needs, with zero
// or more alternatives, spec.md §4.6.
type RequiredLogSource struct {
	Name              string
	Description       string
	WindowsChannel    string
	SplunkSourcetype  string
	EventIDs          []EventIDEntry
	SetupInstructions []string
	Alternatives      []AlternativeLogSource
}

// Requirement is the prerequisite analysis result for one logsource category.
type Requirement struct {
	Category        string
	RequiredLogs    []RequiredLogSource
	EventIDs        []int    // flattened, de-duplicated union across RequiredLogs and their alternatives
	Channels        []string // union of windows_channels across RequiredLogs and their alternatives
	HasAlternatives bool     // true iff any RequiredLog carries at least one alternative
	Notes           string
}

type categoryInfo struct {
	sysmonIDs   []int
	sysmonNames map[int]string
	auditIDs    []int
	auditNames  map[int]string
	auditChan   string
	setupSysmon string
	setupAudit  string
}

// table mirrors sysmonCategoryEventMap, extended with the 4688/4689/5156/
// 4663/4657/4656 Windows Security-log alternatives (SPEC_FULL.md §12).
var table = map[string]categoryInfo{
	"process_creation": {
		sysmonIDs:   []int{1},
		sysmonNames: map[int]string{1: "Process creation"},
		auditIDs:    []int{4688},
		auditNames:  map[int]string{4688: "A new process has been created"},
		auditChan:   "Security",
		setupSysmon: "enable Sysmon config rule for process creation (EventID 1)",
		setupAudit:  "enable \"Audit Process Creation\" and include command line via Administrative Templates",
	},
	"process_termination": {
		auditIDs:   []int{4689},
		auditNames: map[int]string{4689: "A process has exited"},
		auditChan:  "Security",
		setupAudit: "enable \"Audit Process Creation\" (process termination, 4689 is on by default when the subcategory is enabled)",
	},
	"network_connection": {
		sysmonIDs:   []int{3},
		sysmonNames: map[int]string{3: "Network connection detected"},
		auditIDs:    []int{5156},
		auditNames:  map[int]string{5156: "The Windows Filtering Platform has permitted a connection"},
		auditChan:   "Security",
		setupSysmon: "enable Sysmon config rule for network connection (EventID 3)",
		setupAudit:  "enable \"Audit Filtering Platform Connection\" (generates high volume, 5156)",
	},
	"driver_load": {
		sysmonIDs:   []int{6},
		sysmonNames: map[int]string{6: "Driver loaded"},
		setupSysmon: "enable Sysmon config rule for driver load (EventID 6)",
	},
	"image_load": {
		sysmonIDs:   []int{7},
		sysmonNames: map[int]string{7: "Image loaded"},
		setupSysmon: "enable Sysmon config rule for image load (EventID 7); high volume, scope with RuleName filters",
	},
	"create_remote_thread": {
		sysmonIDs:   []int{8},
		sysmonNames: map[int]string{8: "CreateRemoteThread detected"},
		setupSysmon: "enable Sysmon config rule for CreateRemoteThread (EventID 8)",
	},
	"process_access": {
		sysmonIDs:   []int{10},
		sysmonNames: map[int]string{10: "Process accessed"},
		setupSysmon: "enable Sysmon config rule for process access (EventID 10); scope to sensitive targets (e.g. lsass.exe) to control volume",
	},
	"file_event": {
		sysmonIDs:   []int{11},
		sysmonNames: map[int]string{11: "File created"},
		auditIDs:    []int{4663},
		auditNames:  map[int]string{4663: "An attempt was made to access an object"},
		auditChan:   "Security",
		setupSysmon: "enable Sysmon config rule for file create (EventID 11)",
		setupAudit:  "enable \"Audit File System\" plus a SACL on the target path (4663)",
	},
	"file_create": {
		sysmonIDs:   []int{11},
		sysmonNames: map[int]string{11: "File created"},
		setupSysmon: "enable Sysmon config rule for file create (EventID 11)",
	},
	"registry_event": {
		sysmonIDs:   []int{12, 13, 14},
		sysmonNames: map[int]string{12: "Registry object added or deleted", 13: "Registry value set", 14: "Registry object renamed"},
		auditIDs:    []int{4657, 4656},
		auditNames:  map[int]string{4657: "A registry value was modified", 4656: "A handle to an object was requested"},
		auditChan:   "Security",
		setupSysmon: "enable Sysmon config rules for registry add/delete/set/rename (EventIDs 12-14)",
		setupAudit:  "enable \"Audit Registry\" plus a SACL on the target key (4657 value change, 4656 handle request)",
	},
	"dns_query": {
		sysmonIDs:   []int{22},
		sysmonNames: map[int]string{22: "DNS query"},
		setupSysmon: "enable Sysmon config rule for DNS query (EventID 22); requires Sysmon 10+",
	},
}

const sysmonChannel = "Microsoft-Windows-Sysmon/Operational"

// Analyze returns the prerequisite requirement for a logsource category.
// An unrecognized category yields a Requirement with no RequiredLogs and a
// note asking the caller to supply setup guidance manually — this is not an
// error, since spec.md §4.6 treats unknown categories as informational gaps,
// not translation failures.
func Analyze(category string) Requirement {
	key := strings.ToLower(strings.TrimSpace(category))
	info, ok := table[key]
	if !ok {
		return Requirement{
			Category: category,
			Notes:    "no known Sysmon or Windows audit-policy mapping for this category; verify log source manually",
		}
	}

	req := Requirement{Category: category}
	var primary *RequiredLogSource
	if len(info.sysmonIDs) > 0 {
		primary = &RequiredLogSource{
			Name:              "sysmon",
			Description:       "Sysmon Operational log covering " + key,
			WindowsChannel:    sysmonChannel,
			EventIDs:          eventIDEntries(info.sysmonIDs, info.sysmonNames, "sysmon"),
			SetupInstructions: setupLines(info.setupSysmon),
		}
	}
	var auditAlt *AlternativeLogSource
	if len(info.auditIDs) > 0 {
		auditAlt = &AlternativeLogSource{
			Name:              "windows_audit",
			Description:       "Windows Security audit log covering " + key,
			WindowsChannel:    info.auditChan,
			EventIDs:          eventIDEntries(info.auditIDs, info.auditNames, "windows_audit"),
			SetupInstructions: setupLines(info.setupAudit),
		}
	}

	switch {
	case primary != nil && auditAlt != nil:
		primary.Alternatives = []AlternativeLogSource{*auditAlt}
		req.RequiredLogs = []RequiredLogSource{*primary}
	case primary != nil:
		req.RequiredLogs = []RequiredLogSource{*primary}
	case auditAlt != nil:
		// No Sysmon path exists for this category; the audit source is the
		// only option, so it becomes the RequiredLog itself rather than an
		// alternative with nothing to be an alternative to.
		req.RequiredLogs = []RequiredLogSource{{
			Name:              auditAlt.Name,
			Description:       auditAlt.Description,
			WindowsChannel:    auditAlt.WindowsChannel,
			EventIDs:          auditAlt.EventIDs,
			SetupInstructions: auditAlt.SetupInstructions,
		}}
	default:
		req.Notes = "category recognized but carries no known event-ID mapping"
	}

	req.EventIDs, req.Channels = aggregate(req.RequiredLogs)
	req.HasAlternatives = hasAlternatives(req.RequiredLogs)
	return req
}

func eventIDEntries(ids []int, names map[int]string, source string) []EventIDEntry {
	out := make([]EventIDEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, EventIDEntry{ID: id, Name: names[id], Source: source})
	}
	return out
}

func setupLines(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func hasAlternatives(logs []RequiredLogSource) bool {
	for _, l := range logs {
		if len(l.Alternatives) > 0 {
			return true
		}
	}
	return false
}

// aggregate flattens and de-duplicates event IDs and unions channels across
// every RequiredLogSource and its alternatives (spec.md §4.6's top-level
// event_ids and channels fields).
func aggregate(logs []RequiredLogSource) ([]int, []string) {
	seenIDs := map[int]bool{}
	var ids []int
	seenChans := map[string]bool{}
	var channels []string

	addIDs := func(entries []EventIDEntry) {
		for _, e := range entries {
			if !seenIDs[e.ID] {
				seenIDs[e.ID] = true
				ids = append(ids, e.ID)
			}
		}
	}
	addChan := func(ch string) {
		if ch != "" && !seenChans[ch] {
			seenChans[ch] = true
			channels = append(channels, ch)
		}
	}

	for _, l := range logs {
		addIDs(l.EventIDs)
		addChan(l.WindowsChannel)
		for _, alt := range l.Alternatives {
			addIDs(alt.EventIDs)
			addChan(alt.WindowsChannel)
		}
	}
	return ids, channels
}
