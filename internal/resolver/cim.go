package resolver

import "strings"

// cimTable maps (logsource category, sigma field) to a Splunk CIM field
// name. Keys are lower-cased category names; field lookups inside each
// category map are case-sensitive on the original Sigma field name, per the
// field tables enumerated in SPEC_FULL.md §12.
var cimTable = map[string]map[string]string{
	"process_creation": {
		"Image":             "process_path",
		"CommandLine":       "process",
		"ParentImage":       "parent_process_path",
		"ParentCommandLine": "parent_process",
		"User":              "user",
		"ComputerName":      "dest",
		"ProcessId":         "process_id",
		"ParentProcessId":   "parent_process_id",
		"ProcessGuid":       "process_guid",
	},
	"network_connection": {
		"DestinationIp":     "dest_ip",
		"DestinationPort":   "dest_port",
		"SourceIp":          "src_ip",
		"SourcePort":        "src_port",
		"Protocol":          "transport",
		"Image":             "process_path",
		"User":              "user",
		"Initiated":         "direction",
		"DestinationIsIpv6": "dest_is_ipv6",
	},
	"file_event": {
		"TargetFilename": "file_path",
		"Image":          "process_path",
		"User":           "user",
	},
	"registry_event": {
		"TargetObject": "registry_path",
		"Details":      "registry_value_name",
		"Image":        "process_path",
	},
	"dns_query": {
		"QueryName":   "query",
		"QueryResult": "answer",
		"Image":       "process_path",
	},
	"image_load": {
		"ImageLoaded": "dll_path",
		"Image":       "process_path",
		"Signed":      "signed",
	},
}

func cimLookup(category, sigmaField string) (string, bool) {
	table, ok := cimTable[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return "", false
	}
	target, ok := table[sigmaField]
	return target, ok
}

// windowsProcessCreationDefaults is the built-in default table consulted
// when no profile mapping and no CIM hit apply (spec.md §4.3 step 3). It is
// deliberately identity-preserving: these are the Windows process-creation
// field names Sigma rules already use verbatim (Image, CommandLine, ...),
// so "resolving" them just confirms they're recognized and marks the
// result `suggested` rather than falling all the way through to `missing`
// (SPEC_FULL.md §12; spec.md's S1 seed scenario emits `CommandLine`
// unchanged with no profile configured, which only holds if this table is
// identity, not a CIM rename — CIM renames belong to step 2, gated on
// profile.CimEnabled).
var windowsProcessCreationDefaults = map[string]struct{}{
	"Image":        {},
	"CommandLine":  {},
	"ParentImage":  {},
	"User":         {},
	"ComputerName": {},
	"EventID":      {},
}
