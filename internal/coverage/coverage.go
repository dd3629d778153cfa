// Package coverage implements C8: comparing a rule's required event IDs
// and audit subcategories against the active Sysmon and Windows-audit
// configuration, producing a coverage report with remediation
// recommendations (spec.md §4.8).
package coverage

import "fmt"

// SysmonConfig is the persisted, possibly-absent active Sysmon
// configuration (spec.md §3 "Sysmon config").
type SysmonConfig struct {
	IsActive        bool
	EnabledEventIDs map[int]bool
}

// AuditConfig is the persisted, possibly-absent active Windows audit-policy
// configuration. Subcategories are keyed by name (e.g. "process_creation",
// "registry").
type AuditConfig struct {
	IsActive      bool
	Subcategories map[string]AuditSubcategory
}

// AuditSubcategory is one Windows audit-policy subcategory's success/failure
// flags.
type AuditSubcategory struct {
	Success bool
	Failure bool
}

// SysmonCoverage is the Sysmon half of a coverage report.
type SysmonCoverage struct {
	Available  bool
	EnabledIDs []int
	MissingIDs []int
	Covered    bool
}

// AuditCoverage is the Windows audit-policy half of a coverage report.
type AuditCoverage struct {
	Available       bool
	EnabledPolicies []string
	MissingPolicies []string
	Covered         bool
}

// Result is the full C8 report for one required-event-ID set.
type Result struct {
	RequiredEventIDs []int
	Category         string
	Sysmon           SysmonCoverage
	Audit            AuditCoverage
	OverallCovered   bool
	Recommendations  []string
}

// categoryAuditSubcategories maps a logsource category to the audit-policy
// subcategory names relevant to it (SPEC_FULL.md §12 Windows-native
// alternative table).
var categoryAuditSubcategories = map[string][]string{
	"process_creation":    {"process_creation"},
	"process_termination": {"process_creation"},
	"network_connection":  {"filtering_platform_connection"},
	"file_event":          {"file_system"},
	"file_create":         {"file_system"},
	"registry_event":      {"registry"},
}

// Check computes the coverage result for requiredEventIDs against sysmon
// (nil if no Sysmon config is active) and audit (nil if no audit config is
// active), scoped to category for the audit-subcategory lookup.
func Check(requiredEventIDs []int, category string, sysmon *SysmonConfig, audit *AuditConfig) Result {
	res := Result{RequiredEventIDs: requiredEventIDs, Category: category}
	res.Sysmon = checkSysmon(requiredEventIDs, sysmon)
	res.Audit = checkAudit(category, audit)
	res.OverallCovered = res.Sysmon.Covered || res.Audit.Covered

	if !res.OverallCovered {
		res.Recommendations = recommendations(res)
	}
	return res
}

func checkSysmon(required []int, sysmon *SysmonConfig) SysmonCoverage {
	cov := SysmonCoverage{}
	if sysmon == nil || !sysmon.IsActive {
		cov.Available = false
		cov.MissingIDs = append([]int(nil), required...)
		cov.Covered = false
		return cov
	}

	cov.Available = true
	for _, id := range required {
		if sysmon.EnabledEventIDs[id] {
			cov.EnabledIDs = append(cov.EnabledIDs, id)
		} else {
			cov.MissingIDs = append(cov.MissingIDs, id)
		}
	}
	cov.Covered = len(cov.MissingIDs) == 0
	return cov
}

func checkAudit(category string, audit *AuditConfig) AuditCoverage {
	cov := AuditCoverage{}
	relevant := categoryAuditSubcategories[category]
	if len(relevant) == 0 {
		cov.Available = false
		cov.Covered = false
		return cov
	}

	if audit == nil || !audit.IsActive {
		cov.Available = false
		cov.MissingPolicies = append([]string(nil), relevant...)
		cov.Covered = false
		return cov
	}

	cov.Available = true
	allEnabled := true
	for _, name := range relevant {
		sub, ok := audit.Subcategories[name]
		if ok && (sub.Success || sub.Failure) {
			cov.EnabledPolicies = append(cov.EnabledPolicies, name)
		} else {
			cov.MissingPolicies = append(cov.MissingPolicies, name)
			allEnabled = false
		}
	}
	cov.Covered = allEnabled
	return cov
}

func recommendations(res Result) []string {
	var recs []string
	for _, id := range res.Sysmon.MissingIDs {
		recs = append(recs, fmt.Sprintf("enable Sysmon Event ID %d", id))
	}
	for _, name := range res.Audit.MissingPolicies {
		recs = append(recs, fmt.Sprintf("enable Windows audit subcategory %q (success and/or failure)", name))
	}
	return recs
}
