package coverage

import "testing"

func TestCheckNoConfigsActiveIsUncoveredWithRecommendations(t *testing.T) {
	res := Check([]int{1}, "process_creation", nil, nil)
	if res.OverallCovered {
		t.Fatalf("expected uncovered with no active configs, got %+v", res)
	}
	if len(res.Recommendations) == 0 {
		t.Fatalf("expected remediation recommendations when uncovered")
	}
	if res.Sysmon.Available || res.Audit.Available {
		t.Fatalf("expected both halves unavailable, got %+v", res)
	}
}

func TestCheckSysmonFullyEnabledCovers(t *testing.T) {
	sysmon := &SysmonConfig{IsActive: true, EnabledEventIDs: map[int]bool{1: true}}
	res := Check([]int{1}, "process_creation", sysmon, nil)
	if !res.Sysmon.Covered || !res.OverallCovered {
		t.Fatalf("expected Sysmon coverage to satisfy overall coverage, got %+v", res)
	}
	if len(res.Recommendations) != 0 {
		t.Fatalf("expected no recommendations once covered, got %v", res.Recommendations)
	}
}

func TestCheckAuditAloneCanSatisfyOverall(t *testing.T) {
	audit := &AuditConfig{IsActive: true, Subcategories: map[string]AuditSubcategory{
		"process_creation": {Success: true},
	}}
	res := Check([]int{1}, "process_creation", nil, audit)
	if !res.Audit.Covered || !res.OverallCovered {
		t.Fatalf("expected audit-only coverage to satisfy overall coverage, got %+v", res)
	}
}

func TestCheckPartialSysmonIsNotCovered(t *testing.T) {
	sysmon := &SysmonConfig{IsActive: true, EnabledEventIDs: map[int]bool{1: true}}
	res := Check([]int{1, 12, 13}, "registry_event", sysmon, nil)
	if res.Sysmon.Covered {
		t.Fatalf("expected partial Sysmon enablement to be uncovered, got %+v", res)
	}
	if len(res.Sysmon.MissingIDs) != 2 {
		t.Fatalf("expected 2 missing event IDs, got %v", res.Sysmon.MissingIDs)
	}
}

func TestCheckCategoryWithNoAuditAlternativeIsUnavailable(t *testing.T) {
	audit := &AuditConfig{IsActive: true, Subcategories: map[string]AuditSubcategory{"anything": {Success: true}}}
	res := Check([]int{6}, "driver_load", nil, audit)
	if res.Audit.Available {
		t.Fatalf("driver_load has no Windows-audit alternative, expected unavailable, got %+v", res.Audit)
	}
}

// TestEnablingMoreEventIDsNeverReducesCoverage is the monotonicity
// invariant: widening an active Sysmon config's enabled set can only move
// OverallCovered from false to true, never the reverse.
func TestEnablingMoreEventIDsNeverReducesCoverage(t *testing.T) {
	required := []int{1, 7, 8}
	before := &SysmonConfig{IsActive: true, EnabledEventIDs: map[int]bool{1: true}}
	resBefore := Check(required, "process_creation", before, nil)

	after := &SysmonConfig{IsActive: true, EnabledEventIDs: map[int]bool{1: true, 7: true, 8: true}}
	resAfter := Check(required, "process_creation", after, nil)

	if resBefore.OverallCovered && !resAfter.OverallCovered {
		t.Fatalf("coverage regressed after enabling more event IDs: before=%v after=%v", resBefore.OverallCovered, resAfter.OverallCovered)
	}
	if !resAfter.OverallCovered {
		t.Fatalf("expected full coverage once all required event IDs are enabled, got %+v", resAfter)
	}
}

func TestRecommendationsNameMissingIDsAndPolicies(t *testing.T) {
	audit := &AuditConfig{IsActive: true, Subcategories: map[string]AuditSubcategory{}}
	res := Check([]int{1}, "process_creation", &SysmonConfig{IsActive: true, EnabledEventIDs: map[int]bool{}}, audit)
	if res.OverallCovered {
		t.Fatalf("expected uncovered, got %+v", res)
	}
	foundSysmonRec, foundAuditRec := false, false
	for _, r := range res.Recommendations {
		if r == "enable Sysmon Event ID 1" {
			foundSysmonRec = true
		}
		if r == `enable Windows audit subcategory "process_creation" (success and/or failure)` {
			foundAuditRec = true
		}
	}
	if !foundSysmonRec || !foundAuditRec {
		t.Fatalf("expected both Sysmon and audit recommendations, got %v", res.Recommendations)
	}
}
