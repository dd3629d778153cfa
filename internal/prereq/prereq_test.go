package prereq

import "testing"

func TestAnalyzeProcessCreation(t *testing.T) {
	req := Analyze("process_creation")
	if len(req.RequiredLogs) != 1 {
		t.Fatalf("expected 1 required log, got %+v", req.RequiredLogs)
	}
	primary := req.RequiredLogs[0]
	if primary.Name != "sysmon" || len(primary.EventIDs) != 1 || primary.EventIDs[0].ID != 1 {
		t.Fatalf("expected Sysmon event ID 1, got %+v", primary)
	}
	if len(primary.Alternatives) != 1 || primary.Alternatives[0].EventIDs[0].ID != 4688 {
		t.Fatalf("expected an audit alternative with event ID 4688, got %+v", primary.Alternatives)
	}
	if !req.HasAlternatives {
		t.Fatalf("expected HasAlternatives to be true")
	}
	if len(req.EventIDs) != 2 || req.EventIDs[0] != 1 || req.EventIDs[1] != 4688 {
		t.Fatalf("expected flattened event_ids [1 4688], got %v", req.EventIDs)
	}
	if len(req.Channels) != 2 {
		t.Fatalf("expected channels union of sysmon + security, got %v", req.Channels)
	}
}

func TestAnalyzeIsCaseInsensitive(t *testing.T) {
	req := Analyze("Process_Creation")
	if len(req.RequiredLogs) == 0 {
		t.Fatalf("expected category lookup to be case-insensitive")
	}
}

func TestAnalyzeUnknownCategoryIsInformational(t *testing.T) {
	req := Analyze("some_unknown_category")
	if len(req.RequiredLogs) != 0 {
		t.Fatalf("unknown category should not synthesize required logs, got %+v", req)
	}
	if req.HasAlternatives {
		t.Fatalf("unknown category should report no alternatives")
	}
	if req.Notes == "" {
		t.Fatalf("expected an informational note for an unrecognized category")
	}
}

func TestAnalyzeRegistryEventHasMultipleSysmonIDs(t *testing.T) {
	req := Analyze("registry_event")
	if len(req.RequiredLogs) != 1 || len(req.RequiredLogs[0].EventIDs) != 3 {
		t.Fatalf("expected 3 Sysmon event IDs for registry_event, got %+v", req.RequiredLogs)
	}
	for _, e := range req.RequiredLogs[0].EventIDs {
		if e.Name == "" {
			t.Fatalf("expected every event ID entry to carry a name, got %+v", e)
		}
	}
}

func TestAnalyzeDriverLoadHasNoAuditAlternative(t *testing.T) {
	req := Analyze("driver_load")
	if len(req.RequiredLogs) != 1 {
		t.Fatalf("expected 1 required log for driver_load, got %+v", req.RequiredLogs)
	}
	if len(req.RequiredLogs[0].Alternatives) != 0 {
		t.Fatalf("driver_load should have no Windows-audit alternative, got %+v", req.RequiredLogs[0].Alternatives)
	}
	if req.HasAlternatives {
		t.Fatalf("expected HasAlternatives to be false for driver_load")
	}
}

func TestAnalyzeProcessTerminationHasNoSysmonPrimary(t *testing.T) {
	req := Analyze("process_termination")
	if len(req.RequiredLogs) != 1 {
		t.Fatalf("expected 1 required log for process_termination, got %+v", req.RequiredLogs)
	}
	primary := req.RequiredLogs[0]
	if primary.Name != "windows_audit" || primary.EventIDs[0].ID != 4689 {
		t.Fatalf("expected the audit source to stand in as the primary required log, got %+v", primary)
	}
	if len(primary.Alternatives) != 0 {
		t.Fatalf("expected no further alternatives beyond the sole audit source, got %+v", primary.Alternatives)
	}
}

func TestAnalyzeEventIDsAreDeduplicated(t *testing.T) {
	req := Analyze("file_event")
	seen := map[int]bool{}
	for _, id := range req.EventIDs {
		if seen[id] {
			t.Fatalf("duplicate event ID %d in flattened list %v", id, req.EventIDs)
		}
		seen[id] = true
	}
}
