package profile

import (
	"testing"

	"sigmaspl/internal/txerr"
)

func TestCreateRejectsDuplicateName(t *testing.T) {
	s := NewStore()
	if _, err := s.Create(Profile{Name: "splunk-cim"}); err != nil {
		t.Fatalf("unexpected error creating first profile: %v", err)
	}
	_, err := s.Create(Profile{Name: "splunk-cim"})
	if !txerr.Is(err, txerr.Conflict) {
		t.Fatalf("expected Conflict error for duplicate name, got %v", err)
	}
}

func TestCreateSetsDefaultUniquely(t *testing.T) {
	s := NewStore()
	a, _ := s.Create(Profile{Name: "a", IsDefault: true})
	b, _ := s.Create(Profile{Name: "b", IsDefault: true})

	got, err := s.Get(a.ID)
	if err != nil {
		t.Fatalf("Get(a): %v", err)
	}
	if got.IsDefault {
		t.Fatalf("profile a should no longer be default once b is created as default")
	}
	got, err = s.Get(b.ID)
	if err != nil {
		t.Fatalf("Get(b): %v", err)
	}
	if !got.IsDefault {
		t.Fatalf("profile b should be default")
	}
}

func TestSetDefaultClearsPrevious(t *testing.T) {
	s := NewStore()
	a, _ := s.Create(Profile{Name: "a", IsDefault: true})
	b, _ := s.Create(Profile{Name: "b"})

	if err := s.SetDefault(b.ID); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	defaults := 0
	for _, p := range s.List() {
		if p.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default profile, got %d", defaults)
	}
	got, _ := s.Get(a.ID)
	if got.IsDefault {
		t.Fatalf("profile a should no longer be default")
	}
}

func TestGetNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Get("missing")
	if !txerr.Is(err, txerr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestImportMappingsMergesInPlace(t *testing.T) {
	s := NewStore()
	p, _ := s.Create(Profile{Name: "a"})
	p, err := s.ImportMappings(p.ID, []Mapping{
		{SigmaField: "Image", TargetField: "process_path"},
		{SigmaField: "User", TargetField: "user"},
	})
	if err != nil {
		t.Fatalf("ImportMappings: %v", err)
	}
	p, err = s.ImportMappings(p.ID, []Mapping{
		{SigmaField: "Image", TargetField: "process_exe"},
	})
	if err != nil {
		t.Fatalf("ImportMappings overwrite: %v", err)
	}
	if len(p.Mappings) != 2 {
		t.Fatalf("expected 2 mappings after overwrite-merge, got %d", len(p.Mappings))
	}
	if p.Mappings[0].TargetField != "process_exe" {
		t.Fatalf("expected Image mapping to be overwritten in place, got %+v", p.Mappings[0])
	}
}

func TestLookupOnNilProfile(t *testing.T) {
	var p *Profile
	if _, ok := p.Lookup("Image"); ok {
		t.Fatalf("Lookup on nil profile should report false")
	}
}

func TestReplaceMappingsDedupes(t *testing.T) {
	s := NewStore()
	p, _ := s.Create(Profile{Name: "a"})
	p, err := s.ReplaceMappings(p.ID, []Mapping{
		{SigmaField: "Image", TargetField: "process_path"},
		{SigmaField: "Image", TargetField: "process_exe"},
	})
	if err != nil {
		t.Fatalf("ReplaceMappings: %v", err)
	}
	if len(p.Mappings) != 1 || p.Mappings[0].TargetField != "process_exe" {
		t.Fatalf("expected dedup to keep the last mapping, got %+v", p.Mappings)
	}
}

func TestSuggestEmptyWhenCimDisabled(t *testing.T) {
	s := NewStore()
	p, _ := s.Create(Profile{Name: "a", CimEnabled: false})
	got, err := s.Suggest(p.ID, []string{"Image"})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no suggestions when CIM is disabled, got %v", got)
	}
}

func TestSuggestSkipsAlreadyMappedFields(t *testing.T) {
	s := NewStore()
	p, _ := s.Create(Profile{
		Name:       "a",
		CimEnabled: true,
		Mappings:   []Mapping{{SigmaField: "Image", TargetField: "proc_exe"}},
	})
	got, err := s.Suggest(p.ID, []string{"Image", "User"})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if _, ok := got["Image"]; ok {
		t.Fatalf("expected Image to be skipped since it already has a profile mapping, got %v", got)
	}
	if got["User"] != "user" {
		t.Fatalf("expected heuristic suggestion for User, got %v", got)
	}
}

func TestSuggestIsCaseInsensitive(t *testing.T) {
	s := NewStore()
	p, _ := s.Create(Profile{Name: "a", CimEnabled: true})
	got, err := s.Suggest(p.ID, []string{"DestinationIP"})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if got["DestinationIP"] != "dest_ip" {
		t.Fatalf("expected case-insensitive heuristic match, got %v", got)
	}
}
