package memstore

import (
	"testing"

	"sigmaspl/internal/coverage"
	"sigmaspl/internal/profile"
	"sigmaspl/internal/store"
	"sigmaspl/internal/txerr"
)

func TestProfileStoreSaveCreatesWithoutID(t *testing.T) {
	ps := NewProfileStore(profile.NewStore())
	if err := ps.Save(profile.Profile{Name: "a"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	all, err := ps.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].ID == "" {
		t.Fatalf("expected one created profile with an assigned ID, got %+v", all)
	}
}

func TestProfileStoreSaveUpdatesExisting(t *testing.T) {
	inner := profile.NewStore()
	ps := NewProfileStore(inner)
	created, err := inner.Create(profile.Profile{Name: "a"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	created.Name = "renamed"
	if err := ps.Save(created); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := ps.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "renamed" {
		t.Fatalf("expected Save to update in place, got %+v", got)
	}
}

func TestConfigStoreRoundTripsAndSetsIsActive(t *testing.T) {
	cs := NewConfigStore()
	if cfg, err := cs.ActiveSysmonConfig(); err != nil || cfg != nil {
		t.Fatalf("expected nil Sysmon config before any Set, got %+v, err=%v", cfg, err)
	}
	if err := cs.SetActiveSysmonConfig(coverage.SysmonConfig{EnabledEventIDs: map[int]bool{1: true}}); err != nil {
		t.Fatalf("SetActiveSysmonConfig: %v", err)
	}
	cfg, err := cs.ActiveSysmonConfig()
	if err != nil {
		t.Fatalf("ActiveSysmonConfig: %v", err)
	}
	if cfg == nil || !cfg.IsActive {
		t.Fatalf("expected IsActive to be forced true on Set, got %+v", cfg)
	}
}

func TestConversionHistoryStoreAssignsMonotonicIDs(t *testing.T) {
	hs := NewConversionHistoryStore()
	id1, err := hs.Append(store.ConversionRecord{Direction: "sigma_to_spl"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	id2, err := hs.Append(store.ConversionRecord{Direction: "spl_to_sigma"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id1 != 1 || id2 != 2 {
		t.Fatalf("expected monotonic IDs 1, 2, got %d, %d", id1, id2)
	}
}

func TestConversionHistoryStoreGetNotFound(t *testing.T) {
	hs := NewConversionHistoryStore()
	if _, err := hs.Get(999); !txerr.Is(err, txerr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestConversionHistoryStoreRecentIsMostRecentFirst(t *testing.T) {
	hs := NewConversionHistoryStore()
	hs.Append(store.ConversionRecord{Direction: "a"})
	hs.Append(store.ConversionRecord{Direction: "b"})
	hs.Append(store.ConversionRecord{Direction: "c"})

	recent, err := hs.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Direction != "c" || recent[1].Direction != "b" {
		t.Fatalf("expected [c, b] most-recent-first, got %+v", recent)
	}
}

func TestConversionHistoryStoreRecentClampsToAvailable(t *testing.T) {
	hs := NewConversionHistoryStore()
	hs.Append(store.ConversionRecord{Direction: "only"})
	recent, err := hs.Recent(50)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected Recent to clamp to available records, got %d", len(recent))
	}
}
