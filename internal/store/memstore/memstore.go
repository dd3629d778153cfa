// Package memstore is the default, process-embeddable backend for every
// repository port in internal/store, used when no Redis is configured. It
// mirrors internal/profile.Store's reader-preferring sync.RWMutex idiom
// rather than introducing a second locking style for the same concern.
package memstore

import (
	"sync"

	"sigmaspl/internal/coverage"
	"sigmaspl/internal/profile"
	"sigmaspl/internal/store"
	"sigmaspl/internal/txerr"
)

// ProfileStore adapts internal/profile.Store to store.ProfileRepository.
type ProfileStore struct {
	inner *profile.Store
}

func NewProfileStore(inner *profile.Store) *ProfileStore {
	return &ProfileStore{inner: inner}
}

func (s *ProfileStore) List() ([]profile.Profile, error) { return s.inner.List(), nil }

func (s *ProfileStore) Get(id string) (profile.Profile, error) { return s.inner.Get(id) }

func (s *ProfileStore) GetDefault() (profile.Profile, bool, error) {
	p, ok := s.inner.GetDefault()
	return p, ok, nil
}

// Save creates p if it has no ID, otherwise overwrites the stored profile's
// mutable fields in place.
func (s *ProfileStore) Save(p profile.Profile) error {
	if p.ID == "" {
		_, err := s.inner.Create(p)
		return err
	}
	_, err := s.inner.Update(p.ID, func(existing *profile.Profile) {
		*existing = p
	})
	return err
}

func (s *ProfileStore) Delete(id string) error { return s.inner.Delete(id) }

// ConfigStore holds the active Sysmon/audit config snapshots in memory,
// guarded by the same reader-preferring lock shape as profile.Store.
type ConfigStore struct {
	mu     sync.RWMutex
	sysmon *coverage.SysmonConfig
	audit  *coverage.AuditConfig
}

func NewConfigStore() *ConfigStore { return &ConfigStore{} }

func (s *ConfigStore) ActiveSysmonConfig() (*coverage.SysmonConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sysmon, nil
}

func (s *ConfigStore) ActiveAuditConfig() (*coverage.AuditConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.audit, nil
}

func (s *ConfigStore) SetActiveSysmonConfig(cfg coverage.SysmonConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.IsActive = true
	s.sysmon = &cfg
	return nil
}

func (s *ConfigStore) SetActiveAuditConfig(cfg coverage.AuditConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.IsActive = true
	s.audit = &cfg
	return nil
}

// ConversionHistoryStore is an in-memory, append-only conversion log with
// monotonically increasing ids (spec.md §6.2).
type ConversionHistoryStore struct {
	mu      sync.RWMutex
	records []store.ConversionRecord
	nextID  int64
}

func NewConversionHistoryStore() *ConversionHistoryStore {
	return &ConversionHistoryStore{}
}

func (s *ConversionHistoryStore) Append(rec store.ConversionRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	s.records = append(s.records, rec)
	return rec.ID, nil
}

func (s *ConversionHistoryStore) Get(id int64) (store.ConversionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return store.ConversionRecord{}, txerr.New(txerr.NotFound, "", "conversion record not found")
}

func (s *ConversionHistoryStore) Recent(limit int) ([]store.ConversionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]store.ConversionRecord, limit)
	copy(out, s.records[len(s.records)-limit:])
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
