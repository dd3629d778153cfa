// Package store defines the repository ports spec.md §6.1 requires the
// persistence adapter to satisfy, per design note §9 ("encapsulate behind a
// single repository abstraction with explicit load/commit boundaries").
// Components depend on these interfaces, never on a concrete backend.
package store

import (
	"time"

	"sigmaspl/internal/coverage"
	"sigmaspl/internal/profile"
)

// ProfileRepository persists named field-mapping profiles.
type ProfileRepository interface {
	List() ([]profile.Profile, error)
	Get(id string) (profile.Profile, error)
	GetDefault() (profile.Profile, bool, error)
	Save(p profile.Profile) error
	Delete(id string) error
}

// ConfigRepository persists the active Sysmon and Windows audit-policy
// configuration snapshots the coverage checker consults.
type ConfigRepository interface {
	ActiveSysmonConfig() (*coverage.SysmonConfig, error)
	ActiveAuditConfig() (*coverage.AuditConfig, error)
	SetActiveSysmonConfig(cfg coverage.SysmonConfig) error
	SetActiveAuditConfig(cfg coverage.AuditConfig) error
}

// ConversionRecord is one persisted conversion-history entry (spec.md §3,
// §6.2: "addressed by integer id; IDs are monotonically assigned").
type ConversionRecord struct {
	ID         int64
	Direction  string
	Input      string
	Output     string
	ProfileID  string
	GapCount   int
	LLMUsed    bool
	CreatedAt  time.Time
}

// ConversionHistoryRepository persists a record of every conversion.
type ConversionHistoryRepository interface {
	Append(rec ConversionRecord) (int64, error)
	Get(id int64) (ConversionRecord, error)
	Recent(limit int) ([]ConversionRecord, error)
}
