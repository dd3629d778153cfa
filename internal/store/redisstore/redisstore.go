// Package redisstore is the Redis-backed implementation of every
// repository port in internal/store, grounded on
// internal/vertexstate/redis_store.go's HSet/HGetAll/pipeline idiom and its
// INCR-based id allocation, now serving profiles, config snapshots, and
// conversion history instead of vertex counters.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"sigmaspl/internal/coverage"
	"sigmaspl/internal/profile"
	"sigmaspl/internal/store"
	"sigmaspl/internal/txerr"
)

// Config configures Redis access, the same shape as
// vertexstate.RedisConfig.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Timeout   time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(c.KeyPrefix) == "" {
		c.KeyPrefix = "sigmaspl"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	return c
}

func newClient(cfg Config) (*redis.Client, error) {
	cfg = cfg.withDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// ProfileStore is a Redis-backed store.ProfileRepository: one string key per
// profile (`<prefix>:profile:<id>`, JSON-encoded), plus a `<prefix>:profiles`
// set of ids and a `<prefix>:profile_ids` counter for id assignment.
type ProfileStore struct {
	client *redis.Client
	prefix string
}

func NewProfileStore(cfg Config) (*ProfileStore, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ProfileStore{client: client, prefix: cfg.withDefaults().KeyPrefix}, nil
}

func (s *ProfileStore) key(id string) string { return s.prefix + ":profile:" + id }
func (s *ProfileStore) setKey() string       { return s.prefix + ":profiles" }
func (s *ProfileStore) idKey() string        { return s.prefix + ":profile_ids" }

func (s *ProfileStore) List() ([]profile.Profile, error) {
	ctx := context.Background()
	ids, err := s.client.SMembers(ctx, s.setKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list profile ids: %w", err)
	}
	out := make([]profile.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := s.Get(id)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *ProfileStore) Get(id string) (profile.Profile, error) {
	ctx := context.Background()
	raw, err := s.client.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return profile.Profile{}, txerr.New(txerr.NotFound, "", fmt.Sprintf("profile %q not found", id))
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("read profile %s: %w", id, err)
	}
	var p profile.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return profile.Profile{}, fmt.Errorf("decode profile %s: %w", id, err)
	}
	return p, nil
}

func (s *ProfileStore) GetDefault() (profile.Profile, bool, error) {
	profiles, err := s.List()
	if err != nil {
		return profile.Profile{}, false, err
	}
	for _, p := range profiles {
		if p.IsDefault {
			return p, true, nil
		}
	}
	return profile.Profile{}, false, nil
}

func (s *ProfileStore) Save(p profile.Profile) error {
	ctx := context.Background()
	if p.ID == "" {
		next, err := s.client.Incr(ctx, s.idKey()).Result()
		if err != nil {
			return fmt.Errorf("allocate profile id: %w", err)
		}
		p.ID = strconv.FormatInt(next, 10)
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = time.Now()

	if p.IsDefault {
		if err := s.clearOtherDefaults(p.ID); err != nil {
			return err
		}
	}

	encoded, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.ID, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(p.ID), encoded, 0)
	pipe.SAdd(ctx, s.setKey(), p.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save profile %s: %w", p.ID, err)
	}
	return nil
}

func (s *ProfileStore) clearOtherDefaults(exceptID string) error {
	profiles, err := s.List()
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if p.ID == exceptID || !p.IsDefault {
			continue
		}
		p.IsDefault = false
		encoded, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode profile %s: %w", p.ID, err)
		}
		if err := s.client.Set(context.Background(), s.key(p.ID), encoded, 0).Err(); err != nil {
			return fmt.Errorf("clear default on profile %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *ProfileStore) Delete(id string) error {
	ctx := context.Background()
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(id))
	pipe.SRem(ctx, s.setKey(), id)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	return nil
}

// ConfigStore persists the active Sysmon/audit config snapshots as
// JSON-encoded values under two fixed string keys.
type ConfigStore struct {
	client *redis.Client
	prefix string
}

func NewConfigStore(cfg Config) (*ConfigStore, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ConfigStore{client: client, prefix: cfg.withDefaults().KeyPrefix}, nil
}

func (s *ConfigStore) sysmonKey() string { return s.prefix + ":active_sysmon_config" }
func (s *ConfigStore) auditKey() string  { return s.prefix + ":active_audit_config" }

func (s *ConfigStore) ActiveSysmonConfig() (*coverage.SysmonConfig, error) {
	raw, err := s.client.Get(context.Background(), s.sysmonKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read active sysmon config: %w", err)
	}
	var cfg coverage.SysmonConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("decode active sysmon config: %w", err)
	}
	return &cfg, nil
}

func (s *ConfigStore) ActiveAuditConfig() (*coverage.AuditConfig, error) {
	raw, err := s.client.Get(context.Background(), s.auditKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read active audit config: %w", err)
	}
	var cfg coverage.AuditConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("decode active audit config: %w", err)
	}
	return &cfg, nil
}

func (s *ConfigStore) SetActiveSysmonConfig(cfg coverage.SysmonConfig) error {
	cfg.IsActive = true
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode sysmon config: %w", err)
	}
	return s.client.Set(context.Background(), s.sysmonKey(), encoded, 0).Err()
}

func (s *ConfigStore) SetActiveAuditConfig(cfg coverage.AuditConfig) error {
	cfg.IsActive = true
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode audit config: %w", err)
	}
	return s.client.Set(context.Background(), s.auditKey(), encoded, 0).Err()
}

// ConversionHistoryStore appends conversion records to a Redis list, with
// monotonic ids assigned via INCR — the same id-allocation idiom
// redis_store.go uses for its dirty-set bookkeeping, applied here to a
// strictly increasing integer id instead of a timestamp score.
type ConversionHistoryStore struct {
	client *redis.Client
	prefix string
}

func NewConversionHistoryStore(cfg Config) (*ConversionHistoryStore, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ConversionHistoryStore{client: client, prefix: cfg.withDefaults().KeyPrefix}, nil
}

func (s *ConversionHistoryStore) idKey() string     { return s.prefix + ":conversion_ids" }
func (s *ConversionHistoryStore) listKey() string   { return s.prefix + ":conversions" }
func (s *ConversionHistoryStore) recordKey(id int64) string {
	return s.prefix + ":conversion:" + strconv.FormatInt(id, 10)
}

func (s *ConversionHistoryStore) Append(rec store.ConversionRecord) (int64, error) {
	ctx := context.Background()
	next, err := s.client.Incr(ctx, s.idKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate conversion id: %w", err)
	}
	rec.ID = next
	rec.CreatedAt = time.Now()

	encoded, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("encode conversion record %d: %w", next, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.recordKey(next), encoded, 0)
	pipe.RPush(ctx, s.listKey(), next)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("append conversion record %d: %w", next, err)
	}
	return next, nil
}

func (s *ConversionHistoryStore) Get(id int64) (store.ConversionRecord, error) {
	raw, err := s.client.Get(context.Background(), s.recordKey(id)).Result()
	if err == redis.Nil {
		return store.ConversionRecord{}, txerr.New(txerr.NotFound, "", "conversion record not found")
	}
	if err != nil {
		return store.ConversionRecord{}, fmt.Errorf("read conversion record %d: %w", id, err)
	}
	var rec store.ConversionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return store.ConversionRecord{}, fmt.Errorf("decode conversion record %d: %w", id, err)
	}
	return rec, nil
}

func (s *ConversionHistoryStore) Recent(limit int) ([]store.ConversionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx := context.Background()
	ids, err := s.client.LRange(ctx, s.listKey(), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent conversion ids: %w", err)
	}
	out := make([]store.ConversionRecord, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		id, err := strconv.ParseInt(ids[i], 10, 64)
		if err != nil {
			continue
		}
		rec, err := s.Get(id)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
