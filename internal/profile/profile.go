// Package profile holds named field-mapping profiles: the process-wide
// state the field resolver (internal/resolver) consults on every
// translation. It is guarded by a reader-preferring lock (spec.md §5) —
// translations only ever read, so sync.RWMutex lets them run unblocked
// against each other while administrative writes stay exclusive and short,
// the same sync-guarded-struct idiom the teacher uses for its in-memory
// alert scorer.
package profile

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"sigmaspl/internal/txerr"
)

// Transform is a named value transform applied at emit time.
type Transform string

const (
	TransformNone         Transform = ""
	TransformLower        Transform = "lower"
	TransformUpper        Transform = "upper"
	TransformBasename     Transform = "basename"
	TransformStripQuotes  Transform = "strip_quotes"
	TransformCidrToSubnet Transform = "cidr_to_subnet"
)

// KnownTransform reports whether name is a recognized transform.
func KnownTransform(name string) bool {
	switch Transform(name) {
	case TransformLower, TransformUpper, TransformBasename, TransformStripQuotes, TransformCidrToSubnet:
		return true
	default:
		return false
	}
}

// Mapping is one sigma_field -> target_field rule within a profile.
type Mapping struct {
	SigmaField  string
	TargetField string
	Transform   string
	Category    string
	Notes       string
}

// Profile is a named set of mappings plus SPL defaults.
type Profile struct {
	ID                  string
	Name                string
	Description         string
	DefaultIndex        string
	DefaultSourcetype   string
	CimEnabled          bool
	IsDefault           bool
	Macros              map[string]string
	FieldDisambiguation map[string][]string
	Mappings            []Mapping
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// mappingIndex returns the position of a sigma_field within p.Mappings, or
// -1 if absent. Lookup is case-sensitive per spec.md §3.
func (p *Profile) mappingIndex(sigmaField string) int {
	for i, m := range p.Mappings {
		if m.SigmaField == sigmaField {
			return i
		}
	}
	return -1
}

// Lookup returns the mapping for a Sigma field, if one is configured.
func (p *Profile) Lookup(sigmaField string) (Mapping, bool) {
	if p == nil {
		return Mapping{}, false
	}
	if i := p.mappingIndex(sigmaField); i >= 0 {
		return p.Mappings[i], true
	}
	return Mapping{}, false
}

// Store is the process-wide profile repository: C2 in spec.md §4.2.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	byName   map[string]string
	nextID   int
}

// NewStore creates an empty, in-memory profile store.
func NewStore() *Store {
	return &Store{
		profiles: make(map[string]*Profile),
		byName:   make(map[string]string),
	}
}

// List returns every profile, ordered by ID ascending.
func (s *Store) List() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, *p)
	}
	sortProfilesByID(out)
	return out
}

// Get fetches a profile by id.
func (s *Store) Get(id string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, txerr.New(txerr.NotFound, "", fmt.Sprintf("profile %q not found", id))
	}
	return *p, nil
}

// GetDefault returns the profile marked is_default, if any.
func (s *Store) GetDefault() (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.IsDefault {
			return *p, true
		}
	}
	return Profile{}, false
}

// Create adds a new profile, rejecting duplicate names and enforcing the
// is_default uniqueness invariant atomically.
func (s *Store) Create(p Profile) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(p.Name)
	if name == "" {
		return Profile{}, txerr.New(txerr.InvalidSigma, "name", "profile name must not be empty")
	}
	if _, exists := s.byName[name]; exists {
		return Profile{}, txerr.New(txerr.Conflict, "name", fmt.Sprintf("profile name %q already exists", name))
	}

	s.nextID++
	id := strconv.Itoa(s.nextID)
	now := time.Now()
	np := p
	np.ID = id
	np.Name = name
	np.Mappings = append([]Mapping(nil), p.Mappings...)
	if np.Macros == nil {
		np.Macros = map[string]string{}
	}
	if np.FieldDisambiguation == nil {
		np.FieldDisambiguation = map[string][]string{}
	}
	np.CreatedAt = now
	np.UpdatedAt = now

	if np.IsDefault {
		s.clearDefaultLocked()
	}

	s.profiles[id] = &np
	s.byName[name] = id
	out := np
	return out, nil
}

// Update applies mutate to the stored profile, then persists the result.
// mutate must not reach into other profiles.
func (s *Store) Update(id string, mutate func(*Profile)) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, txerr.New(txerr.NotFound, "", fmt.Sprintf("profile %q not found", id))
	}

	before := *p
	mutate(p)

	if p.Name != before.Name {
		trimmed := strings.TrimSpace(p.Name)
		if trimmed == "" {
			*p = before
			return Profile{}, txerr.New(txerr.InvalidSigma, "name", "profile name must not be empty")
		}
		if existingID, exists := s.byName[trimmed]; exists && existingID != id {
			*p = before
			return Profile{}, txerr.New(txerr.Conflict, "name", fmt.Sprintf("profile name %q already exists", trimmed))
		}
		delete(s.byName, before.Name)
		p.Name = trimmed
		s.byName[trimmed] = id
	}

	if p.IsDefault && !before.IsDefault {
		s.clearDefaultLocked()
		p.IsDefault = true
	}

	p.UpdatedAt = time.Now()
	return *p, nil
}

// Delete removes a profile. Historical conversion records hold a mapping
// snapshot, so deleting a referenced profile is always allowed (spec.md §3
// lifecycle note).
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return txerr.New(txerr.NotFound, "", fmt.Sprintf("profile %q not found", id))
	}
	delete(s.byName, p.Name)
	delete(s.profiles, id)
	return nil
}

// SetDefault marks id as the default profile, atomically clearing the
// previous default.
func (s *Store) SetDefault(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return txerr.New(txerr.NotFound, "", fmt.Sprintf("profile %q not found", id))
	}
	s.clearDefaultLocked()
	p.IsDefault = true
	p.UpdatedAt = time.Now()
	return nil
}

func (s *Store) clearDefaultLocked() {
	for _, existing := range s.profiles {
		existing.IsDefault = false
	}
}

// ReplaceMappings overwrites a profile's entire mapping list.
func (s *Store) ReplaceMappings(id string, mappings []Mapping) (Profile, error) {
	return s.Update(id, func(p *Profile) {
		p.Mappings = dedupMappings(mappings)
	})
}

// ImportMappings merges mappings into a profile: an existing sigma_field is
// overwritten in place (preserving its original position), a new one is
// appended, preserving the ordered-list invariant (spec.md §3).
func (s *Store) ImportMappings(id string, mappings []Mapping) (Profile, error) {
	return s.Update(id, func(p *Profile) {
		for _, m := range mappings {
			if i := p.mappingIndex(m.SigmaField); i >= 0 {
				p.Mappings[i] = m
			} else {
				p.Mappings = append(p.Mappings, m)
			}
		}
	})
}

func dedupMappings(mappings []Mapping) []Mapping {
	seen := map[string]int{}
	out := make([]Mapping, 0, len(mappings))
	for _, m := range mappings {
		if i, ok := seen[m.SigmaField]; ok {
			out[i] = m
			continue
		}
		seen[m.SigmaField] = len(out)
		out = append(out, m)
	}
	return out
}

func sortProfilesByID(profiles []Profile) {
	idNum := func(id string) int {
		n, _ := strconv.Atoi(id)
		return n
	}
	for i := 1; i < len(profiles); i++ {
		for j := i; j > 0 && idNum(profiles[j].ID) < idNum(profiles[j-1].ID); j-- {
			profiles[j], profiles[j-1] = profiles[j-1], profiles[j]
		}
	}
}
