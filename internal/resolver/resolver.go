// Package resolver implements C3: resolving a Sigma field name, under a
// profile and logsource context, to a target SPL field. The resolution
// order is a plain, ordered sequence of strategies (spec.md §9: "a tagged
// resolution strategy with a single entry point ... not virtual
// dispatch") — there is no interface hierarchy here, just functions tried
// in turn.
package resolver

import (
	"sigmaspl/internal/profile"
	"sigmaspl/internal/sigmaast"
)

// Status is the confidence level of a resolution.
type Status string

const (
	StatusOK        Status = "ok"
	StatusMissing   Status = "missing"
	StatusSuggested Status = "suggested"
)

// Result is the outcome of resolving one Sigma field.
type Result struct {
	SigmaField  string
	TargetField string
	Status      Status
	Transform   string
	Note        string
}

// Resolver resolves fields for one request: fixed profile and logsource,
// deterministic across calls, memoized per instance (spec.md §4.3: "no
// global cache between requests; a per-request memoization table is
// permitted").
type Resolver struct {
	profile   *profile.Profile
	logsource sigmaast.Logsource
	memo      map[string]Result
}

// New builds a resolver bound to one profile (nil is allowed: every
// resolution simply skips the profile-mapping step) and logsource.
func New(p *profile.Profile, ls sigmaast.Logsource) *Resolver {
	return &Resolver{profile: p, logsource: ls, memo: make(map[string]Result)}
}

// Resolve looks up the target field for a Sigma field name, in strategy
// order: profile mapping, the profile's FieldDisambiguation candidates, CIM
// table (if enabled), Windows process-creation defaults, then identity
// fallback.
func (r *Resolver) Resolve(sigmaField string) Result {
	if cached, ok := r.memo[sigmaField]; ok {
		return cached
	}

	res := r.resolveUncached(sigmaField)
	r.memo[sigmaField] = res
	return res
}

func (r *Resolver) resolveUncached(sigmaField string) Result {
	if r.profile != nil {
		if m, ok := r.profile.Lookup(sigmaField); ok {
			if m.Transform != "" && !profile.KnownTransform(m.Transform) {
				return Result{
					SigmaField:  sigmaField,
					TargetField: m.TargetField,
					Status:      StatusSuggested,
					Note:        "unknown transform \"" + m.Transform + "\" ignored; raw target used",
				}
			}
			return Result{
				SigmaField:  sigmaField,
				TargetField: m.TargetField,
				Status:      StatusOK,
				Transform:   m.Transform,
			}
		}
	}

	if r.profile != nil {
		if candidates, ok := r.profile.FieldDisambiguation[sigmaField]; ok && len(candidates) > 0 {
			return Result{
				SigmaField:  sigmaField,
				TargetField: candidates[0],
				Status:      StatusSuggested,
				Note:        "profile-level disambiguation candidate list, first entry used",
			}
		}
	}

	if r.profile != nil && r.profile.CimEnabled {
		if target, ok := cimLookup(r.logsource.Category, sigmaField); ok {
			return Result{
				SigmaField:  sigmaField,
				TargetField: target,
				Status:      StatusSuggested,
				Note:        "matched via CIM table for category " + r.logsource.Category,
			}
		}
	}

	if _, ok := windowsProcessCreationDefaults[sigmaField]; ok {
		return Result{
			SigmaField:  sigmaField,
			TargetField: sigmaField,
			Status:      StatusSuggested,
			Note:        "matched via built-in Windows process-creation default table",
		}
	}

	return Result{
		SigmaField:  sigmaField,
		TargetField: sigmaField,
		Status:      StatusMissing,
		Note:        "no mapping found; using raw Sigma field name",
	}
}
