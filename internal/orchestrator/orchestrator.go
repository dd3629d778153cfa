// Package orchestrator implements C10: the three conversion entry points
// (sigma_to_spl, spl_to_sigma, text_to_sigma), assembling a ConversionResponse
// from the component pipeline and recording it to conversion history and
// metrics. Grounded on cmd/threatgraph/main.go's "construct each component,
// wire left to right" wiring shape, generalized from process startup to a
// per-request pipeline.
package orchestrator

import (
	"context"
	"time"

	"sigmaspl/internal/condition"
	"sigmaspl/internal/coverage"
	"sigmaspl/internal/gap"
	"sigmaspl/internal/llm"
	"sigmaspl/internal/logger"
	"sigmaspl/internal/metrics"
	"sigmaspl/internal/prereq"
	"sigmaspl/internal/profile"
	"sigmaspl/internal/resolver"
	"sigmaspl/internal/sigmaparse"
	"sigmaspl/internal/splemit"
	"sigmaspl/internal/splrecognize"
	"sigmaspl/internal/store"
	"sigmaspl/internal/txerr"
)

const (
	ConversionSigmaToSPL  = "sigma_to_spl"
	ConversionSPLToSigma  = "spl_to_sigma"
	ConversionTextToSigma = "text_to_sigma"
)

// MappingResult mirrors one field resolution for the response, spec.md §3.
type MappingResult struct {
	Field       string
	TargetField string
	Status      string
	Transform   string
	Note        string
}

// ConversionResponse is the orchestrator's one output shape (spec.md §3).
type ConversionResponse struct {
	Name             string
	ConversionType   string
	ProfileID        string
	InputContent     string
	OutputSigma      string
	OutputSPL        string
	Prerequisites    []prereq.Requirement
	Mappings         []MappingResult
	Gaps             []gap.GapItem
	HealthChecks     []string
	CorrelationNotes []string
	LLMUsed          bool
	CreatedAt        time.Time
}

// Overrides are caller-supplied values forwarded to the SPL emitter.
type Overrides struct {
	Index      string
	Sourcetype string
	TimeRange  string
}

// Orchestrator wires together every component over a fixed set of
// process-wide repositories.
type Orchestrator struct {
	Profiles ProfileLookup
	Configs  store.ConfigRepository
	History  store.ConversionHistoryRepository
	Metrics  *metrics.Registry
	LLM      llm.Adapter
}

// ProfileLookup is the subset of store.ProfileRepository the orchestrator
// needs; a narrower interface than the full port keeps test doubles small.
type ProfileLookup interface {
	Get(id string) (profile.Profile, error)
	GetDefault() (profile.Profile, bool, error)
}

// New builds an Orchestrator. llmAdapter may be llm.NullAdapter{} when no
// LLM endpoint is configured.
func New(profiles ProfileLookup, configs store.ConfigRepository, history store.ConversionHistoryRepository, reg *metrics.Registry, llmAdapter llm.Adapter) *Orchestrator {
	if llmAdapter == nil {
		llmAdapter = llm.NullAdapter{}
	}
	return &Orchestrator{Profiles: profiles, Configs: configs, History: history, Metrics: reg, LLM: llmAdapter}
}

func (o *Orchestrator) resolveProfile(profileID string) (*profile.Profile, error) {
	if profileID == "" {
		p, ok, err := o.Profiles.GetDefault()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return &p, nil
	}
	p, err := o.Profiles.Get(profileID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SigmaToSPL runs the forward pipeline: C1 -> C4 (using C3/C2) -> C5, C6, C7.
func (o *Orchestrator) SigmaToSPL(ctx context.Context, sigmaYAML, profileID string, overrides Overrides) (ConversionResponse, error) {
	start := time.Now()
	resp, err := o.sigmaToSPL(sigmaYAML, profileID, overrides)
	o.observe(ConversionSigmaToSPL, start, err)
	if err == nil {
		o.recordHistory(resp)
	}
	return resp, err
}

func (o *Orchestrator) sigmaToSPL(sigmaYAML, profileID string, overrides Overrides) (ConversionResponse, error) {
	resp := ConversionResponse{
		ConversionType: ConversionSigmaToSPL,
		ProfileID:      profileID,
		InputContent:   sigmaYAML,
		CreatedAt:      time.Now(),
	}

	parsed, err := sigmaparse.Parse([]byte(sigmaYAML))
	if err != nil {
		return resp, err
	}
	resp.Name = parsed.Rule.Title
	resp.CorrelationNotes = append(resp.CorrelationNotes, parsed.Warnings...)

	p, err := o.resolveProfile(profileID)
	if err != nil {
		return resp, err
	}
	if p != nil {
		resp.ProfileID = p.ID
	}

	res := resolver.New(p, parsed.Rule.Logsource)
	node, occurrences, err := condition.Compile(&parsed.Rule, res)
	if err != nil {
		return resp, err
	}

	resolvedFields := make([]string, 0, len(occurrences))
	for _, occ := range occurrences {
		resp.Mappings = append(resp.Mappings, MappingResult{
			Field:       occ.SigmaField,
			TargetField: occ.Result.TargetField,
			Status:      string(occ.Result.Status),
			Transform:   occ.Result.Transform,
			Note:        occ.Result.Note,
		})
		resolvedFields = append(resolvedFields, occ.Result.TargetField)
	}

	resp.OutputSPL = splemit.Emit(splemit.Input{
		Logsource:      parsed.Rule.Logsource,
		Profile:        p,
		Node:           node,
		ResolvedFields: resolvedFields,
		Overrides: splemit.Overrides{
			Index:      overrides.Index,
			Sourcetype: overrides.Sourcetype,
			TimeRange:  overrides.TimeRange,
		},
	})

	resp.Prerequisites = []prereq.Requirement{prereq.Analyze(parsed.Rule.Logsource.Category)}

	known := knownFieldPool(p)
	resp.Gaps = gap.Analyze(occurrences, known)
	if o.Metrics != nil {
		o.Metrics.GapCount.Observe(float64(len(resp.Gaps)))
	}

	if len(resp.Prerequisites) == 1 {
		req := resp.Prerequisites[0]
		required := req.EventIDs
		if len(required) > 0 && o.Configs != nil {
			sysmonCfg, serr := o.Configs.ActiveSysmonConfig()
			auditCfg, aerr := o.Configs.ActiveAuditConfig()
			if serr == nil && aerr == nil {
				result := coverage.Check(required, parsed.Rule.Logsource.Category, sysmonCfg, auditCfg)
				if o.Metrics != nil {
					covered := "false"
					if result.OverallCovered {
						covered = "true"
					}
					o.Metrics.CoverageChecks.WithLabelValues(covered).Inc()
				}
				resp.HealthChecks = append(resp.HealthChecks, result.Recommendations...)
			}
		}
	}

	return resp, nil
}

// SPLToSigma runs the reverse pipeline: C9, reversed against the profile.
func (o *Orchestrator) SPLToSigma(ctx context.Context, splText, profileID string) (ConversionResponse, error) {
	start := time.Now()
	resp, err := o.splToSigma(splText, profileID)
	o.observe(ConversionSPLToSigma, start, err)
	if err == nil {
		o.recordHistory(resp)
	}
	return resp, err
}

func (o *Orchestrator) splToSigma(splText, profileID string) (ConversionResponse, error) {
	resp := ConversionResponse{
		ConversionType: ConversionSPLToSigma,
		ProfileID:      profileID,
		InputContent:   splText,
		CreatedAt:      time.Now(),
	}

	p, err := o.resolveProfile(profileID)
	if err != nil {
		return resp, err
	}
	if p != nil {
		resp.ProfileID = p.ID
	}

	out, err := splrecognize.Recognize(splText, p)
	if err != nil {
		return resp, err
	}

	resp.OutputSigma = out.YAML
	resp.CorrelationNotes = append(resp.CorrelationNotes, out.CorrelationNotes...)
	return resp, nil
}

// TextToSigma post-processes free text with the configured LLM adapter,
// strictly as an alternate input path — never on the forward SPL emission
// path (spec.md §9).
func (o *Orchestrator) TextToSigma(ctx context.Context, text, profileID string) (ConversionResponse, error) {
	start := time.Now()
	resp := ConversionResponse{
		ConversionType: ConversionTextToSigma,
		ProfileID:      profileID,
		InputContent:   text,
		CreatedAt:      time.Now(),
	}

	draft, err := o.LLM.Generate(ctx, text, "Produce a Sigma detection rule in YAML for this description.")
	if err != nil {
		o.observe(ConversionTextToSigma, start, txerr.Wrap(txerr.LlmUnavailable, "", err))
		return resp, txerr.Wrap(txerr.LlmUnavailable, "", err)
	}

	resp.OutputSigma = draft
	resp.LLMUsed = true
	o.observe(ConversionTextToSigma, start, nil)
	o.recordHistory(resp)
	return resp, nil
}

func (o *Orchestrator) observe(direction string, start time.Time, err error) {
	if o.Metrics == nil {
		return
	}
	o.Metrics.Conversions.WithLabelValues(direction).Inc()
	o.Metrics.ConversionLatency.WithLabelValues(direction).Observe(time.Since(start).Seconds())
	if err != nil {
		kind := "Unknown"
		if te, ok := err.(*txerr.Error); ok {
			kind = string(te.Kind)
		}
		o.Metrics.ConversionErrors.WithLabelValues(direction, kind).Inc()
	}
}

func (o *Orchestrator) recordHistory(resp ConversionResponse) {
	if o.History == nil {
		return
	}
	rec := store.ConversionRecord{
		Direction: resp.ConversionType,
		Input:     resp.InputContent,
		Output:    firstNonEmpty(resp.OutputSPL, resp.OutputSigma),
		ProfileID: resp.ProfileID,
		GapCount:  len(resp.Gaps),
		LLMUsed:   resp.LLMUsed,
	}
	if _, err := o.History.Append(rec); err != nil {
		logger.Warnf("failed to record conversion history: %v", err)
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func knownFieldPool(p *profile.Profile) []string {
	var out []string
	if p != nil {
		for _, m := range p.Mappings {
			out = append(out, m.TargetField)
		}
	}
	out = append(out, cimFieldPool()...)
	return out
}

// cimFieldPool lists common CIM field names, used by the gap analyzer to
// suggest alternatives for an unresolved field when no profile candidate
// fits.
func cimFieldPool() []string {
	return []string{
		"process", "process_name", "process_path", "process_guid",
		"parent_process", "parent_process_path", "parent_process_id",
		"command_line", "user", "dest", "src", "dest_ip", "src_ip",
		"dest_port", "src_port", "transport", "direction",
		"file_name", "file_path", "registry_path", "registry_value_name",
		"query", "answer", "dll", "dll_path", "signed",
	}
}
