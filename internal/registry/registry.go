// Package registry implements the model registry: a
// name -> variant-set mapping with weighted/round-robin/random/first
// selection, profile filtering, and env-var expansion of
// provider_config values at resolution time (never at load time).
package registry

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Strategy is one of the four selection algorithms.
type Strategy string

const (
	StrategyFirst          Strategy = "first"
	StrategyRoundRobin     Strategy = "round_robin"
	StrategyRandom         Strategy = "random"
	StrategyWeightedRandom Strategy = "weighted_random"
)

// VariantSpec is one configured realization of a logical model name,
// as loaded from the model-config YAML.
type VariantSpec struct {
	Name           string
	Provider       string
	Model          string
	Weight         int
	Strategy       Strategy // override; empty means "use registry default"
	EnsureToolCall bool
	Profile        string
	ProviderConfig map[string]interface{}
}

// Variant is a resolved selection result: the upstream model string to
// rewrite body.model to, the provider adapter key, and the
// ensure-tool-call flag, plus the provider config with any "$NAME"
// values expanded against the process environment.
type Variant struct {
	Name           string
	Provider       string
	UpstreamModel  string
	EnsureToolCall bool
	Profile        string
	ProviderConfig map[string]interface{}
}

// entry is the internal per-name bookkeeping: its variant list plus a
// monotonically-advancing round-robin cursor. The cursor is the only
// mutable field on a read-mostly structure, so it is a
// dedicated atomic rather than a mutex-guarded int.
type entry struct {
	variants []VariantSpec
	cursor   atomic.Uint64
}

// Registry maps logical model names to their variant sets. Built once
// from a loaded model-config file; safe for concurrent Resolve calls.
// Swap replaces the whole table atomically to support config hot
// reload without locking resolvers.
type Registry struct {
	defaultStrategy Strategy
	table           atomic.Pointer[map[string]*entry]
}

// New builds a Registry from specs, grouping by Name in declaration
// order. defaultStrategy falls back to StrategyFirst when empty.
func New(specs []VariantSpec, defaultStrategy Strategy) (*Registry, error) {
	if defaultStrategy == "" {
		defaultStrategy = StrategyFirst
	}
	r := &Registry{defaultStrategy: defaultStrategy}
	if err := r.Swap(specs); err != nil {
		return nil, err
	}
	return r, nil
}

// Swap atomically replaces the variant table, e.g. on a model-config
// file change. Round-robin cursors reset to zero for names whose
// variant set changed identity; names untouched by a reload would
// need cursor carry-over, which this implementation does not attempt:
// selection only promises monotonic advance, not fairness across
// reloads.
func (r *Registry) Swap(specs []VariantSpec) error {
	table := make(map[string]*entry)
	for _, s := range specs {
		if s.Name == "" {
			return fmt.Errorf("registry: variant with empty name")
		}
		if s.Provider == "" {
			return fmt.Errorf("registry: variant %q has no provider", s.Name)
		}
		if s.Weight <= 0 {
			s.Weight = 1
		}
		e, ok := table[s.Name]
		if !ok {
			e = &entry{}
			table[s.Name] = e
		}
		e.variants = append(e.variants, s)
	}
	r.table.Store(&table)
	return nil
}

// Resolve selects a variant for name, optionally filtered by profile.
// profile acts as a hint, not a hard partition: an
// empty post-filter result falls back to the unfiltered variant set.
func (r *Registry) Resolve(name, profile string) (*Variant, error) {
	tablePtr := r.table.Load()
	if tablePtr == nil {
		return nil, fmt.Errorf("registry: not initialized")
	}
	e, ok := (*tablePtr)[name]
	if !ok || len(e.variants) == 0 {
		return nil, fmt.Errorf("registry: model %q is not configured", name)
	}

	candidates := e.variants
	if profile != "" {
		if filtered := filterProfile(e.variants, profile); len(filtered) > 0 {
			candidates = filtered
		}
	}

	strategy := r.defaultStrategy
	if candidates[0].Strategy != "" {
		strategy = candidates[0].Strategy
	}

	spec, err := selectVariant(candidates, strategy, e)
	if err != nil {
		return nil, err
	}

	expanded, err := expandEnvDeep(spec.ProviderConfig)
	if err != nil {
		return nil, fmt.Errorf("registry: resolve %q: %w", name, err)
	}

	return &Variant{
		Name:           spec.Name,
		Provider:       spec.Provider,
		UpstreamModel:  spec.Model,
		EnsureToolCall: spec.EnsureToolCall,
		Profile:        spec.Profile,
		ProviderConfig: expanded,
	}, nil
}

// ModelSummary describes one configured logical model name for a
// listing endpoint.
type ModelSummary struct {
	Name     string
	Strategy Strategy
	Variants int
}

// MarshalJSON renders ModelSummary in the wire shape GET /v1/models
// serves: {id,name,object:"model",metadata:{strategy,variants}}.
func (m ModelSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Object   string `json:"object"`
		Metadata struct {
			Strategy Strategy `json:"strategy"`
			Variants int      `json:"variants"`
		} `json:"metadata"`
	}{
		ID:     m.Name,
		Name:   m.Name,
		Object: "model",
		Metadata: struct {
			Strategy Strategy `json:"strategy"`
			Variants int      `json:"variants"`
		}{Strategy: m.Strategy, Variants: m.Variants},
	})
}

// ListModels returns a summary of every configured logical model name,
// sorted by name, for the registry's current table snapshot.
func (r *Registry) ListModels() []ModelSummary {
	tablePtr := r.table.Load()
	if tablePtr == nil {
		return nil
	}
	names := make([]string, 0, len(*tablePtr))
	for name := range *tablePtr {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ModelSummary, 0, len(names))
	for _, name := range names {
		e := (*tablePtr)[name]
		strategy := r.defaultStrategy
		if len(e.variants) > 0 && e.variants[0].Strategy != "" {
			strategy = e.variants[0].Strategy
		}
		out = append(out, ModelSummary{Name: name, Strategy: strategy, Variants: len(e.variants)})
	}
	return out
}

func filterProfile(variants []VariantSpec, profile string) []VariantSpec {
	var out []VariantSpec
	for _, v := range variants {
		if v.Profile == profile {
			out = append(out, v)
		}
	}
	return out
}

var randMu sync.Mutex

func selectVariant(candidates []VariantSpec, strategy Strategy, e *entry) (VariantSpec, error) {
	switch strategy {
	case StrategyRoundRobin:
		idx := e.cursor.Add(1) - 1
		return candidates[int(idx%uint64(len(candidates)))], nil

	case StrategyRandom:
		randMu.Lock()
		idx := rand.Intn(len(candidates))
		randMu.Unlock()
		return candidates[idx], nil

	case StrategyWeightedRandom:
		return weightedPick(candidates), nil

	case StrategyFirst, "":
		return candidates[0], nil

	default:
		return VariantSpec{}, fmt.Errorf("registry: unknown strategy %q", strategy)
	}
}

// weightedPick implements inverse-CDF selection by weight.
func weightedPick(candidates []VariantSpec) VariantSpec {
	total := 0
	for _, c := range candidates {
		total += c.Weight
	}
	if total <= 0 {
		return candidates[0]
	}

	randMu.Lock()
	r := rand.Intn(total)
	randMu.Unlock()

	acc := 0
	for _, c := range candidates {
		acc += c.Weight
		if r < acc {
			return c
		}
	}
	return candidates[len(candidates)-1]
}

// expandEnvDeep recursively replaces "$NAME" string values with the
// process environment's NAME value, erroring if the variable is
// unset. Expansion happens at Resolve time, never at load time.
func expandEnvDeep(v map[string]interface{}) (map[string]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	out := make(map[string]interface{}, len(v))
	for k, val := range v {
		expanded, err := expandEnvValue(val)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = expanded
	}
	return out, nil
}

func expandEnvValue(v interface{}) (interface{}, error) {
	switch vv := v.(type) {
	case string:
		if strings.HasPrefix(vv, "$") && len(vv) > 1 {
			name := vv[1:]
			val, ok := os.LookupEnv(name)
			if !ok {
				return nil, fmt.Errorf("environment variable %q is not set", name)
			}
			return val, nil
		}
		return vv, nil
	case map[string]interface{}:
		return expandEnvDeep(vv)
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, item := range vv {
			expanded, err := expandEnvValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return v, nil
	}
}
