package config

import (
	"fmt"
	"strings"
)

// ResolveSeed picks the sampling seed. An explicit seed, from a flag or
// SHINGLE_SEED, wins over the plan's seed.
func ResolveSeed(seed int64, explicit bool, plan *Plan) int64 {
	if plan == nil || explicit {
		return seed
	}
	return plan.Seed
}

// ResolveStore picks the store backend and path. Each explicit value wins;
// otherwise a non-empty plan value replaces the default.
func ResolveStore(kind, path string, kindSet, pathSet bool, plan *Plan) (string, string) {
	if plan == nil {
		return kind, path
	}
	if !kindSet && plan.Store.Kind != "" {
		kind = plan.Store.Kind
	}
	if !pathSet && plan.Store.Path != "" {
		path = plan.Store.Path
	}
	return kind, path
}

// Only keeps the named encodings, in plan order. Names are trimmed; an
// unknown name leaves the plan unchanged and returns ErrInvalidPlan.
func (p *Plan) Only(names []string) error {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if _, ok := p.Entry(n); !ok {
			return fmt.Errorf("encoding %q is not in the plan: %w", n, ErrInvalidPlan)
		}
		keep[n] = true
	}
	filtered := make([]EncodingSpec, 0, len(keep))
	for _, e := range p.Encodings {
		if keep[e.Name] {
			filtered = append(filtered, e)
		}
	}
	p.Encodings = filtered
	return nil
}
