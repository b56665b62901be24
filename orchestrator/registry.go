package orchestrator

import (
	"sort"

	"github.com/wudi/drawcheck/validation"
)

// Domain names one validation domain. Domains are the validators' names:
// gdt, welding, material, equipmentChecklist.
type Domain string

const (
	DomainGDT       Domain = "gdt"
	DomainWelding   Domain = "welding"
	DomainMaterial  Domain = "material"
	DomainChecklist Domain = "equipmentChecklist"
)

// Registry maps domains to their validators. Built once at startup; read-only
// afterwards.
type Registry struct {
	validators map[Domain]validation.Validator
}

// NewRegistry builds a registry from the given validators, keyed by
// Validator.Name(). A later validator with the same name replaces an earlier
// one.
func NewRegistry(validators ...validation.Validator) *Registry {
	r := &Registry{validators: make(map[Domain]validation.Validator, len(validators))}
	for _, v := range validators {
		r.validators[Domain(v.Name())] = v
	}
	return r
}

// Available returns the registered domains in lexical order.
func (r *Registry) Available() []Domain {
	out := make([]Domain, 0, len(r.validators))
	for d := range r.validators {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns the validator for a domain.
func (r *Registry) Get(d Domain) (validation.Validator, bool) {
	v, ok := r.validators[d]
	return v, ok
}

// Resolve splits a requested check set into runnable validators and missing
// domains. An empty check set selects every registered validator. Order
// follows the request, deduplicated; the full set resolves in lexical order.
func (r *Registry) Resolve(checks []Domain) (run []validation.Validator, missing []Domain) {
	if len(checks) == 0 {
		for _, d := range r.Available() {
			run = append(run, r.validators[d])
		}
		return run, nil
	}
	seen := make(map[Domain]bool, len(checks))
	for _, d := range checks {
		if seen[d] {
			continue
		}
		seen[d] = true
		if v, ok := r.validators[d]; ok {
			run = append(run, v)
		} else {
			missing = append(missing, d)
		}
	}
	return run, missing
}
