package kernel

import (
	"github.com/roach88/tabula/internal/effects"
	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/triggers"
)

// Default enumeration budgets.
const (
	DefaultMaxTemplates          = 1000
	DefaultMaxParamExpansions    = 10000
	DefaultMaxDecisionProbeSteps = 10000
	DefaultMaxDeferredPredicates = 1000
)

// Options bounds the resources of one kernel call.
type Options struct {
	MaxEffectOps          int
	MaxQueryResults       int
	MaxTriggerDepth       int
	MaxTemplates          int
	MaxParamExpansions    int
	MaxDecisionProbeSteps int
	MaxDeferredPredicates int
}

// DefaultOptions returns the default budgets.
func DefaultOptions() Options {
	return Options{
		MaxEffectOps:          effects.DefaultMaxEffectOps,
		MaxQueryResults:       eval.DefaultMaxQueryResults,
		MaxTriggerDepth:       triggers.DefaultMaxTriggerDepth,
		MaxTemplates:          DefaultMaxTemplates,
		MaxParamExpansions:    DefaultMaxParamExpansions,
		MaxDecisionProbeSteps: DefaultMaxDecisionProbeSteps,
		MaxDeferredPredicates: DefaultMaxDeferredPredicates,
	}
}

// Option configures a kernel call.
type Option func(*Options)

// WithOptions replaces every budget at once. Zero fields keep their
// defaults.
func WithOptions(o Options) Option {
	return func(dst *Options) {
		set := func(v int, field *int) {
			if v > 0 {
				*field = v
			}
		}
		set(o.MaxEffectOps, &dst.MaxEffectOps)
		set(o.MaxQueryResults, &dst.MaxQueryResults)
		set(o.MaxTriggerDepth, &dst.MaxTriggerDepth)
		set(o.MaxTemplates, &dst.MaxTemplates)
		set(o.MaxParamExpansions, &dst.MaxParamExpansions)
		set(o.MaxDecisionProbeSteps, &dst.MaxDecisionProbeSteps)
		set(o.MaxDeferredPredicates, &dst.MaxDeferredPredicates)
	}
}

// WithMaxEffectOps bounds primitive effect operations per move.
//
// Default: 10000 (effects.DefaultMaxEffectOps)
func WithMaxEffectOps(n int) Option {
	return func(o *Options) { o.MaxEffectOps = n }
}

// WithMaxQueryResults bounds the result set of any single query.
func WithMaxQueryResults(n int) Option {
	return func(o *Options) { o.MaxQueryResults = n }
}

// WithMaxTriggerDepth bounds trigger cascades.
//
// Default: 8 (triggers.DefaultMaxTriggerDepth)
func WithMaxTriggerDepth(n int) Option {
	return func(o *Options) { o.MaxTriggerDepth = n }
}

// WithMaxTemplates bounds the action templates legalMoves considers.
func WithMaxTemplates(n int) Option {
	return func(o *Options) { o.MaxTemplates = n }
}

// WithMaxParamExpansions bounds parameter combinations in legalMoves.
func WithMaxParamExpansions(n int) Option {
	return func(o *Options) { o.MaxParamExpansions = n }
}

// WithMaxDecisionProbeSteps bounds the effect operations legalChoices may
// spend simulating a move.
func WithMaxDecisionProbeSteps(n int) Option {
	return func(o *Options) { o.MaxDecisionProbeSteps = n }
}

// WithMaxDeferredPredicates bounds predicates legalMoves may leave
// undecided.
func WithMaxDeferredPredicates(n int) Option {
	return func(o *Options) { o.MaxDeferredPredicates = n }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := DefaultOptions()
	for _, p := range []struct{ v, def *int }{
		{&o.MaxEffectOps, &d.MaxEffectOps},
		{&o.MaxQueryResults, &d.MaxQueryResults},
		{&o.MaxTriggerDepth, &d.MaxTriggerDepth},
		{&o.MaxTemplates, &d.MaxTemplates},
		{&o.MaxParamExpansions, &d.MaxParamExpansions},
		{&o.MaxDecisionProbeSteps, &d.MaxDecisionProbeSteps},
		{&o.MaxDeferredPredicates, &d.MaxDeferredPredicates},
	} {
		if *p.v <= 0 {
			*p.v = *p.def
		}
	}
	return o
}
