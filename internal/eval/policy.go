package eval

// Site names a calling context that evaluates game-definition expressions.
type Site string

const (
	// SiteExecution is any evaluation inside applyMove.
	SiteExecution Site = "execution"

	// SiteLegalityDiscovery is an actor/pre/legality/cost predicate
	// evaluated while enumerating legal moves.
	SiteLegalityDiscovery Site = "legalityDiscovery"

	// SiteParamDomain is an action parameter domain enumerated during
	// discovery.
	SiteParamDomain Site = "paramDomain"

	// SiteDecisionProbe is the effect walk that looks for the next pending
	// decision in legalChoices.
	SiteDecisionProbe Site = "decisionProbe"

	// SiteGrantFilter is a free-operation zone filter probed during
	// discovery.
	SiteGrantFilter Site = "grantFilter"
)

// Disposition is what a caller does with an evaluation error.
type Disposition string

const (
	// Propagate returns the error to the caller of the kernel.
	Propagate Disposition = "propagate"

	// Defer treats the candidate as not yet decidable: it stays listed and
	// is decided once more parameters are known.
	Defer Disposition = "defer"

	// Inapplicable drops the candidate without aborting enumeration.
	Inapplicable Disposition = "inapplicable"
)

type policyKey struct {
	site Site
	code Code
}

// policy is the single deferred-error decision table. Pairs not listed
// propagate. Execution has no entries: a real move never recovers silently.
var policy = map[policyKey]Disposition{
	{SiteLegalityDiscovery, CodeMissingBinding}:      Defer,
	{SiteLegalityDiscovery, CodeDivisionByZero}:      Inapplicable,
	{SiteLegalityDiscovery, CodeSelectorCardinality}: Inapplicable,
	{SiteLegalityDiscovery, CodeTypeMismatch}:        Inapplicable,

	{SiteParamDomain, CodeMissingBinding}:      Inapplicable,
	{SiteParamDomain, CodeDivisionByZero}:      Inapplicable,
	{SiteParamDomain, CodeSelectorCardinality}: Inapplicable,

	{SiteDecisionProbe, CodeMissingBinding}:      Defer,
	{SiteDecisionProbe, CodeDivisionByZero}:      Inapplicable,
	{SiteDecisionProbe, CodeSelectorCardinality}: Inapplicable,

	{SiteGrantFilter, CodeMissingBinding}:      Defer,
	{SiteGrantFilter, CodeDivisionByZero}:      Inapplicable,
	{SiteGrantFilter, CodeSelectorCardinality}: Inapplicable,
}

// Classify decides how a caller at site handles err. Errors that are not
// evaluation errors always propagate.
//
// A zero-result cardinality failure of a binding-derived selector during a
// decision probe is deferred: the binding is produced by a decision that
// has not been answered yet, so the selector is undecidable rather than
// empty.
func Classify(site Site, err error) Disposition {
	ee, ok := AsError(err)
	if !ok {
		return Propagate
	}
	if site == SiteDecisionProbe && ee.Code == CodeSelectorCardinality {
		count, _ := ee.Details["resolvedCount"].(int)
		derived, _ := ee.Details["bindingDerived"].(bool)
		outside, _ := ee.Details["outsidePlayerCount"].(bool)
		if count == 0 && derived && !outside {
			return Defer
		}
	}
	if d, ok := policy[policyKey{site, ee.Code}]; ok {
		return d
	}
	return Propagate
}
