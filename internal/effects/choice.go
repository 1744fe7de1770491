package effects

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
)

// Illegal-move reasons raised by choice effects.
const (
	ReasonEmptyChoiceDomain = "emptyChoiceDomain"
	ReasonDomainTooSmall    = "choiceDomainTooSmall"
	ReasonInvalidDecision   = "invalidDecision"
)

// DecisionPrefix prefixes decision ids derived from a bind name.
const DecisionPrefix = "decision:"

var templateRef = regexp.MustCompile(`\{(\$[A-Za-z0-9_]+)\}`)

// IsTemplate reports whether a bind name is parameterized by other
// bindings, e.g. "$target@{$zone}".
func IsTemplate(bind string) bool {
	return templateRef.MatchString(bind)
}

// DecisionID composes the decision id of a choice and the binding name the
// chosen value is stored under.
//
// A static bind yields internalID (or "decision:"+bind). A template bind is
// resolved against the current bindings and yields
// "<internalID or decision:template>::<resolved bind>", so each loop
// iteration gets its own addressable decision.
func DecisionID(ctx *eval.Context, internalID, bind string) (id, resolved string, err error) {
	base := internalID
	if base == "" {
		base = DecisionPrefix + bind
	}
	if !IsTemplate(bind) {
		return base, bind, nil
	}
	var firstErr error
	resolved = templateRef.ReplaceAllStringFunc(bind, func(m string) string {
		name := templateRef.FindStringSubmatch(m)[1]
		v, err := ctx.Lookup(name)
		if err == nil {
			var s string
			if s, err = eval.StringForm(v); err == nil {
				return s
			}
		}
		if firstErr == nil {
			firstErr = err
		}
		return m
	})
	if firstErr != nil {
		return "", "", firstErr
	}
	return base + "::" + resolved, resolved, nil
}

func (x *Execution) chooseOne(n ir.ChooseOne, b ir.Object, path string) (ir.Object, *ChoicePending, error) {
	ctx := x.eval(b)
	id, bindAs, err := DecisionID(ctx, n.InternalDecisionID, n.Bind)
	if err != nil {
		return b, nil, x.wrap(path, err)
	}
	options, err := x.options(ctx, n.Options, path)
	if err != nil {
		return b, nil, err
	}
	if len(options) == 0 {
		return b, nil, fault.IllegalMove(x.Ctx.ActionID, ReasonEmptyChoiceDomain, map[string]any{"decisionId": id, "effectPath": path})
	}

	supplied, ok := x.Ctx.Decisions[id]
	if !ok {
		return b, &ChoicePending{
			DecisionID: id,
			Name:       bindAs,
			Kind:       KindChooseOne,
			Options:    options,
			Min:        1,
			Max:        1,
			EffectPath: path,
		}, nil
	}
	chosen, ok := member(options, supplied)
	if !ok {
		return b, nil, fault.IllegalMove(x.Ctx.ActionID, ReasonInvalidDecision, map[string]any{
			"decisionId": id,
			"value":      ir.ValueKey(supplied),
		})
	}
	x.record(TraceChoice, path, map[string]any{"decisionId": id, "value": ir.ValueKey(chosen)})
	out := b.Clone()
	out[bindAs] = chosen
	return out, nil, nil
}

func (x *Execution) chooseN(n ir.ChooseN, b ir.Object, path string) (ir.Object, *ChoicePending, error) {
	ctx := x.eval(b)
	id, bindAs, err := DecisionID(ctx, n.InternalDecisionID, n.Bind)
	if err != nil {
		return b, nil, x.wrap(path, err)
	}
	options, err := x.options(ctx, n.Options, path)
	if err != nil {
		return b, nil, err
	}
	lo, hi, err := x.cardinality(ctx, n, len(options), path)
	if err != nil {
		return b, nil, err
	}
	if lo > len(options) {
		reason := ReasonDomainTooSmall
		if len(options) == 0 {
			reason = ReasonEmptyChoiceDomain
		}
		return b, nil, fault.IllegalMove(x.Ctx.ActionID, reason, map[string]any{
			"decisionId": id,
			"min":        lo,
			"options":    len(options),
		})
	}

	supplied, ok := x.Ctx.Decisions[id]
	if !ok {
		return b, &ChoicePending{
			DecisionID: id,
			Name:       bindAs,
			Kind:       KindChooseN,
			Options:    options,
			Min:        lo,
			Max:        hi,
			EffectPath: path,
		}, nil
	}
	invalid := func(why string) error {
		return fault.IllegalMove(x.Ctx.ActionID, ReasonInvalidDecision, map[string]any{
			"decisionId": id,
			"value":      ir.ValueKey(supplied),
			"detail":     why,
		})
	}
	arr, ok := supplied.(ir.Array)
	if !ok {
		return b, nil, invalid("expected an array")
	}
	if len(arr) < lo || len(arr) > hi {
		return b, nil, invalid(fmt.Sprintf("expected %d..%d items, got %d", lo, hi, len(arr)))
	}
	chosen := make(ir.Array, 0, len(arr))
	seen := make(map[string]bool, len(arr))
	for _, v := range arr {
		key := ir.ValueKey(v)
		if seen[key] {
			return b, nil, invalid("duplicate item " + key)
		}
		seen[key] = true
		opt, ok := member(options, v)
		if !ok {
			return b, nil, invalid("not an option: " + key)
		}
		chosen = append(chosen, opt)
	}
	x.record(TraceChoice, path, map[string]any{"decisionId": id, "value": ir.ValueKey(chosen)})
	out := b.Clone()
	out[bindAs] = chosen
	return out, nil, nil
}

// options evaluates a choice domain. Domains that cannot round-trip through
// a move parameter are rejected.
func (x *Execution) options(ctx *eval.Context, q ir.Query, path string) ([]ir.Value, error) {
	if _, shape := eval.Describe(q); shape == eval.ShapeObject {
		return nil, x.wrap(path, eval.NewError(eval.CodeTypeMismatch, map[string]any{"shape": string(shape)},
			"choice options of shape %s cannot be move parameters", shape))
	}
	values, err := eval.Query(ctx, q)
	if err != nil {
		return nil, x.wrap(path, err)
	}
	for _, v := range values {
		if shape := eval.ShapeOf(v); !eval.MoveParamSafe(shape) {
			return nil, x.wrap(path, eval.NewError(eval.CodeTypeMismatch, map[string]any{"shape": string(shape)},
				"choice option %s has shape %s", ir.ValueKey(v), shape))
		}
	}
	return values, nil
}

func (x *Execution) cardinality(ctx *eval.Context, n ir.ChooseN, count int, path string) (int, int, error) {
	intOr := func(e *ir.Expr, def int) (int, error) {
		if e == nil {
			return def, nil
		}
		v, err := eval.Int(ctx, *e)
		if err != nil {
			return 0, x.wrap(path, err)
		}
		return int(v), nil
	}
	if n.N != nil {
		v, err := intOr(n.N, 0)
		if err != nil {
			return 0, 0, err
		}
		if v < 0 {
			return 0, 0, x.wrap(path, fmt.Errorf("chooseN count must be non-negative, got %d", v))
		}
		return v, v, nil
	}
	lo, err := intOr(n.Min, 0)
	if err != nil {
		return 0, 0, err
	}
	hi, err := intOr(n.Max, count)
	if err != nil {
		return 0, 0, err
	}
	if lo < 0 || hi < lo {
		return 0, 0, x.wrap(path, fmt.Errorf("chooseN bounds %d..%d are invalid", lo, hi))
	}
	return lo, min(hi, max(count, lo)), nil
}

// member returns the option equal to v. Options keep their own type, so a
// token id supplied as a string binds as a token.
func member(options []ir.Value, v ir.Value) (ir.Value, bool) {
	key := ir.ValueKey(v)
	for _, o := range options {
		if ir.ValueKey(o) == key {
			return o, true
		}
	}
	return nil, false
}

// SplitDecisionID returns the base and resolved bind of a composed id.
func SplitDecisionID(id string) (base, resolved string, templated bool) {
	base, resolved, templated = strings.Cut(id, "::")
	return base, resolved, templated
}
