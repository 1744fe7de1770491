package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/tabula/internal/agent"
	"github.com/roach88/tabula/internal/compiler"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/kernel"
	"github.com/roach88/tabula/internal/session"
	"github.com/roach88/tabula/internal/store"
	"github.com/roach88/tabula/internal/testutil"
)

// Harness is the test execution engine for one scenario run.
// It runs the scenario against a real session over an in-memory store, with
// a deterministic clock and game ids.
type Harness struct {
	def    *ir.GameDef
	mgr    *session.Manager
	sess   *session.Session
	opts   []kernel.Option
	result *Result
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load and validate the game definition
// 2. Start a game from the scenario seed
// 3. Apply the scripted moves, checking each expected outcome
// 4. Let autoplay agents continue, if configured
// 5. Replay the stored log and compare the final hash
// 6. Evaluate assertions
//
// The returned error is reserved for scenarios that cannot run at all; a
// failing expectation is reported in Result.Errors.
func Run(scenario *Scenario, opts ...kernel.Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext is Run with a context.
func RunContext(ctx context.Context, scenario *Scenario, opts ...kernel.Option) (*Result, error) {
	def, err := compiler.LoadGameDef(scenario.Game)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	st, err := store.Open(":memory:", store.WithClock(testutil.NewDeterministicClock().Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	mgr := session.NewManager(st,
		session.WithIDGenerator(testutil.NewSequentialIDs(scenario.Name)),
		session.WithKernelOptions(opts...),
	)
	sess, err := mgr.Start(ctx, def, scenario.Seed, scenario.Players)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	h := &Harness{def: def, mgr: mgr, sess: sess, opts: opts, result: NewResult()}
	h.result.GameID = sess.ID()

	if err := h.executeMoves(ctx, scenario.Moves); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	if scenario.Autoplay != nil {
		if err := h.autoplay(ctx, *scenario.Autoplay, scenario.Players); err != nil {
			return nil, fmt.Errorf("scenario %s: autoplay: %w", scenario.Name, err)
		}
	}
	if err := h.verifyReplay(ctx); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	h.result.Final = sess.State()
	if h.result.Terminal, err = sess.Terminal(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	for _, msg := range EvaluateAssertions(h.result, def, scenario.Assertions, opts...) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

// executeMoves applies the scripted moves. Unexpected outcomes are recorded
// and the run continues from the unchanged state.
func (h *Harness) executeMoves(ctx context.Context, steps []MoveStep) error {
	for i, step := range steps {
		move, err := step.Move()
		if err != nil {
			return fmt.Errorf("moves[%d]: %w", i, err)
		}
		ev, err := h.apply(ctx, move)
		if err != nil {
			return fmt.Errorf("moves[%d]: %w", i, err)
		}
		if msg := checkOutcome(step, ev.Outcome); msg != "" {
			h.result.AddError(fmt.Sprintf("moves[%d] %s: %s", i, step.Action, msg))
		}
	}
	return nil
}

// apply applies one move and records it in the trace. Kernel rejections are
// outcomes; anything else (a store failure) is returned.
func (h *Harness) apply(ctx context.Context, move ir.Move) (TraceEvent, error) {
	ev := TraceEvent{
		Step:   len(h.result.Trace) + 1,
		Player: h.sess.State().ActivePlayer,
		Action: move.ActionID,
		Params: move.Params,
	}
	res, err := h.sess.Apply(ctx, move)
	switch {
	case err == nil:
		ev.Outcome = OutcomeApplied
		ev.Seq = h.sess.Seq()
		ev.Hash = res.State.StateHash
		for _, e := range res.TriggerLog {
			ev.Triggers = append(ev.Triggers, e.TriggerID)
		}
	default:
		re, ok := fault.As(err)
		if !ok {
			return ev, err
		}
		if re.Code == fault.CodeIllegalMove {
			ev.Outcome = "illegal:" + re.Reason()
		} else {
			ev.Outcome = "error:" + string(re.Code)
		}
	}
	h.result.Trace = append(h.result.Trace, ev)
	return ev, nil
}

// checkOutcome compares an outcome with a step's expectation and returns a
// message for a mismatch.
func checkOutcome(step MoveStep, outcome string) string {
	switch {
	case step.ExpectIllegal != "":
		reason, ok := strings.CutPrefix(outcome, "illegal:")
		if !ok || (step.ExpectIllegal != "any" && reason != step.ExpectIllegal) {
			return fmt.Sprintf("expected illegal:%s, got %s", step.ExpectIllegal, outcome)
		}
	case step.ExpectError != "":
		if outcome != "error:"+step.ExpectError {
			return fmt.Sprintf("expected error:%s, got %s", step.ExpectError, outcome)
		}
	case outcome != OutcomeApplied:
		return "expected applied, got " + outcome
	}
	return ""
}

// autoplay lets one random agent per seat continue the game.
func (h *Harness) autoplay(ctx context.Context, cfg Autoplay, players int) error {
	agents := make([]agent.Agent, players)
	for p := range agents {
		agents[p] = agent.NewRandom(cfg.Seed+int64(p), h.opts...)
	}
	_, err := agent.Play(ctx, &recordingGame{Session: h.sess, h: h}, agents, cfg.MaxMoves)
	return err
}

// recordingGame records the moves agents apply through it.
type recordingGame struct {
	*session.Session
	h *Harness
}

func (g *recordingGame) Apply(ctx context.Context, move ir.Move) (*kernel.Result, error) {
	ev, err := g.h.apply(ctx, move)
	if err != nil {
		return nil, err
	}
	g.h.result.Trace[len(g.h.result.Trace)-1].Auto = true
	if !ev.Applied() {
		return nil, fmt.Errorf("agent move %s rejected: %s", move.ActionID, ev.Outcome)
	}
	return &kernel.Result{State: g.Session.State()}, nil
}

// verifyReplay re-applies the stored log from the seed and checks that it
// reproduces the live final state.
func (h *Harness) verifyReplay(ctx context.Context) error {
	report, err := h.mgr.Replay(ctx, h.sess.ID(), nil)
	if err != nil {
		return err
	}
	if !report.OK() {
		h.result.AddError(fmt.Sprintf("replay diverged: %v", report.Divergence))
		return nil
	}
	if report.FinalHash != h.sess.State().StateHash {
		h.result.AddError(fmt.Sprintf("replay final hash %s, live %s", report.FinalHash, h.sess.State().StateHash))
	}
	return nil
}
