package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tabula/internal/ir"
)

// Scenario defines a conformance test scenario: a game, a seed, a scripted
// list of moves with their expected outcomes and assertions on the final
// state and the move trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Game is the path of the game definition (.json, .yaml or .cue),
	// relative to the scenario file.
	Game string `yaml:"game"`

	Seed    int64 `yaml:"seed"`
	Players int   `yaml:"players"`

	// Moves are applied in order. A move expected to be rejected leaves the
	// state unchanged and the run continues.
	Moves []MoveStep `yaml:"moves"`

	// Autoplay lets random agents continue after the scripted moves.
	Autoplay *Autoplay `yaml:"autoplay,omitempty"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// MoveStep is one scripted move.
type MoveStep struct {
	Action        string         `yaml:"action"`
	Params        map[string]any `yaml:"params,omitempty"`
	FreeOperation bool           `yaml:"freeOperation,omitempty"`
	Compound      *MoveStep      `yaml:"compound,omitempty"`

	// ExpectIllegal is the expected ILLEGAL_MOVE reason, or "any".
	ExpectIllegal string `yaml:"expectIllegal,omitempty"`

	// ExpectError is the expected error code of a move that fails for
	// another reason, e.g. EFFECT_BUDGET_EXCEEDED.
	ExpectError string `yaml:"expectError,omitempty"`
}

// Move converts the step to a kernel move.
func (s MoveStep) Move() (ir.Move, error) {
	params := ir.Object{}
	for k, v := range s.Params {
		val, err := ir.FromGo(v)
		if err != nil {
			return ir.Move{}, fmt.Errorf("param %s: %w", k, err)
		}
		params[k] = val
	}
	m := ir.Move{ActionID: s.Action, Params: params, FreeOperation: s.FreeOperation}
	if s.Compound != nil {
		sub, err := s.Compound.Move()
		if err != nil {
			return ir.Move{}, fmt.Errorf("compound: %w", err)
		}
		m.Compound = &sub
	}
	return m, nil
}

// Autoplay configures random play after the scripted moves.
type Autoplay struct {
	// Seed seeds the agents' own rng streams; agent p uses Seed+p.
	Seed     int64 `yaml:"seed"`
	MaxMoves int   `yaml:"maxMoves"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	//   - "var": a global, player or zone var equals Equals
	//   - "zone_count": zone Zone holds Equals tokens
	//   - "phase": the current phase is Phase
	//   - "active_player": the active player is Player
	//   - "terminal": the game ended with Result (and Player for a win),
	//     or is still running when Result is "none"
	//   - "trace_contains": an applied move of Action exists
	//   - "trace_order": applied moves of Actions appear in order
	//   - "trace_count": Action was applied exactly Count times
	//   - "trigger_count": Trigger fired exactly Count times
	//   - "legal_moves": Count legal moves exist, or Action is among them
	Type string `yaml:"type"`

	Scope   string   `yaml:"scope,omitempty"`
	Player  *int     `yaml:"player,omitempty"`
	Zone    string   `yaml:"zone,omitempty"`
	Var     string   `yaml:"var,omitempty"`
	Equals  *int64   `yaml:"equals,omitempty"`
	Phase   string   `yaml:"phase,omitempty"`
	Result  string   `yaml:"result,omitempty"`
	Action  string   `yaml:"action,omitempty"`
	Actions []string `yaml:"actions,omitempty"`
	Trigger string   `yaml:"trigger,omitempty"`
	Count   *int     `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertVar           = "var"
	AssertZoneCount     = "zone_count"
	AssertPhase         = "phase"
	AssertActivePlayer  = "active_player"
	AssertTerminal      = "terminal"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertTriggerCount  = "trigger_count"
	AssertLegalMoves    = "legal_moves"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The game path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Game != "" && !filepath.IsAbs(scenario.Game) {
		scenario.Game = filepath.Join(filepath.Dir(path), scenario.Game)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Game == "" {
		return fmt.Errorf("game is required")
	}
	if s.Players < 1 {
		return fmt.Errorf("players must be at least 1, got %d", s.Players)
	}
	if len(s.Moves) == 0 && s.Autoplay == nil {
		return fmt.Errorf("moves list is required unless autoplay is set")
	}

	for i, m := range s.Moves {
		if err := validateMoveStep(m); err != nil {
			return fmt.Errorf("moves[%d]: %w", i, err)
		}
	}
	if s.Autoplay != nil && s.Autoplay.MaxMoves < 1 {
		return fmt.Errorf("autoplay.maxMoves must be at least 1")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateMoveStep(m MoveStep) error {
	if m.Action == "" {
		return fmt.Errorf("action is required")
	}
	if m.ExpectIllegal != "" && m.ExpectError != "" {
		return fmt.Errorf("expectIllegal and expectError are mutually exclusive")
	}
	if m.Compound != nil {
		return validateMoveStep(*m.Compound)
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertVar:
		if a.Var == "" || a.Equals == nil {
			return fmt.Errorf("var assertion needs var and equals")
		}
		switch a.Scope {
		case "global":
		case "player":
			if a.Player == nil {
				return fmt.Errorf("player var assertion needs player")
			}
		case "zone":
			if a.Zone == "" {
				return fmt.Errorf("zone var assertion needs zone")
			}
		default:
			return fmt.Errorf("var assertion scope must be global, player or zone, got %q", a.Scope)
		}
	case AssertZoneCount:
		if a.Zone == "" || a.Equals == nil {
			return fmt.Errorf("zone_count assertion needs zone and equals")
		}
	case AssertPhase:
		if a.Phase == "" {
			return fmt.Errorf("phase assertion needs phase")
		}
	case AssertActivePlayer:
		if a.Player == nil {
			return fmt.Errorf("active_player assertion needs player")
		}
	case AssertTerminal:
		if a.Result == "" {
			return fmt.Errorf("terminal assertion needs result")
		}
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("trace_contains assertion needs action")
		}
	case AssertTraceOrder:
		if len(a.Actions) < 2 {
			return fmt.Errorf("trace_order assertion needs at least 2 actions")
		}
	case AssertTraceCount:
		if a.Action == "" || a.Count == nil {
			return fmt.Errorf("trace_count assertion needs action and count")
		}
	case AssertTriggerCount:
		if a.Trigger == "" || a.Count == nil {
			return fmt.Errorf("trigger_count assertion needs trigger and count")
		}
	case AssertLegalMoves:
		if a.Action == "" && a.Count == nil {
			return fmt.Errorf("legal_moves assertion needs action or count")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
