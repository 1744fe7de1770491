package ir

// GameDef is the immutable, compiler-produced game definition.
// It is shared read-only by every kernel call and never mutated.
type GameDef struct {
	ID              string              `json:"id"`
	Players         PlayerRange         `json:"players"`
	Zones           []ZoneDef           `json:"zones"`
	TokenTypes      []TokenTypeDef      `json:"tokenTypes,omitempty"`
	GlobalVars      []VarDef            `json:"globalVars,omitempty"`
	PerPlayerVars   []VarDef            `json:"perPlayerVars,omitempty"`
	ZoneVars        []VarDef            `json:"zoneVars,omitempty"`
	Tables          map[string][]Object `json:"tables,omitempty"`
	Setup           []Effect            `json:"setup,omitempty"`
	TurnStructure   TurnStructure       `json:"turnStructure"`
	TurnOrder       TurnOrderDef        `json:"turnOrder"`
	Actions         []ActionDef         `json:"actions"`
	ActionPipelines []ActionPipelineDef `json:"actionPipelines,omitempty"`
	Triggers        []TriggerDef        `json:"triggers,omitempty"`
	EndConditions   []EndCondition      `json:"endConditions,omitempty"`
}

// PlayerRange bounds the supported player count.
type PlayerRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Zone ownership.
const (
	OwnerNone   = "none"
	OwnerPlayer = "player"
)

// ZoneDef declares a zone family. Player-owned zones are instantiated once
// per player as "<id>:<player>", unowned zones as "<id>:none".
type ZoneDef struct {
	ID       string   `json:"id"`
	Owner    string   `json:"owner,omitempty"`
	Ordering string   `json:"ordering,omitempty"`
	Adjacent []string `json:"adjacent,omitempty"`
}

// TokenTypeDef declares a token type and its default properties.
type TokenTypeDef struct {
	ID    string `json:"id"`
	Props Object `json:"props,omitempty"`
}

// VarDef declares an integer variable with optional clamping bounds.
type VarDef struct {
	Name string `json:"name"`
	Init int64  `json:"init"`
	Min  *int64 `json:"min,omitempty"`
	Max  *int64 `json:"max,omitempty"`
}

// Clamp limits v to the declared bounds.
func (d VarDef) Clamp(v int64) int64 {
	if d.Min != nil && v < *d.Min {
		v = *d.Min
	}
	if d.Max != nil && v > *d.Max {
		v = *d.Max
	}
	return v
}

// TurnStructure lists the phases of a turn in order.
type TurnStructure struct {
	Phases []PhaseDef `json:"phases"`
}

// PhaseDef declares a phase; OnEnter runs each time the phase is entered.
type PhaseDef struct {
	ID      string   `json:"id"`
	OnEnter []Effect `json:"onEnter,omitempty"`
}

// TurnOrderType discriminates the turn-order runtime.
type TurnOrderType string

const (
	TurnOrderRoundRobin TurnOrderType = "roundRobin"
	TurnOrderCardDriven TurnOrderType = "cardDriven"
)

// TurnOrderDef configures turn order. An empty Type means round-robin.
type TurnOrderDef struct {
	Type       TurnOrderType  `json:"type,omitempty"`
	CardDriven *CardDrivenDef `json:"cardDriven,omitempty"`
}

// Kind returns the effective turn-order type.
func (t TurnOrderDef) Kind() TurnOrderType {
	if t.Type == "" {
		return TurnOrderRoundRobin
	}
	return t.Type
}

// CardDrivenDef configures the card-driven turn order.
type CardDrivenDef struct {
	SeatOrder []int `json:"seatOrder,omitempty"`
}

// ParamDef declares a move parameter and its option domain.
type ParamDef struct {
	Name   string `json:"name"`
	Domain Query  `json:"domain"`
}

// Limit scopes.
const (
	LimitTurn  = "turn"
	LimitPhase = "phase"
	LimitGame  = "game"
)

// LimitDef caps how often an action may be used per scope.
type LimitDef struct {
	Scope string `json:"scope"`
	Max   int    `json:"max"`
}

// ActionDef declares a player action.
type ActionDef struct {
	ID            string     `json:"id"`
	Class         string     `json:"class,omitempty"`
	Actor         PlayerSel  `json:"actor"`
	Executor      *PlayerSel `json:"executor,omitempty"`
	Phases        []string   `json:"phases,omitempty"`
	Params        []ParamDef `json:"params,omitempty"`
	Pre           *Cond      `json:"pre,omitempty"`
	Cost          []Effect   `json:"cost,omitempty"`
	Effects       []Effect   `json:"effects,omitempty"`
	Limits        []LimitDef `json:"limits,omitempty"`
	LinkedActions []string   `json:"linkedActions,omitempty"`
}

// Atomicity modes of a pipeline profile.
const (
	AtomicityAtomic  = "atomic"
	AtomicityPartial = "partial"
)

// StageDef is a named resolution stage of a pipeline profile.
type StageDef struct {
	Name     string   `json:"name"`
	Legality *Cond    `json:"legality,omitempty"`
	Effects  []Effect `json:"effects"`
}

// ActionPipelineDef is a legality/cost/resolution profile for an action.
type ActionPipelineDef struct {
	ID             string     `json:"id"`
	ActionID       string     `json:"actionId"`
	Applicability  *Cond      `json:"applicability,omitempty"`
	Legality       *Cond      `json:"legality,omitempty"`
	CostValidation *Cond      `json:"costValidation,omitempty"`
	CostEffects    []Effect   `json:"costEffects,omitempty"`
	Stages         []StageDef `json:"stages"`
	Atomicity      string     `json:"atomicity,omitempty"`
}

// EventMatch selects trigger events. Empty fields match anything.
type EventMatch struct {
	Type   string `json:"type"`
	Phase  string `json:"phase,omitempty"`
	Action string `json:"action,omitempty"`
	Zone   string `json:"zone,omitempty"`
	Var    string `json:"var,omitempty"`
	Name   string `json:"name,omitempty"`
}

// TriggerDef is a reactive rule.
type TriggerDef struct {
	ID      string     `json:"id"`
	Event   EventMatch `json:"event"`
	When    *Cond      `json:"when,omitempty"`
	Effects []Effect   `json:"effects"`
}

// End result types.
const (
	ResultWin  = "win"
	ResultDraw = "draw"
)

// EndResult describes how a game ends.
type EndResult struct {
	Type   string     `json:"type"`
	Player *PlayerSel `json:"player,omitempty"`
}

// EndCondition ends the game when When holds.
type EndCondition struct {
	When   Cond      `json:"when"`
	Result EndResult `json:"result"`
}

// Action returns the action with the given id.
func (d *GameDef) Action(id string) (*ActionDef, bool) {
	for i := range d.Actions {
		if d.Actions[i].ID == id {
			return &d.Actions[i], true
		}
	}
	return nil, false
}

// Pipelines returns the pipeline profiles declared for an action, in
// declaration order.
func (d *GameDef) Pipelines(actionID string) []*ActionPipelineDef {
	var out []*ActionPipelineDef
	for i := range d.ActionPipelines {
		if d.ActionPipelines[i].ActionID == actionID {
			out = append(out, &d.ActionPipelines[i])
		}
	}
	return out
}

// Phase returns the phase definition and its index.
func (d *GameDef) Phase(id string) (*PhaseDef, int, bool) {
	for i := range d.TurnStructure.Phases {
		if d.TurnStructure.Phases[i].ID == id {
			return &d.TurnStructure.Phases[i], i, true
		}
	}
	return nil, -1, false
}

// ZoneFamily returns the zone definition for a base id.
func (d *GameDef) ZoneFamily(base string) (*ZoneDef, bool) {
	for i := range d.Zones {
		if d.Zones[i].ID == base {
			return &d.Zones[i], true
		}
	}
	return nil, false
}

// TokenType returns a token type definition.
func (d *GameDef) TokenType(id string) (*TokenTypeDef, bool) {
	for i := range d.TokenTypes {
		if d.TokenTypes[i].ID == id {
			return &d.TokenTypes[i], true
		}
	}
	return nil, false
}

// VarDefFor returns the declaration of a variable in a scope.
func (d *GameDef) VarDefFor(scope VarScope, name string) (VarDef, bool) {
	var defs []VarDef
	switch scope {
	case ScopeGlobal:
		defs = d.GlobalVars
	case ScopePlayer:
		defs = d.PerPlayerVars
	case ScopeZone:
		defs = d.ZoneVars
	}
	for _, v := range defs {
		if v.Name == name {
			return v, true
		}
	}
	return VarDef{}, false
}

// ZoneIDs instantiates every zone id for a player count, in canonical order.
func (d *GameDef) ZoneIDs(playerCount int) []string {
	var ids []string
	for _, z := range d.Zones {
		if z.Owner == OwnerPlayer {
			for p := 0; p < playerCount; p++ {
				ids = append(ids, PlayerZoneID(z.ID, p))
			}
			continue
		}
		ids = append(ids, z.ID+":"+OwnerNone)
	}
	SortCanonical(ids)
	return ids
}
