package ir

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// GameState is an immutable snapshot of all mutable game data.
//
// Kernel operations take a *GameState and return a new one; the input is
// never modified. Inside one kernel call the effect interpreter works on an
// owned copy produced by Clone.
type GameState struct {
	GlobalVars       map[string]int64            `json:"globalVars"`
	PerPlayerVars    []map[string]int64          `json:"perPlayerVars"`
	ZoneVars         map[string]map[string]int64 `json:"zoneVars"`
	Zones            map[string][]string         `json:"zones"`
	Tokens           map[string]Token            `json:"tokens"`
	NextTokenOrdinal int64                       `json:"nextTokenOrdinal"`
	PlayerCount      int                         `json:"playerCount"`
	ActivePlayer     int                         `json:"activePlayer"`
	CurrentPhase     string                      `json:"currentPhase"`
	TurnCount        int64                       `json:"turnCount"`
	ActionUsage      map[string]ActionUsage      `json:"actionUsage"`
	Revealed         map[string][]int            `json:"revealed"`
	RNG              RngState                    `json:"rng"`
	TurnOrder        TurnOrderState              `json:"turnOrder"`
	StateHash        Hex64                       `json:"stateHash"`
}

// Token is a game piece. It lives in exactly one zone.
type Token struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Props Object `json:"props"`
}

// ActionUsage counts how often an action was used per limit scope.
type ActionUsage struct {
	Turn  int `json:"turn"`
	Phase int `json:"phase"`
	Game  int `json:"game"`
}

// RngState is the explicit state vector of the deterministic generator.
// Algorithm and Version allow future migration without breaking saves.
type RngState struct {
	Algorithm string  `json:"algorithm"`
	Version   int     `json:"version"`
	Words     []Hex64 `json:"state"`
}

// Equal reports whether two generator states are identical.
func (r RngState) Equal(o RngState) bool {
	return r.Algorithm == o.Algorithm && r.Version == o.Version && slices.Equal(r.Words, o.Words)
}

// TurnOrderState is the tagged turn-order runtime. CardDriven is set if and
// only if Type is cardDriven.
type TurnOrderState struct {
	Type       TurnOrderType      `json:"type"`
	CardDriven *CardDrivenRuntime `json:"cardDriven,omitempty"`
}

// CardDrivenRuntime is the card-driven turn-order state.
type CardDrivenRuntime struct {
	SeatOrder                   []int                 `json:"seatOrder"`
	SeatCursor                  int                   `json:"seatCursor"`
	PendingFreeOperationGrants  []FreeOperationGrant  `json:"pendingFreeOperationGrants"`
	PendingDeferredEventEffects []DeferredEventEffect `json:"pendingDeferredEventEffects"`
	InterruptPhaseStack         []InterruptFrame      `json:"interruptPhaseStack"`
	NextGrantOrdinal            int64                 `json:"nextGrantOrdinal"`
}

// FreeOperationGrant lets a seat execute a restricted action for free.
type FreeOperationGrant struct {
	GrantID         string   `json:"grantId"`
	Seat            int      `json:"seat"`
	ActionClass     string   `json:"actionClass,omitempty"`
	ActionIDs       []string `json:"actionIds,omitempty"`
	ZoneFilter      *Cond    `json:"zoneFilter,omitempty"`
	RemainingUses   int      `json:"remainingUses"`
	SequenceBatchID string   `json:"sequenceBatchId,omitempty"`
	SequenceIndex   int      `json:"sequenceIndex,omitempty"`
}

// DeferredEventEffect is event resolution waiting for grant batches.
type DeferredEventEffect struct {
	DeferredID       string   `json:"deferredId"`
	ActorPlayer      int      `json:"actorPlayer"`
	ActionID         string   `json:"actionId"`
	RequiredBatchIDs []string `json:"requiredBatchIds"`
	Effects          []Effect `json:"effects"`
	Bindings         Object   `json:"bindings"`
}

// InterruptFrame records a suspended phase.
type InterruptFrame struct {
	Phase        string `json:"phase"`
	ResumePhase  string `json:"resumePhase"`
	ResumePlayer int    `json:"resumePlayer"`
}

// TriggerEvent is an event record passed to the trigger dispatcher.
type TriggerEvent struct {
	Type   string `json:"type"`
	Phase  string `json:"phase,omitempty"`
	Action string `json:"action,omitempty"`
	Zone   string `json:"zone,omitempty"`
	Var    string `json:"var,omitempty"`
	Token  string `json:"token,omitempty"`
	Name   string `json:"name,omitempty"`
	Player *int   `json:"player,omitempty"`
	Data   Object `json:"data,omitempty"`
}

// Object exposes the event as a value for $event bindings.
func (e TriggerEvent) Object() Object {
	obj := Object{"type": String(e.Type)}
	if e.Phase != "" {
		obj["phase"] = String(e.Phase)
	}
	if e.Action != "" {
		obj["action"] = String(e.Action)
	}
	if e.Zone != "" {
		obj["zone"] = String(e.Zone)
	}
	if e.Var != "" {
		obj["var"] = String(e.Var)
	}
	if e.Token != "" {
		obj["token"] = TokenRef(e.Token)
	}
	if e.Name != "" {
		obj["name"] = String(e.Name)
	}
	if e.Player != nil {
		obj["player"] = Int(*e.Player)
	}
	if e.Data != nil {
		obj["data"] = e.Data
	}
	return obj
}

// Event type names.
const (
	EventTurnStart      = "turnStart"
	EventTurnEnd        = "turnEnd"
	EventPhaseEnter     = "phaseEnter"
	EventPhaseExit      = "phaseExit"
	EventActionResolved = "actionResolved"
	EventTokenEntered   = "tokenEntered"
	EventTokenCreated   = "tokenCreated"
	EventVarChanged     = "varChanged"
	EventCustom         = "custom"
)

// StateView is the read-only surface evaluators see. It deliberately has no
// mutating method.
type StateView interface {
	GlobalVar(name string) (int64, bool)
	PlayerVar(player int, name string) (int64, bool)
	ZoneVar(zone, name string) (int64, bool)
	ZoneTokens(zone string) ([]string, bool)
	TokenByID(id string) (Token, bool)
	TokenZone(id string) (string, bool)
	Players() int
	Active() int
	Phase() string
	Turn() int64
}

var _ StateView = (*GameState)(nil)

// GlobalVar implements StateView.
func (s *GameState) GlobalVar(name string) (int64, bool) {
	v, ok := s.GlobalVars[name]
	return v, ok
}

// PlayerVar implements StateView.
func (s *GameState) PlayerVar(player int, name string) (int64, bool) {
	if player < 0 || player >= len(s.PerPlayerVars) {
		return 0, false
	}
	v, ok := s.PerPlayerVars[player][name]
	return v, ok
}

// ZoneVar implements StateView.
func (s *GameState) ZoneVar(zone, name string) (int64, bool) {
	v, ok := s.ZoneVars[zone][name]
	return v, ok
}

// ZoneTokens implements StateView. The returned slice is a copy.
func (s *GameState) ZoneTokens(zone string) ([]string, bool) {
	ids, ok := s.Zones[zone]
	if !ok {
		return nil, false
	}
	return slices.Clone(ids), true
}

// TokenByID implements StateView.
func (s *GameState) TokenByID(id string) (Token, bool) {
	t, ok := s.Tokens[id]
	if !ok {
		return Token{}, false
	}
	t.Props = t.Props.Clone()
	return t, true
}

// TokenZone implements StateView. Zones are scanned in canonical order.
func (s *GameState) TokenZone(id string) (string, bool) {
	for _, z := range SortedZoneIDs(s.Zones) {
		if slices.Contains(s.Zones[z], id) {
			return z, true
		}
	}
	return "", false
}

// Players implements StateView.
func (s *GameState) Players() int { return s.PlayerCount }

// Active implements StateView.
func (s *GameState) Active() int { return s.ActivePlayer }

// Phase implements StateView.
func (s *GameState) Phase() string { return s.CurrentPhase }

// Turn implements StateView.
func (s *GameState) Turn() int64 { return s.TurnCount }

// Clone returns a deep copy that shares nothing mutable with s.
func (s *GameState) Clone() *GameState {
	out := *s
	out.GlobalVars = maps.Clone(s.GlobalVars)
	out.PerPlayerVars = make([]map[string]int64, len(s.PerPlayerVars))
	for i, m := range s.PerPlayerVars {
		out.PerPlayerVars[i] = maps.Clone(m)
	}
	out.ZoneVars = make(map[string]map[string]int64, len(s.ZoneVars))
	for k, m := range s.ZoneVars {
		out.ZoneVars[k] = maps.Clone(m)
	}
	out.Zones = make(map[string][]string, len(s.Zones))
	for k, ids := range s.Zones {
		out.Zones[k] = slices.Clone(ids)
	}
	out.Tokens = make(map[string]Token, len(s.Tokens))
	for k, t := range s.Tokens {
		t.Props = t.Props.Clone()
		out.Tokens[k] = t
	}
	out.ActionUsage = maps.Clone(s.ActionUsage)
	out.Revealed = make(map[string][]int, len(s.Revealed))
	for k, ps := range s.Revealed {
		out.Revealed[k] = slices.Clone(ps)
	}
	out.RNG.Words = slices.Clone(s.RNG.Words)
	out.TurnOrder = s.TurnOrder.Clone()
	return &out
}

// Clone deep-copies the turn-order runtime.
func (t TurnOrderState) Clone() TurnOrderState {
	if t.CardDriven == nil {
		return t
	}
	cd := *t.CardDriven
	cd.SeatOrder = slices.Clone(cd.SeatOrder)
	cd.PendingFreeOperationGrants = slices.Clone(cd.PendingFreeOperationGrants)
	for i := range cd.PendingFreeOperationGrants {
		cd.PendingFreeOperationGrants[i].ActionIDs = slices.Clone(cd.PendingFreeOperationGrants[i].ActionIDs)
	}
	cd.PendingDeferredEventEffects = slices.Clone(cd.PendingDeferredEventEffects)
	for i := range cd.PendingDeferredEventEffects {
		d := &cd.PendingDeferredEventEffects[i]
		d.RequiredBatchIDs = slices.Clone(d.RequiredBatchIDs)
		d.Bindings = d.Bindings.Clone()
	}
	cd.InterruptPhaseStack = slices.Clone(cd.InterruptPhaseStack)
	return TurnOrderState{Type: t.Type, CardDriven: &cd}
}

// PlayerZoneID names the instance of a player-owned zone family.
func PlayerZoneID(base string, player int) string {
	return base + ":" + strconv.Itoa(player)
}

// SplitZoneID splits "base:qualifier".
func SplitZoneID(id string) (base, qualifier string) {
	base, qualifier, found := strings.Cut(id, ":")
	if !found {
		return id, ""
	}
	return base, qualifier
}

// SortCanonical sorts ids in canonical (UTF-16) order in place.
func SortCanonical(ids []string) {
	slices.SortFunc(ids, CompareCanonical)
}

// SortedZoneIDs returns the keys of a zone map in canonical order.
func SortedZoneIDs(zones map[string][]string) []string {
	ids := make([]string, 0, len(zones))
	for k := range zones {
		ids = append(ids, k)
	}
	SortCanonical(ids)
	return ids
}
