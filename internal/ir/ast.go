package ir

// The game-definition AST is made of four closed unions: value expressions,
// queries, conditions and effects. Each union is a sealed interface whose
// variants are plain structs; a wrapper struct (Expr, Query, Cond, Effect)
// carries the node and owns the JSON encoding. Consumers dispatch with a type
// switch whose default arm reports an internal invariant violation.

// ---------------------------------------------------------------------------
// Selectors

// PlayerSelKind enumerates player selector forms.
type PlayerSelKind string

const (
	PlayerActor    PlayerSelKind = "actor"
	PlayerActive   PlayerSelKind = "active"
	PlayerLeft     PlayerSelKind = "left"
	PlayerRight    PlayerSelKind = "right"
	PlayerAll      PlayerSelKind = "all"
	PlayerAllOther PlayerSelKind = "allOther"
	PlayerID       PlayerSelKind = "id"
	PlayerBinding  PlayerSelKind = "binding"
)

// PlayerSel is a declarative player selector.
// JSON: "actor" | "active" | "left" | "right" | "all" | "allOther" | "$name" | <int>.
type PlayerSel struct {
	Kind    PlayerSelKind
	ID      int
	Binding string
}

// ZoneSel is a declarative zone selector such as "hand:actor", "deck:none",
// "board" (shorthand for "board:none"), "hand:$p" or "$zone".
type ZoneSel string

// ---------------------------------------------------------------------------
// Value expressions

// ValueNode is the sealed union of value expression variants.
type ValueNode interface{ valueNode() }

// Expr wraps a ValueNode.
type Expr struct{ Node ValueNode }

// Lit is a literal value.
type Lit struct{ Value Value }

// RefKind enumerates reference sources.
type RefKind string

const (
	RefGlobalVar    RefKind = "gvar"
	RefPlayerVar    RefKind = "pvar"
	RefZoneVar      RefKind = "zoneVar"
	RefTokenProp    RefKind = "tokenProp"
	RefBinding      RefKind = "binding"
	RefZoneCount    RefKind = "zoneCount"
	RefActivePlayer RefKind = "activePlayer"
	RefActorPlayer  RefKind = "actorPlayer"
	RefTurnCount    RefKind = "turnCount"
	RefPhase        RefKind = "phase"
)

// Ref reads a variable, binding, token property or turn metadata.
type Ref struct {
	Ref    RefKind    `json:"ref"`
	Var    string     `json:"var,omitempty"`
	Player *PlayerSel `json:"player,omitempty"`
	Zone   ZoneSel    `json:"zone,omitempty"`
	Token  string     `json:"token,omitempty"`
	Prop   string     `json:"prop,omitempty"`
	Name   string     `json:"name,omitempty"`
}

// ArithOp enumerates integer operators.
type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
	OpDiv ArithOp = "/"
	OpMod ArithOp = "%"
	OpMin ArithOp = "min"
	OpMax ArithOp = "max"
)

// Arith is a binary integer operation. Division truncates toward zero.
type Arith struct {
	Op    ArithOp `json:"op"`
	Left  Expr    `json:"left"`
	Right Expr    `json:"right"`
}

// ConcatExpr joins the string forms of its parts.
type ConcatExpr struct {
	Parts []Expr
}

// IfExpr selects Then or Else by a condition.
type IfExpr struct {
	When Cond `json:"when"`
	Then Expr `json:"then"`
	Else Expr `json:"else"`
}

// AggOp enumerates aggregate operators.
type AggOp string

const (
	AggCount AggOp = "count"
	AggSum   AggOp = "sum"
	AggMin   AggOp = "min"
	AggMax   AggOp = "max"
)

// Aggregate folds a query result set. Value is evaluated per item with the
// item bound to Bind; count ignores Value.
type Aggregate struct {
	Op    AggOp  `json:"op"`
	Query Query  `json:"query"`
	Bind  string `json:"bind,omitempty"`
	Value *Expr  `json:"value,omitempty"`
}

// Distance is the hop count between two zones on the adjacency graph, or -1
// when they are not connected.
type Distance struct {
	From ZoneSel `json:"from"`
	To   ZoneSel `json:"to"`
}

func (Lit) valueNode()        {}
func (Ref) valueNode()        {}
func (Arith) valueNode()      {}
func (ConcatExpr) valueNode() {}
func (IfExpr) valueNode()     {}
func (Aggregate) valueNode()  {}
func (Distance) valueNode()   {}

// ---------------------------------------------------------------------------
// Queries

// QueryNode is the sealed union of query variants.
type QueryNode interface{ queryNode() }

// Query wraps a QueryNode.
type Query struct{ Node QueryNode }

// TokensInZone lists tokens of a zone in zone order. Filter sees $token.
type TokensInZone struct {
	Zone   ZoneSel `json:"zone"`
	Filter *Cond   `json:"filter,omitempty"`
}

// IntsInRange lists integers Min..Max inclusive.
type IntsInRange struct {
	Min Expr `json:"min"`
	Max Expr `json:"max"`
}

// EnumsQuery lists literal strings.
type EnumsQuery struct {
	Values []string `json:"values"`
}

// PlayersQuery lists player indices ascending. Filter sees $player.
type PlayersQuery struct {
	Filter *Cond `json:"filter,omitempty"`
}

// ZonesQuery lists zone ids in canonical order. Filter sees $zone.
type ZonesQuery struct {
	Base   string `json:"base,omitempty"`
	Owner  string `json:"owner,omitempty"`
	Filter *Cond  `json:"filter,omitempty"`
}

// AdjacentZones lists zones adjacent to Zone.
type AdjacentZones struct {
	Zone ZoneSel `json:"zone"`
}

// ConnectedZones lists zones reachable from Zone through zones satisfying
// Via ($zone bound), up to MaxDepth hops.
type ConnectedZones struct {
	Zone         ZoneSel `json:"zone"`
	Via          *Cond   `json:"via,omitempty"`
	MaxDepth     *Expr   `json:"maxDepth,omitempty"`
	IncludeStart bool    `json:"includeStart,omitempty"`
}

// AssetRows lists rows of a static data table. Where sees $row.
type AssetRows struct {
	Table string `json:"table"`
	Where *Cond  `json:"where,omitempty"`
}

// BindingQuery lists the elements of an array binding (or the single bound
// value).
type BindingQuery struct {
	Name string `json:"name"`
}

// ConcatQuery joins the results of several queries.
type ConcatQuery struct {
	Sources []Query `json:"sources"`
}

// NextInOrderByCondition walks Source after the element equal to From and
// returns the first element satisfying Where (bound to Bind).
type NextInOrderByCondition struct {
	Source      Query  `json:"source"`
	From        Expr   `json:"from"`
	Bind        string `json:"bind"`
	Where       Cond   `json:"where"`
	IncludeFrom bool   `json:"includeFrom,omitempty"`
	Wrap        bool   `json:"wrap,omitempty"`
}

func (TokensInZone) queryNode()           {}
func (IntsInRange) queryNode()            {}
func (EnumsQuery) queryNode()             {}
func (PlayersQuery) queryNode()           {}
func (ZonesQuery) queryNode()             {}
func (AdjacentZones) queryNode()          {}
func (ConnectedZones) queryNode()         {}
func (AssetRows) queryNode()              {}
func (BindingQuery) queryNode()           {}
func (ConcatQuery) queryNode()            {}
func (NextInOrderByCondition) queryNode() {}

// ---------------------------------------------------------------------------
// Conditions

// CondNode is the sealed union of condition variants.
type CondNode interface{ condNode() }

// Cond wraps a CondNode.
type Cond struct{ Node CondNode }

// ConstCond is a literal true/false.
type ConstCond struct{ Value bool }

// Logical is "and"/"or" over Args.
type Logical struct {
	Op   string `json:"op"`
	Args []Cond `json:"args"`
}

// NotCond negates Arg.
type NotCond struct {
	Arg Cond `json:"arg"`
}

// CompareOp enumerates comparison operators.
type CompareOp string

const (
	CmpEq CompareOp = "=="
	CmpNe CompareOp = "!="
	CmpLt CompareOp = "<"
	CmpLe CompareOp = "<="
	CmpGt CompareOp = ">"
	CmpGe CompareOp = ">="
)

// Compare compares two values.
type Compare struct {
	Op    CompareOp `json:"op"`
	Left  Expr      `json:"left"`
	Right Expr      `json:"right"`
}

// InCond tests membership of Item in the result of Set.
type InCond struct {
	Item Expr  `json:"item"`
	Set  Query `json:"set"`
}

// SpatialCond relates two zones on the adjacency graph.
type SpatialCond struct {
	Relation string  `json:"relation"`
	From     ZoneSel `json:"from"`
	To       ZoneSel `json:"to"`
	Via      *Cond   `json:"via,omitempty"`
}

func (ConstCond) condNode()   {}
func (Logical) condNode()     {}
func (NotCond) condNode()     {}
func (Compare) condNode()     {}
func (InCond) condNode()      {}
func (SpatialCond) condNode() {}

// ---------------------------------------------------------------------------
// Effects

// EffectNode is the sealed union of effect variants.
type EffectNode interface{ effectNode() }

// Effect wraps an EffectNode.
type Effect struct{ Node EffectNode }

// VarScope selects the variable map a write targets.
type VarScope string

const (
	ScopeGlobal VarScope = "global"
	ScopePlayer VarScope = "player"
	ScopeZone   VarScope = "zone"
)

// VarTarget addresses one integer variable.
type VarTarget struct {
	Scope  VarScope   `json:"scope"`
	Var    string     `json:"var"`
	Player *PlayerSel `json:"player,omitempty"`
	Zone   ZoneSel    `json:"zone,omitempty"`
}

// SetVar assigns a variable (clamped to its declared bounds).
type SetVar struct {
	VarTarget
	Value Expr `json:"value"`
}

// AddVar adds Delta to a variable (clamped).
type AddVar struct {
	VarTarget
	Delta Expr `json:"delta"`
}

// TransferVar moves up to Amount from one variable to another; the amount
// actually moved is limited by the source's lower bound and the target's
// upper bound.
type TransferVar struct {
	From   VarTarget `json:"from"`
	To     VarTarget `json:"to"`
	Amount Expr      `json:"amount"`
	Bind   string    `json:"bind,omitempty"`
}

// MoveToken moves one token. From is optional; when set, execution mode
// requires the token to be there. Position is top (default), bottom or random.
type MoveToken struct {
	Token    string  `json:"token"`
	From     ZoneSel `json:"from,omitempty"`
	To       ZoneSel `json:"to"`
	Position string  `json:"position,omitempty"`
}

// MoveAll moves every token of From (optionally filtered, $token bound) to To.
type MoveAll struct {
	From   ZoneSel `json:"from"`
	To     ZoneSel `json:"to"`
	Filter *Cond   `json:"filter,omitempty"`
}

// Draw moves up to Count tokens from the top of From to the top of To.
type Draw struct {
	From  ZoneSel `json:"from"`
	To    ZoneSel `json:"to"`
	Count Expr    `json:"count"`
}

// CreateToken creates a token in Zone; its id is bound to Bind when set.
type CreateToken struct {
	Type  string          `json:"type"`
	Zone  ZoneSel         `json:"zone"`
	Props map[string]Expr `json:"props,omitempty"`
	Bind  string          `json:"bind,omitempty"`
}

// DestroyToken removes a token from the game.
type DestroyToken struct {
	Token string `json:"token"`
}

// SetTokenProp sets a token property.
type SetTokenProp struct {
	Token string `json:"token"`
	Prop  string `json:"prop"`
	Value Expr   `json:"value"`
}

// Shuffle permutes a zone using the game RNG.
type Shuffle struct {
	Zone ZoneSel `json:"zone"`
}

// Reveal makes a zone visible to players.
type Reveal struct {
	Zone ZoneSel   `json:"zone"`
	To   PlayerSel `json:"to"`
}

// Conceal hides a zone from players (all players when From is nil).
type Conceal struct {
	Zone ZoneSel    `json:"zone"`
	From *PlayerSel `json:"from,omitempty"`
}

// IfEffect branches on a condition.
type IfEffect struct {
	When Cond     `json:"when"`
	Then []Effect `json:"then"`
	Else []Effect `json:"else,omitempty"`
}

// ForEach runs Effects once per query item, capped by Limit (or the default
// iteration cap). CountBind receives the number of iterations run.
type ForEach struct {
	Bind      string   `json:"bind"`
	Over      Query    `json:"over"`
	Limit     *Expr    `json:"limit,omitempty"`
	CountBind string   `json:"countBind,omitempty"`
	Effects   []Effect `json:"effects"`
}

// Reduce folds a query into ResultBind, then runs In with it bound.
type Reduce struct {
	ItemBind   string   `json:"itemBind"`
	AccBind    string   `json:"accBind"`
	Over       Query    `json:"over"`
	Initial    Expr     `json:"initial"`
	Next       Expr     `json:"next"`
	ResultBind string   `json:"resultBind"`
	Limit      *Expr    `json:"limit,omitempty"`
	In         []Effect `json:"in,omitempty"`
}

// BindValue binds Value. With In set the binding is scoped to In, otherwise
// it is visible to the following sibling effects.
type BindValue struct {
	Bind  string   `json:"bind"`
	Value Expr     `json:"value"`
	In    []Effect `json:"in,omitempty"`
}

// ChooseOne suspends for a player decision among Options.
type ChooseOne struct {
	InternalDecisionID string `json:"internalDecisionId,omitempty"`
	Bind               string `json:"bind"`
	Options            Query  `json:"options"`
}

// ChooseN suspends for a player decision of N (or Min..Max) distinct options.
type ChooseN struct {
	InternalDecisionID string `json:"internalDecisionId,omitempty"`
	Bind               string `json:"bind"`
	Options            Query  `json:"options"`
	N                  *Expr  `json:"n,omitempty"`
	Min                *Expr  `json:"min,omitempty"`
	Max                *Expr  `json:"max,omitempty"`
}

// RollRandom draws an integer in Min..Max and runs In with it bound.
type RollRandom struct {
	Bind string   `json:"bind"`
	Min  Expr     `json:"min"`
	Max  Expr     `json:"max"`
	In   []Effect `json:"in,omitempty"`
}

// GotoPhase jumps to a phase of the current turn.
type GotoPhase struct {
	Phase string `json:"phase"`
}

// GrantFreeOperation grants a seat a restricted free action (card-driven).
type GrantFreeOperation struct {
	Seat            PlayerSel `json:"seat"`
	ActionClass     string    `json:"actionClass,omitempty"`
	ActionIDs       []string  `json:"actionIds,omitempty"`
	ZoneFilter      *Cond     `json:"zoneFilter,omitempty"`
	Uses            *Expr     `json:"uses,omitempty"`
	SequenceBatchID string    `json:"sequenceBatchId,omitempty"`
	SequenceIndex   int       `json:"sequenceIndex,omitempty"`
}

// DeferEventEffect postpones Effects until every listed grant batch has no
// pending grants (card-driven).
type DeferEventEffect struct {
	RequiredBatches []string `json:"requiredBatches"`
	Effects         []Effect `json:"effects"`
}

// PushInterruptPhase suspends the current phase (card-driven) and gives
// Player (default: actor) a move in Phase; afterwards ResumePhase (default:
// the suspended phase) continues.
type PushInterruptPhase struct {
	Phase       string     `json:"phase"`
	ResumePhase string     `json:"resumePhase,omitempty"`
	Player      *PlayerSel `json:"player,omitempty"`
}

// Emit raises a custom trigger event.
type Emit struct {
	Event string          `json:"event"`
	Data  map[string]Expr `json:"data,omitempty"`
}

func (SetVar) effectNode()             {}
func (AddVar) effectNode()             {}
func (TransferVar) effectNode()        {}
func (MoveToken) effectNode()          {}
func (MoveAll) effectNode()            {}
func (Draw) effectNode()               {}
func (CreateToken) effectNode()        {}
func (DestroyToken) effectNode()       {}
func (SetTokenProp) effectNode()       {}
func (Shuffle) effectNode()            {}
func (Reveal) effectNode()             {}
func (Conceal) effectNode()            {}
func (IfEffect) effectNode()           {}
func (ForEach) effectNode()            {}
func (Reduce) effectNode()             {}
func (BindValue) effectNode()          {}
func (ChooseOne) effectNode()          {}
func (ChooseN) effectNode()            {}
func (RollRandom) effectNode()         {}
func (GotoPhase) effectNode()          {}
func (GrantFreeOperation) effectNode() {}
func (DeferEventEffect) effectNode()   {}
func (PushInterruptPhase) effectNode() {}
func (Emit) effectNode()               {}
