package effects

// Trace entry kinds.
const (
	TraceVar         = "var"
	TraceTransfer    = "transfer"
	TraceMoveToken   = "moveToken"
	TraceCreateToken = "createToken"
	TraceDestroy     = "destroyToken"
	TraceTokenProp   = "tokenProp"
	TraceShuffle     = "shuffle"
	TraceReveal      = "reveal"
	TraceConceal     = "conceal"
	TraceForEach     = "forEach"
	TraceReduce      = "reduce"
	TraceRoll        = "rollRandom"
	TraceChoice      = "choice"
	TraceFlow        = "flow"
	TraceStage       = "stage"
)

// Provenance says where a trace entry came from.
type Provenance struct {
	Phase        string `json:"phase"`
	EventContext string `json:"eventContext,omitempty"`
	ActionID     string `json:"actionId,omitempty"`
	EffectPath   string `json:"effectPath"`
}

// TraceEntry records one observable change (or one iteration report).
type TraceEntry struct {
	Kind       string         `json:"kind"`
	Provenance Provenance     `json:"provenance"`
	Details    map[string]any `json:"details"`
}
