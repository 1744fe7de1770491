package kernel

import (
	"github.com/roach88/tabula/internal/effects"
	"github.com/roach88/tabula/internal/turnflow"
)

// Illegal-move reasons. Applicability reasons come first, in check order.
const (
	ReasonPhaseMismatch              = "phaseMismatch"
	ReasonActorOutsidePlayerCount    = "actorOutsidePlayerCount"
	ReasonActorNotApplicable         = "actorNotApplicable"
	ReasonExecutorOutsidePlayerCount = "executorOutsidePlayerCount"
	ReasonExecutorNotApplicable      = "executorNotApplicable"
	ReasonActionLimitExceeded        = "actionLimitExceeded"

	ReasonGameOver             = "gameOver"
	ReasonUnknownAction        = "unknownAction"
	ReasonFreeOperationPending = "freeOperationPending"
	ReasonNoApplicablePipeline = "noApplicablePipeline"
	ReasonLegalityFailed       = "legalityFailed"
	ReasonCostValidationFailed = "costValidationFailed"
	ReasonStageBlocked         = "stageBlocked"
	ReasonCompoundNotLinked    = "compoundNotLinked"
	ReasonIncompleteMove       = "incompleteMove"
	ReasonInvalidParam         = "invalidParam"
	ReasonUndecidable          = "undecidable"

	// ReasonEvaluationInapplicable rejects a candidate whose predicate or
	// parameter domain failed with a recoverable evaluation error.
	ReasonEvaluationInapplicable = "evaluationInapplicable"
)

// DenialReasons is the closed set of reasons legalMoves filters by and
// applyMove rejects with.
var DenialReasons = []string{
	ReasonPhaseMismatch,
	ReasonActorOutsidePlayerCount,
	ReasonActorNotApplicable,
	ReasonExecutorOutsidePlayerCount,
	ReasonExecutorNotApplicable,
	ReasonActionLimitExceeded,
	ReasonGameOver,
	ReasonUnknownAction,
	ReasonFreeOperationPending,
	ReasonNoApplicablePipeline,
	ReasonLegalityFailed,
	ReasonCostValidationFailed,
	ReasonStageBlocked,
	ReasonCompoundNotLinked,
	ReasonIncompleteMove,
	ReasonInvalidParam,
	ReasonUndecidable,
	ReasonEvaluationInapplicable,
	string(turnflow.NoActiveSeatGrant),
	string(turnflow.SequenceLocked),
	string(turnflow.ActionClassMismatch),
	string(turnflow.ActionIDMismatch),
	string(turnflow.ZoneFilterMismatch),
	effects.ReasonEmptyChoiceDomain,
	effects.ReasonDomainTooSmall,
	effects.ReasonInvalidDecision,
}
