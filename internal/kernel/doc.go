// Package kernel is the public rules-kernel surface.
//
// Every entry point is a pure function of its GameDef and GameState inputs:
// the input state is never modified, and the result depends only on the
// inputs and options. Independent game instances may therefore be evaluated
// concurrently without coordination.
//
//	InitialState  builds the first state from a seed
//	LegalMoves    enumerates move templates for the active player
//	LegalChoices  completes a move one decision at a time
//	ApplyMove     applies a complete move and advances the turn flow
//
// Resource use is bounded by Options; exceeding a bound is a typed error
// from package fault, never a hang.
package kernel
