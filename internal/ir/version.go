package ir

// Version constants for the serialized data model and the kernel.
const (
	// StateSchemaVersion is bumped whenever the serialized GameState shape
	// changes incompatibly.
	StateSchemaVersion = 1

	// EngineVersion is the tabula kernel version.
	EngineVersion = "0.1.0"
)
