package ir

// Version constants for the scene description and persisted sessions.
const (
	// IRVersion is the scene description schema version.
	IRVersion = "1"

	// EngineVersion is the seqbrowse engine version.
	EngineVersion = "0.1.0"
)
