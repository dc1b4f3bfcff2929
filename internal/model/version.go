package model

// Version constants for the data model and the execution engine.
const (
	// SchemaVersion is the data model version stamped on persisted records.
	SchemaVersion = "1"

	// EngineVersion is the state-transition core version.
	EngineVersion = "0.1.0"
)
