package ir

// Version constants for the configuration schema and the tool.
const (
	// SchemaVersion is the canonical configuration schema version.
	SchemaVersion = "1"

	// ToolVersion is the graphcfg release version.
	ToolVersion = "0.1.0"
)
