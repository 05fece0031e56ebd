package ir

// Version constants for the record encoding and the binary.
const (
	// EncodingVersion is bumped whenever canonical record encoding changes.
	EncodingVersion = "1"

	// Version is the nullg release version.
	Version = "0.1.0"
)
