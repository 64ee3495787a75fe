package types

// Version is the canonical project version, shared by the library and the
// CLI.
const Version = "0.3.0"
