package types

// Version is the canonical project version.
// The CLI, the wire protocol and the recording file format share this
// version per the lockstep versioning policy.
const Version = "0.3.0"

// ProtocolVersion is the wire protocol version written into recording headers.
const ProtocolVersion = Version
