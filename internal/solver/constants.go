package solver

import "os"

// Protocol names understood by the solver.
const (
	ProtocolInteractive = "interactive"
	ProtocolSigned      = "signed"
)

// Attempt outcomes.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// File permission constants.
const (
	logFilePermission     os.FileMode = 0600
	catalogFilePermission os.FileMode = 0600
)
