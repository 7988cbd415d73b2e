package client

import (
	"github.com/adamwoolhether/formwire/client/replay"
)

// ————————————————————————————————————————————————————————————————————
// Type aliases – re-export user-facing types from [replay].
// ————————————————————————————————————————————————————————————————————

type (
	// ConnectionError is a non-retriable failure to send a request body,
	// such as a one-shot stream that a redirect asked to resend.
	ConnectionError = replay.ConnectionError

	// NonSeekableError is the cause carried by a ConnectionError when a
	// body could not be produced again.
	NonSeekableError = replay.NonSeekableError
)

// ————————————————————————————————————————————————————————————————————
// Sentinel errors
// ————————————————————————————————————————————————————————————————————

// ErrNonSeekable matches any error caused by a body that cannot be resent.
var ErrNonSeekable = replay.ErrNonSeekable

// IsConnection reports whether err carries a [ConnectionError].
func IsConnection(err error) bool { return replay.IsConnection(err) }
