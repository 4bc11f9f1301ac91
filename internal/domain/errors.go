package domain

import "errors"

// Engine error taxonomy. Every operation fails with one of these specific
// kinds so callers can distinguish slippage from cap from authorization
// failures. All failures are all-or-nothing: no partial state change.
var (
	// ErrArithmeticOverflow means a fixed-point operation exceeded the
	// representable range. Fatal to the call.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrInvalidInput means a zero or malformed amount or identity.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCurveInactive means a trade was attempted on a deactivated curve.
	ErrCurveInactive = errors.New("curve inactive")

	// ErrSlippageExceeded means the quoted amount violates the caller's minimum.
	ErrSlippageExceeded = errors.New("slippage exceeded")

	// ErrInsufficientEscrow means a payout would exceed the held reserve.
	// Unreachable while the escrow invariant holds; its occurrence indicates
	// an invariant violation elsewhere.
	ErrInsufficientEscrow = errors.New("insufficient escrow")

	// ErrUnauthorized means the caller lacks the required authority.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyInitialized means init_protocol was called twice.
	ErrAlreadyInitialized = errors.New("protocol already initialized")

	// ErrDuplicateLaunch means the mint already has a curve.
	ErrDuplicateLaunch = errors.New("duplicate launch")

	// ErrProtocolNotInitialized means launch_coin ran before init_protocol.
	ErrProtocolNotInitialized = errors.New("protocol not initialized")

	// ErrProtocolPaused means launch_coin ran while the protocol is paused.
	ErrProtocolPaused = errors.New("protocol paused")

	// ErrCurveNotFound means the mint has no curve record.
	ErrCurveNotFound = errors.New("curve not found")
)
