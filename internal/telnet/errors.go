package telnet

import "errors"

var (
	// ErrAlreadyActive is returned by Begin when the previous chunk was never
	// released with End.
	ErrAlreadyActive = errors.New("telnet: decoder already has an active chunk")

	// ErrUnconsumedData is returned by End when the chunk was not fully
	// drained. The decoder is poisoned afterwards.
	ErrUnconsumedData = errors.New("telnet: unconsumed data")

	// ErrPoisoned is returned by End once the decoder has hit an
	// unrecoverable framing error.
	ErrPoisoned = errors.New("telnet: decoder is poisoned")
)
