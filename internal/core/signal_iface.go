package core

import "errors"

// Frame is a raw encoded payload.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking.
	TrySend(Frame) error
	Close()
	// CloseWithReason flushes queued frames, then closes with a normal-closure reason.
	CloseWithReason(reason string)
}

// ErrBackpressure is returned by TrySend when the connection's send buffer is full.
var ErrBackpressure = errors.New("backpressure: send buffer full")
