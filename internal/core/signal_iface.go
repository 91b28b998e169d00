package core

// Frame is a raw serialized payload.
type Frame []byte

// SessionID is the opaque identity of one viewer connection.
type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
