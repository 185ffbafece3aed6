package raft

import "github.com/peachraft/raftkv/internal/wire"

func decodePayload(payload []byte, out interface{}) error {
	return wire.Decode(payload, out)
}

// EncodePeerMessage wraps msg in an envelope keyed by its kind, ready to
// hand to a UDP socket.
func EncodePeerMessage(msg PeerMessage) ([]byte, error) {
	return wire.EncodeEnvelope(msg.Kind(), msg)
}

// EncodeClientMessage wraps msg in an envelope keyed by its kind, ready
// to frame onto a TCP stream.
func EncodeClientMessage(msg ClientMessage) ([]byte, error) {
	return wire.EncodeEnvelope(msg.Kind(), msg)
}
