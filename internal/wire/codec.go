// Package wire implements the self-describing msgpack codec shared by
// the peer and client transports: every message is wrapped in an
// Envelope carrying its kind, so a reader can decode just enough to
// dispatch before decoding the full payload.
package wire

import (
	"bytes"

	"github.com/hashicorp/go-msgpack/codec"
	"github.com/pkg/errors"
)

var msgpackHandle = &codec.MsgpackHandle{}

// Envelope is the outer frame every message travels in.
type Envelope struct {
	Kind    string `codec:"kind"`
	Payload []byte `codec:"payload"`
}

func Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, msgpackHandle)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "wire: encode")
	}
	return buf.Bytes(), nil
}

func Decode(data []byte, v interface{}) error {
	dec := codec.NewDecoder(bytes.NewReader(data), msgpackHandle)
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "wire: decode")
	}
	return nil
}

// EncodeEnvelope encodes v and wraps the result, tagged with kind, in
// an outer Envelope.
func EncodeEnvelope(kind string, v interface{}) ([]byte, error) {
	payload, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return Encode(&Envelope{Kind: kind, Payload: payload})
}

// DecodeEnvelope decodes only the outer frame, leaving the payload
// undecoded until the caller knows which concrete type Kind names.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := Decode(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
