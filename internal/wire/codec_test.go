package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Term    uint64 `codec:"term"`
	Address string `codec:"address"`
}

func TestEnvelopeRoundTrip(t *testing.T) {
	data, err := EncodeEnvelope("sample", &samplePayload{Term: 7, Address: "10.0.0.1:9000"})
	require.NoError(t, err)

	env, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, "sample", env.Kind)

	var got samplePayload
	require.NoError(t, Decode(env.Payload, &got))
	assert.Equal(t, uint64(7), got.Term)
	assert.Equal(t, "10.0.0.1:9000", got.Address)
}

func TestFramingRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFramed(&buf, []byte("hello raft")))
	require.NoError(t, WriteFramed(&buf, []byte("second frame")))

	first, err := ReadFramed(&buf)
	require.NoError(t, err)
	assert.Equal(t, "hello raft", string(first))

	second, err := ReadFramed(&buf)
	require.NoError(t, err)
	assert.Equal(t, "second frame", string(second))
}

func TestReadFramedRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x7f, 0xff, 0xff, 0xff}) // huge length, no body
	_, err := ReadFramed(&buf)
	assert.Error(t, err)
}
