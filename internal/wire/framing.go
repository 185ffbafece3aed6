package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// maxFrameSize bounds how much a single ReadFramed call will allocate,
// guarding against a corrupt or hostile length prefix.
const maxFrameSize = 16 * 1024 * 1024

// WriteFramed writes a 4-byte big-endian length prefix followed by b.
// UDP datagrams are already message-bounded and never need this; it
// exists for the TCP client channel, which is a byte stream.
func WriteFramed(w io.Writer, b []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(b)))
	if _, err := w.Write(header[:]); err != nil {
		return errors.Wrap(err, "wire: write frame header")
	}
	if _, err := w.Write(b); err != nil {
		return errors.Wrap(err, "wire: write frame body")
	}
	return nil
}

func ReadFramed(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errors.Wrap(err, "wire: read frame header")
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return nil, errors.Errorf("wire: frame of %d bytes exceeds limit", size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "wire: read frame body")
	}
	return buf, nil
}
