// Package protocol frames batches of actions over a byte stream as
// [4-byte big-endian length][payload]. The payload is the JSON encoding of
// an ordered action-envelope list; both ends of a connection must run the
// same build, the format is not cross-version tolerant.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/amitgk1/skribble/internal"
)

const HeaderSize = 4

// MaxFrameSize caps a single frame's payload. A header announcing more than
// this is treated as a framing fault rather than an allocation request.
const MaxFrameSize = 1 << 20

var (
	// ErrFraming marks a connection whose stream can no longer be parsed:
	// truncated payload, oversized length header, or mid-frame EOF.
	ErrFraming = errors.New("framing error")

	// ErrDecode marks a frame that arrived intact but whose payload did not
	// decode into an action batch.
	ErrDecode = errors.New("decode error")
)

// SendBatch frames and writes a batch as a single logical write, so batches
// from one sender are never interleaved on the wire. Empty batches are not
// sent at all. Write failures surface to the caller as connection faults and
// are not retried here.
func SendBatch(w io.Writer, batch []internal.Action) error {
	if len(batch) == 0 {
		return nil
	}

	payload, err := internal.MarshalActions(batch)
	if err != nil {
		return err
	}

	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame[:HeaderSize], uint32(len(payload)))
	copy(frame[HeaderSize:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// RecvBatch blocks for the next frame and returns its decoded action list in
// order. A peer that closes before any header byte arrives yields io.EOF,
// the clean end-of-stream signal. A close mid-header or mid-payload is an
// ErrFraming fault; an intact frame that fails to decode is an ErrDecode
// fault.
func RecvBatch(r io.Reader) ([]internal.Action, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: short header read: %v", ErrFraming, err)
	}

	length := binary.BigEndian.Uint32(header)
	if length == 0 || length > MaxFrameSize {
		return nil, fmt.Errorf("%w: invalid frame length %d", ErrFraming, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: connection closed mid-payload: %v", ErrFraming, err)
	}

	batch, err := internal.UnmarshalActions(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return batch, nil
}
