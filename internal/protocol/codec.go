// Package protocol implements the quiz wire codec.
//
// The transport is a raw byte stream with no message boundaries, so the codec
// imposes its own framing: one JSON object per frame, terminated by a newline.
// JSON strings escape raw newlines, so the terminator cannot appear inside a
// frame. Decoding blocks until a full frame has arrived, reassembling frames
// split across reads and splitting frames that arrive coalesced.
package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrMalformedFrame marks a frame that is not valid JSON or is missing a
	// required field. The caller should discard it and keep reading.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrUnknownType marks a structurally valid frame with an unrecognized
	// type discriminator. Treated the same as a malformed frame.
	ErrUnknownType = errors.New("unknown message type")
)

// IsDecodeError reports whether err is a recoverable decode failure, as
// opposed to a transport error that ends the connection.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrMalformedFrame) || errors.Is(err, ErrUnknownType)
}

// Encoder writes framed messages to a stream. Not safe for concurrent use;
// callers with multiple writers must serialize Encode calls themselves.
type Encoder struct {
	w *bufio.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes one message as a newline-terminated frame and flushes it.
func (e *Encoder) Encode(m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write frame terminator: %w", err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush frame: %w", err)
	}
	return nil
}

// Decoder reads framed messages from a stream.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads the next frame, blocking until a full frame is available.
// A malformed or unrecognized frame is returned as a decode error satisfying
// IsDecodeError; the decoder stays usable and the next call reads the next
// frame. Any other error means the stream is done.
func (d *Decoder) Decode() (Message, error) {
	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			// A partial frame truncated by EOF is a transport end, not a
			// message; there are no more bytes coming to complete it.
			return Message{}, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var m Message
		if err := json.Unmarshal(line, &m); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if err := m.validate(); err != nil {
			return Message{}, err
		}
		return m, nil
	}
}
