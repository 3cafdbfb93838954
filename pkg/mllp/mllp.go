// Package mllp implements Minimal Lower Layer Protocol framing: a message is
// sent as 0x0B, payload, 0x1C, 0x0D.
package mllp

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// Framing bytes.
const (
	StartBlock byte = 0x0B
	EndBlock   byte = 0x1C
	Terminator byte = 0x0D
)

// DefaultMaxPayload bounds a single framed message.
const DefaultMaxPayload = 8 * 1024 * 1024

var (
	ErrNoStartBlock    = errors.New("mllp: missing start block")
	ErrNoEndBlock      = errors.New("mllp: missing end block")
	ErrPayloadTooLarge = errors.New("mllp: payload too large")
)

// Wrap frames payload.
func Wrap(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+3)
	out = append(out, StartBlock)
	out = append(out, payload...)
	return append(out, EndBlock, Terminator)
}

// IsFramed reports whether b starts with a start block, ignoring leading
// whitespace.
func IsFramed(b []byte) bool {
	b = bytes.TrimLeft(b, " \t\r\n")
	return len(b) > 0 && b[0] == StartBlock
}

// Unwrap returns the payload of one frame. The trailing terminator is
// optional; anything after it is ignored.
func Unwrap(frame []byte) ([]byte, error) {
	frame = bytes.TrimLeft(frame, " \t\r\n")
	if len(frame) == 0 || frame[0] != StartBlock {
		return nil, ErrNoStartBlock
	}
	end := bytes.IndexByte(frame, EndBlock)
	if end < 0 {
		return nil, ErrNoEndBlock
	}
	return frame[1:end], nil
}

// Reader reads consecutive frames from a stream.
type Reader struct {
	r   *bufio.Reader
	max int
}

// NewReader creates a Reader. maxPayload <= 0 selects DefaultMaxPayload.
func NewReader(r io.Reader, maxPayload int) *Reader {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Reader{r: bufio.NewReader(r), max: maxPayload}
}

// ReadMessage returns the next payload. Bytes between frames are skipped.
// io.EOF is returned only at a clean frame boundary.
func (r *Reader) ReadMessage() ([]byte, error) {
	for {
		c, err := r.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if c == StartBlock {
			break
		}
	}
	var buf bytes.Buffer
	for {
		c, err := r.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrNoEndBlock
			}
			return nil, err
		}
		if c == EndBlock {
			break
		}
		if buf.Len() >= r.max {
			return nil, ErrPayloadTooLarge
		}
		buf.WriteByte(c)
	}
	if next, err := r.r.Peek(1); err == nil && next[0] == Terminator {
		_, _ = r.r.ReadByte()
	}
	return buf.Bytes(), nil
}

// Writer writes frames to a stream.
type Writer struct {
	w   io.Writer
	max int
}

// NewWriter creates a Writer. maxPayload <= 0 selects DefaultMaxPayload.
func NewWriter(w io.Writer, maxPayload int) *Writer {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Writer{w: w, max: maxPayload}
}

// WriteMessage frames and writes one payload.
func (w *Writer) WriteMessage(payload []byte) error {
	if len(payload) > w.max {
		return ErrPayloadTooLarge
	}
	_, err := w.w.Write(Wrap(payload))
	return err
}
