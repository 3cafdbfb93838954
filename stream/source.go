package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/gofhir/hl7v2/pkg/mllp"
)

// source yields consecutive message payloads. next returns io.EOF after
// the last message.
type source interface {
	next() ([]byte, error)
}

// newSource detects the input framing: MLLP when the first non-blank byte
// is the start block, batch text otherwise.
func newSource(r io.Reader, maxPayload int) (source, error) {
	br := bufio.NewReader(r)
	for {
		b, err := br.Peek(1)
		if err != nil {
			return nil, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.ReadByte()
			continue
		case mllp.StartBlock:
			return &frameSource{r: mllp.NewReader(br, maxPayload)}, nil
		}
		return newBatchSource(br, maxPayload), nil
	}
}

type frameSource struct {
	r *mllp.Reader
}

func (s *frameSource) next() ([]byte, error) {
	return s.r.ReadMessage()
}

// batchSource splits unframed text into messages at each MSH segment and
// drops batch and file envelope segments. maxPayload bounds each segment.
type batchSource struct {
	sc      *bufio.Scanner
	pending []byte
	done    bool
}

func newBatchSource(r io.Reader, maxPayload int) *batchSource {
	if maxPayload <= 0 {
		maxPayload = mllp.DefaultMaxPayload
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(4096, maxPayload)), maxPayload)
	sc.Split(scanSegments)
	return &batchSource{sc: sc}
}

func (s *batchSource) next() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}
	var msg [][]byte
	if s.pending != nil {
		msg = append(msg, s.pending)
		s.pending = nil
	}
	for s.sc.Scan() {
		line := s.sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		switch {
		case envelope(line):
			if len(msg) > 0 {
				return bytes.Join(msg, []byte{'\r'}), nil
			}
		case bytes.HasPrefix(line, []byte("MSH")) && len(msg) > 0:
			s.pending = bytes.Clone(line)
			return bytes.Join(msg, []byte{'\r'}), nil
		default:
			msg = append(msg, bytes.Clone(line))
		}
	}
	s.done = true
	if err := s.sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, mllp.ErrPayloadTooLarge
		}
		return nil, err
	}
	if len(msg) == 0 {
		return nil, io.EOF
	}
	return bytes.Join(msg, []byte{'\r'}), nil
}

func envelope(line []byte) bool {
	for _, id := range []string{"FHS", "BHS", "BTS", "FTS"} {
		if bytes.HasPrefix(line, []byte(id)) {
			return true
		}
	}
	return false
}

// scanSegments is a bufio.SplitFunc splitting on CR, LF or CRLF.
func scanSegments(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
			} else if !atEOF {
				// A following LF may still arrive.
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
