package mllp

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrap(t *testing.T) {
	payload := []byte("MSH|^~\\&|A\rPID|||1")
	framed := Wrap(payload)

	assert.Equal(t, StartBlock, framed[0])
	assert.Equal(t, []byte{EndBlock, Terminator}, framed[len(framed)-2:])
	assert.True(t, IsFramed(framed))
	assert.False(t, IsFramed(payload))

	got, err := Unwrap(framed)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestUnwrapErrors(t *testing.T) {
	_, err := Unwrap([]byte("MSH|"))
	assert.ErrorIs(t, err, ErrNoStartBlock)

	_, err = Unwrap([]byte{StartBlock, 'M', 'S', 'H'})
	assert.ErrorIs(t, err, ErrNoEndBlock)

	got, err := Unwrap(append([]byte("\r\n"), StartBlock, 'A', EndBlock))
	require.NoError(t, err)
	assert.Equal(t, "A", string(got))
}

func TestReaderWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 0)
	require.NoError(t, w.WriteMessage([]byte("first")))
	buf.WriteString("\n")
	require.NoError(t, w.WriteMessage([]byte("second")))

	r := NewReader(&buf, 0)
	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "first", string(msg))

	msg, err = r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "second", string(msg))

	_, err = r.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderTruncatedFrame(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{StartBlock, 'M', 'S'}), 0)
	_, err := r.ReadMessage()
	assert.ErrorIs(t, err, ErrNoEndBlock)
}

func TestLimits(t *testing.T) {
	r := NewReader(bytes.NewReader(Wrap([]byte("0123456789"))), 4)
	_, err := r.ReadMessage()
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	w := NewWriter(io.Discard, 4)
	assert.ErrorIs(t, w.WriteMessage([]byte("12345")), ErrPayloadTooLarge)
}
