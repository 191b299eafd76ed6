// Package protocol defines the frames exchanged between the coordinator and its worker
// processes.
//
// Every frame is a 4-byte big-endian length prefix followed by a JSON payload. The worker
// writes one ready frame when it starts and one response frame per request. Task failures
// are ordinary response fields, never a broken stream, so the coordinator always learns
// about a failure by reading a frame.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// MaxMessageSize is the maximum allowed frame payload (16 MiB).
const MaxMessageSize = 16 << 20

// MaxOutputSize caps the captured console text carried by a single response.
const MaxOutputSize = 8 << 20

// Message types.
const (
	MsgTypeReady    = "ready"
	MsgTypeRequest  = "request"
	MsgTypeResponse = "response"
)

// ErrFrameTooLarge is returned when a frame exceeds MaxMessageSize.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// Message is the envelope for all frames.
type Message struct {
	Type     string    `json:"type"`
	PID      int       `json:"pid,omitempty"`
	Request  *Request  `json:"request,omitempty"`
	Response *Response `json:"response,omitempty"`
}

// Request asks a worker to run one task.
type Request struct {
	Seq    uint64 `json:"seq"`
	Index  int    `json:"index"`
	Batch  string `json:"batch,omitempty"`
	Func   string `json:"func"`
	Arg    Arg    `json:"arg"`
	Policy Policy `json:"policy"`
}

// Response carries the outcome of one task back to the coordinator.
type Response struct {
	Seq        uint64          `json:"seq"`
	Index      int             `json:"index"`
	Value      json.RawMessage `json:"value,omitempty"`
	Error      *ErrorInfo      `json:"error,omitempty"`
	Suppressed bool            `json:"suppressed,omitempty"`
	Output     []byte          `json:"output,omitempty"`
	Duration   time.Duration   `json:"duration"`
}

// ErrorInfo is a task failure serialised for the trip across the process boundary.
type ErrorInfo struct {
	Message string `json:"message"`
	Origin  string `json:"origin"`
	Panic   bool   `json:"panic,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// WriteMessage writes a length-prefixed JSON message to w.
// The frame format is: 4-byte big-endian length prefix followed by the JSON payload.
func WriteMessage(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if len(data) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}

	// One write per frame keeps frames whole on pipes shared by nobody else.
	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	return nil
}

// ReadMessage reads a length-prefixed JSON message from r and decodes it into v.
// A clean end of stream before the length prefix is reported as io.EOF.
func ReadMessage(r io.Reader, v any) error {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("read length prefix: %w", err)
	}

	if length > MaxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, MaxMessageSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}

	return nil
}
