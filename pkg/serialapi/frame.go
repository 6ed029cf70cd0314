// Package serialapi implements the Z-Wave Serial API spoken between a host
// and a USB controller stick: frame codec, link layer with ACK handling
// and retransmission, and the request/response payloads the driver uses.
package serialapi

import (
	"errors"
	"fmt"
)

// Serial API control bytes
const (
	SOF = 0x01 // start of frame
	ACK = 0x06
	NAK = 0x15
	CAN = 0x18 // frame collision, retransmit

	// Frame types
	TypeRequest  = 0x00
	TypeResponse = 0x01

	// minimum LEN: type + function + checksum
	minFrameLen = 3
	maxFrameLen = 0xFF
)

var (
	// ErrBadChecksum indicates a frame whose checksum does not match
	ErrBadChecksum = errors.New("bad frame checksum")

	// ErrFrameTooShort indicates a frame shorter than type+function+checksum
	ErrFrameTooShort = errors.New("frame too short")

	// ErrNoACK indicates a frame was not acknowledged after all attempts
	ErrNoACK = errors.New("frame not acknowledged")

	// ErrClosed indicates use of a closed link
	ErrClosed = errors.New("link closed")
)

// Frame is one decoded Serial API data frame.
type Frame struct {
	Type    uint8
	Func    uint8
	Payload []byte
}

// Request builds a host-to-controller request frame.
func Request(fn uint8, payload ...byte) Frame {
	return Frame{Type: TypeRequest, Func: fn, Payload: payload}
}

// Response builds a controller-to-host response frame.
func Response(fn uint8, payload ...byte) Frame {
	return Frame{Type: TypeResponse, Func: fn, Payload: payload}
}

// IsResponse reports whether f is a response frame.
func (f Frame) IsResponse() bool {
	return f.Type == TypeResponse
}

func (f Frame) String() string {
	kind := "REQ"
	if f.IsResponse() {
		kind = "RES"
	}
	return fmt.Sprintf("%s %s % X", kind, FuncName(f.Func), f.Payload)
}

// Encode returns the wire form: SOF LEN TYPE FUNC PAYLOAD CHECKSUM.
func (f Frame) Encode() ([]byte, error) {
	n := len(f.Payload) + minFrameLen
	if n > maxFrameLen {
		return nil, fmt.Errorf("payload of %d bytes does not fit a frame", len(f.Payload))
	}
	out := make([]byte, 0, n+2)
	out = append(out, SOF, byte(n), f.Type, f.Func)
	out = append(out, f.Payload...)
	out = append(out, checksum(out[1:]))
	return out, nil
}

// Decode parses the bytes following SOF: LEN TYPE FUNC PAYLOAD CHECKSUM.
func Decode(raw []byte) (Frame, error) {
	if len(raw) < 1+minFrameLen {
		return Frame{}, ErrFrameTooShort
	}
	n := int(raw[0])
	if n < minFrameLen || len(raw) != n+1 {
		return Frame{}, fmt.Errorf("%w: length byte %d, got %d bytes", ErrFrameTooShort, n, len(raw)-1)
	}
	if got, want := raw[n], checksum(raw[:n]); got != want {
		return Frame{}, fmt.Errorf("%w: got 0x%02X want 0x%02X", ErrBadChecksum, got, want)
	}
	payload := make([]byte, n-minFrameLen)
	copy(payload, raw[3:n])
	return Frame{Type: raw[1], Func: raw[2], Payload: payload}, nil
}

// checksum is 0xFF XORed with every byte from LEN through the payload.
func checksum(data []byte) byte {
	cs := byte(0xFF)
	for _, b := range data {
		cs ^= b
	}
	return cs
}
