package discord

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Opcode identifies the kind of an IPC frame.
type Opcode uint32

const (
	OpHandshake Opcode = 0
	OpFrame     Opcode = 1
	OpClose     Opcode = 2
	OpPing      Opcode = 3
	OpPong      Opcode = 4

	// headerSize is the little-endian opcode plus the little-endian length.
	headerSize = 8

	// MaxPayloadSize bounds a single frame payload in either direction.
	MaxPayloadSize = 1 << 20

	// ipcSlots is how many numbered sockets or pipes Discord may listen on.
	ipcSlots = 10
)

var (
	// ErrPayloadTooLarge is returned for frames above MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrIPCNotAvailable is returned when no Discord socket or pipe answers.
	ErrIPCNotAvailable = errors.New("discord IPC not available")
)

func (op Opcode) String() string {
	switch op {
	case OpHandshake:
		return "HANDSHAKE"
	case OpFrame:
		return "FRAME"
	case OpClose:
		return "CLOSE"
	case OpPing:
		return "PING"
	case OpPong:
		return "PONG"
	default:
		return fmt.Sprintf("OPCODE(%d)", uint32(op))
	}
}

// EncodeFrame returns payload framed as [opcode][length][payload].
func EncodeFrame(op Opcode, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	frame := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], uint32(op))
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[headerSize:], payload)
	return frame, nil
}

// DecodeFrame reads exactly one frame from r.
func DecodeFrame(r io.Reader) (Opcode, []byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("read frame header: %w", err)
	}

	op := Opcode(binary.LittleEndian.Uint32(header[0:4]))
	n := binary.LittleEndian.Uint32(header[4:8])
	if n > MaxPayloadSize {
		return 0, nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, n, MaxPayloadSize)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("read frame payload: %w", err)
	}
	return op, payload, nil
}

// writeJSON marshals v and writes it to w as a single frame.
func writeJSON(w io.Writer, op Opcode, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", op, err)
	}
	return writeFrame(w, op, payload)
}

func writeFrame(w io.Writer, op Opcode, payload []byte) error {
	frame, err := EncodeFrame(op, payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write %s frame: %w", op, err)
	}
	return nil
}
