package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Serialize writes p into dst followed by Terminator.
func Serialize(dst []byte, p Packet) (Result, error) {
	n := len(p.Payload)
	if n == 0 || n > MaxPayloadSize {
		return fail(fmt.Errorf("%w: payload_length=%d", ErrBadInput, n))
	}
	size := HeaderSize + n + 1
	if size > len(dst) {
		return fail(fmt.Errorf("%w: need=%d have=%d", ErrBadInput, size, len(dst)))
	}
	head := [4]byte{p.Version, uint8(p.Type), uint8(p.Arg), uint8(p.Flags)}
	if bytes.IndexByte(head[:], Terminator) >= 0 {
		return fail(fmt.Errorf("%w: terminator in header", ErrBadInput))
	}
	if bytes.IndexByte(p.Payload, Terminator) >= 0 {
		return fail(fmt.Errorf("%w: terminator in payload", ErrBadInput))
	}

	copy(dst[0:4], head[:])
	binary.BigEndian.PutUint16(dst[4:6], uint16(n))
	copy(dst[HeaderSize:], p.Payload)
	dst[size-1] = Terminator
	return Result{Code: CodeNone, Size: size}, nil
}

// Deserialize parses one terminated packet from src. The returned payload
// aliases src.
func Deserialize(src []byte) (Packet, error) {
	if len(src) > MaxPacketSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrBadSize, len(src))
	}
	if len(src) < HeaderSize+1 {
		return Packet{}, fmt.Errorf("%w: short header", ErrBadPayload)
	}
	n := int(binary.BigEndian.Uint16(src[4:6]))
	if n == 0 {
		return Packet{}, fmt.Errorf("%w: zero payload_length", ErrBadPayload)
	}
	if HeaderSize+n+1 != len(src) {
		return Packet{}, fmt.Errorf("%w: payload_length=%d available=%d", ErrBadPayload, n, len(src)-HeaderSize-1)
	}
	if src[len(src)-1] != Terminator {
		return Packet{}, fmt.Errorf("%w: missing terminator", ErrBadPayload)
	}
	if i := bytes.IndexByte(src[:len(src)-1], Terminator); i >= 0 {
		return Packet{}, fmt.Errorf("%w: terminator at offset %d", ErrBadPayload, i)
	}
	return Packet{
		Version: src[0],
		Type:    Type(src[1]),
		Arg:     Arg(src[2]),
		Flags:   Flags(src[3]),
		Payload: src[HeaderSize : HeaderSize+n : HeaderSize+n],
	}, nil
}

func fail(err error) (Result, error) {
	return Result{Code: Classify(err)}, err
}
