package packet

const (
	Version uint8 = 0x02

	// Terminator marks the end of a serialized packet. It may not appear in
	// any header field or payload byte.
	Terminator uint8 = 0xFF

	// PayloadEmpty is the single payload byte carried by INVALID packets.
	PayloadEmpty uint8 = 0x00

	HeaderSize = 6

	// MaxPacketSize bounds one serialized packet, terminator included. It is
	// small enough that neither payload_length byte can equal Terminator.
	MaxPacketSize  = 255
	MaxPayloadSize = MaxPacketSize - HeaderSize - 1
)

// Type is the packet kind.
type Type uint8

const (
	TypeInvalid Type = 0x00
	TypeSend    Type = 0x01
)

func (t Type) String() string {
	switch t {
	case TypeInvalid:
		return "invalid"
	case TypeSend:
		return "send"
	default:
		return "unknown"
	}
}

// Arg qualifies Type.
type Arg uint8

const (
	ArgInvalidPayload Arg = 0x00
	ArgSend           Arg = 0x01
)

// Flags is a bitmask. Only FlagsNone is in use.
type Flags uint8

const FlagsNone Flags = 0x00

// Packet is one LMP wire unit. Payload aliases the buffer it was decoded
// from; copy it before that buffer is reused.
type Packet struct {
	Version uint8
	Type    Type
	Arg     Arg
	Flags   Flags
	Payload []byte
}

// PayloadLength is the number of payload bytes.
func (p Packet) PayloadLength() int {
	return len(p.Payload)
}

// New builds a SEND packet for payload at the current protocol version.
func New(payload []byte) Packet {
	return Packet{
		Version: Version,
		Type:    TypeSend,
		Arg:     ArgSend,
		Flags:   FlagsNone,
		Payload: payload,
	}
}

// Invalid is the rejection response sent before closing a connection.
func Invalid() Packet {
	return Packet{
		Version: Version,
		Type:    TypeInvalid,
		Arg:     ArgInvalidPayload,
		Flags:   FlagsNone,
		Payload: []byte{PayloadEmpty},
	}
}

// IsInvalid reports whether p is a rejection response.
func (p Packet) IsInvalid() bool {
	return p.Type == TypeInvalid && len(p.Payload) == 1 && p.Payload[0] == PayloadEmpty
}

// Clone returns p with its payload copied out of the source buffer.
func (p Packet) Clone() Packet {
	out := p
	out.Payload = append([]byte(nil), p.Payload...)
	return out
}

// Result is the outcome of a codec or transport write. Size is only
// meaningful when Code is CodeNone.
type Result struct {
	Code Code
	Size int
}
