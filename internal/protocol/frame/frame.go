package frame

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"

	"github.com/danmuck/admiral/internal/protocol/packet"
)

var (
	ErrNoIdentity = errors.New("frame: peer has no identity")
	ErrShortWrite = errors.New("frame: short write")
)

// Limits constrains receive buffer use per connection.
type Limits struct {
	MaxPacketBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxPacketBytes: packet.MaxPacketSize}
}

// WritePacket serializes p into a stack buffer and writes exactly the
// serialized bytes to w.
func WritePacket(w io.Writer, p packet.Packet) (packet.Result, error) {
	var buf [packet.MaxPacketSize]byte
	res, err := packet.Serialize(buf[:], p)
	if err != nil {
		return res, err
	}
	n, err := w.Write(buf[:res.Size])
	if err != nil {
		return packet.Result{Code: packet.CodeBadInput}, fmt.Errorf("%w: write: %v", packet.ErrBadInput, err)
	}
	if n != res.Size {
		return packet.Result{Code: packet.CodeBadInput}, fmt.Errorf("%w: %w: %d of %d", packet.ErrBadInput, ErrShortWrite, n, res.Size)
	}
	return res, nil
}

// ReadPacket accumulates bytes from r into buf until the terminator is
// seen, then deserializes them. len(buf) is the maximum packet size; more
// bytes than that without a terminator fail with packet.ErrBadSize and are
// never parsed. Bytes after the terminator are discarded. The returned
// payload aliases buf.
func ReadPacket(r io.Reader, buf []byte) (packet.Packet, error) {
	var scratch [packet.MaxPacketSize]byte
	size := 0
	for {
		n, err := r.Read(scratch[:])
		for i := 0; i < n; i++ {
			if size >= len(buf) {
				return packet.Packet{}, fmt.Errorf("%w: exceeded %d bytes without terminator", packet.ErrBadSize, len(buf))
			}
			buf[size] = scratch[i]
			size++
			if scratch[i] == packet.Terminator {
				return packet.Deserialize(buf[:size])
			}
		}
		if err != nil {
			return packet.Packet{}, fmt.Errorf("%w: read after %d bytes: %v", packet.ErrBadInput, size, err)
		}
		if n == 0 {
			return packet.Packet{}, fmt.Errorf("%w: empty read after %d bytes", packet.ErrBadInput, size)
		}
	}
}

// PeerIdentity returns the numeric host:port of the remote end of conn.
func PeerIdentity(conn net.Conn) (string, error) {
	if conn == nil || conn.RemoteAddr() == nil {
		return "", ErrNoIdentity
	}
	return NormalizeAddr(conn.RemoteAddr().String())
}

// NormalizeAddr renders addr as numeric host:port, unmapping IPv4-in-IPv6.
func NormalizeAddr(addr string) (string, error) {
	ap, err := netip.ParseAddrPort(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrNoIdentity, addr)
	}
	ap = netip.AddrPortFrom(ap.Addr().Unmap().WithZone(""), ap.Port())
	return ap.String(), nil
}
