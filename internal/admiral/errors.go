package admiral

import (
	"errors"
	"fmt"

	"github.com/danmuck/admiral/internal/protocol/packet"
)

// codedError is an admiral error that classifies outside the packet taxonomy.
type codedError struct {
	msg  string
	code packet.Code
}

func (e *codedError) Error() string     { return e.msg }
func (e *codedError) Code() packet.Code { return e.code }

var (
	ErrQueueFull       error = &codedError{msg: "admiral: queue full", code: packet.CodeQueueFull}
	ErrSpoofedSender         = fmt.Errorf("%w: spoofed sender", packet.ErrBadPayload)
	ErrShortEnvelope         = fmt.Errorf("%w: envelope shorter than 3 bytes", packet.ErrBadPayload)
	ErrUnknownIdentity       = fmt.Errorf("%w: unknown endpoint identity", packet.ErrBadPayload)
	ErrPayloadTooLarge       = fmt.Errorf("%w: payload exceeds queue slot", packet.ErrBadPayload)
	ErrUnknownPeer           = errors.New("admiral: unregistered peer")
	ErrInvalidCapacity       = errors.New("admiral: invalid queue capacity")
)
