package packet

import "errors"

var (
	ErrBadInput   = errors.New("packet: bad input")
	ErrBadSize    = errors.New("packet: bad size")
	ErrBadPayload = errors.New("packet: bad payload")
)

// Code classifies a codec, transport or admission outcome.
type Code uint8

const (
	CodeNone Code = iota
	CodeBadInput
	CodeBadSize
	CodeBadPayload
	CodeQueueFull
)

func (c Code) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeBadInput:
		return "bad_input"
	case CodeBadSize:
		return "bad_size"
	case CodeBadPayload:
		return "bad_payload"
	case CodeQueueFull:
		return "queue_full"
	default:
		return "unknown"
	}
}

// Classifier lets errors outside this package report their Code.
type Classifier interface {
	Code() Code
}

// Classify maps err onto the taxonomy. Unrecognized errors are BadInput.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, ErrBadSize):
		return CodeBadSize
	case errors.Is(err, ErrBadPayload):
		return CodeBadPayload
	case errors.Is(err, ErrBadInput):
		return CodeBadInput
	}
	var c Classifier
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeBadInput
}
