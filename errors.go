package netcard

import "errors"

var (
	ErrShortFrame       = errors.New("netcard: frame shorter than header")
	ErrDanglingEscape   = errors.New("netcard: escape byte without successor")
	ErrFrameOverflow    = errors.New("netcard: no sentinel before reassembly buffer exhausted")
	ErrEmptyPayload     = errors.New("netcard: data frame needs a payload")
	ErrPayloadTooLarge  = errors.New("netcard: payload too large")
	ErrDeliveryFailed   = errors.New("netcard: delivery failed")
	ErrClosed           = errors.New("netcard: card closed")
	ErrAlreadyOpen      = errors.New("netcard: card already open")
	ErrInvalidConfig    = errors.New("netcard: invalid config")
	ErrConnectorMissing = errors.New("netcard: no connector")
)
