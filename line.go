package netcard

import "context"

type Voltage float64

const Neutral Voltage = 0

// Line is the shared analog medium a card is attached to. Levels are set and
// read per endpoint name so the medium can tell the attached cards apart.
type Line interface {
	SetLevel(endpoint string, level Voltage)
	GetLevel(endpoint string) Voltage
}

// Connector moves unstuffed frame bodies across a medium. The transmit loop
// is the only writer and the receive loop the only reader, so WriteFrame and
// ReadFrame may run concurrently but never concurrently with themselves.
type Connector interface {
	WriteFrame(ctx context.Context, body []byte) error
	ReadFrame(ctx context.Context) ([]byte, error)
}
