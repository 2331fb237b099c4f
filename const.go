package netcard

import "time"

const (
	Sentinel byte = 0x7E
	Escape   byte = 0x7D
)

const (
	HeaderLength = 5
	AckLength    = HeaderLength
)

const (
	DefaultPulseWidth         = 200 * time.Millisecond
	DefaultHighVoltage        = Voltage(2.5)
	DefaultLowVoltage         = Voltage(-2.5)
	DefaultMaxPayloadSize     = 1500
	DefaultQueueSize          = 5
	DefaultAckTimeout         = 10 * time.Second
	DefaultMaxRetransmissions = 5
)

// guardPulses is the low dwell before every byte, byteStartPulses the part of
// it a receiver must observe before it accepts a rising edge as a start pulse.
const (
	guardPulses     = 4
	byteStartPulses = 3
	bitsPerByte     = 8
)

type Position struct {
	Start int
	End   int
}

var sourcePosition = Position{0, 1}
var destinationPosition = Position{1, 2}
var sequenceNumberPosition = Position{2, 3}
var headerChecksumPosition = Position{3, 4}
var payloadChecksumPosition = Position{4, 5}

type txState int

const (
	idle txState = iota
	sending
	awaitingAck
	failed
)

func (s txState) String() string {
	switch s {
	case idle:
		return "idle"
	case sending:
		return "sending"
	case awaitingAck:
		return "awaiting-ack"
	case failed:
		return "failed"
	}
	return "unknown"
}

type statusCode int

const (
	success statusCode = iota
	ackReceived
	duplicateSegment
	invalidSegment
	staleAck
)

func (s statusCode) String() string {
	switch s {
	case success:
		return "success"
	case ackReceived:
		return "ack-received"
	case duplicateSegment:
		return "duplicate"
	case invalidSegment:
		return "invalid"
	case staleAck:
		return "stale-ack"
	}
	return "unknown"
}
