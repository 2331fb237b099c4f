package netcard

// Frame is one unit of data-link communication. Data frames carry a payload,
// acknowledgments are header only and reuse Destination and SequenceNumber
// as "who is acknowledged" and "which sequence number".
type Frame struct {
	Source           byte
	Destination      byte
	SequenceNumber   byte
	Payload          []byte
	HeaderChecksum   byte
	PayloadChecksum  byte
	IsAcknowledgment bool

	finalized bool
}

func NewFrame(destination byte, payload []byte) *Frame {
	data := make([]byte, len(payload))
	copy(data, payload)
	return &Frame{
		Destination: destination,
		Payload:     data,
	}
}

func NewTextFrame(destination byte, payload string) *Frame {
	return NewFrame(destination, []byte(payload))
}

func newAckFrame(source, destination, sequenceNumber byte) *Frame {
	ack := &Frame{
		Destination:      destination,
		IsAcknowledgment: true,
	}
	ack.finalize(source, sequenceNumber)
	return ack
}

// finalize fills in the header exactly once; later calls are no-ops so a
// retransmission reuses the first header.
func (frame *Frame) finalize(source, sequenceNumber byte) {
	if frame.finalized {
		return
	}
	frame.Source = source
	frame.SequenceNumber = sequenceNumber
	frame.HeaderChecksum = Checksum(frame.checkedHeader())
	frame.PayloadChecksum = Checksum(frame.transmittedPayload())
	frame.finalized = true
}

func (frame *Frame) checkedHeader() []byte {
	return []byte{frame.Source, frame.Destination, frame.SequenceNumber}
}

func (frame *Frame) transmittedPayload() []byte {
	if frame.IsAcknowledgment {
		return nil
	}
	return frame.Payload
}

func (frame *Frame) header() []byte {
	buffer := make([]byte, HeaderLength)
	buffer[sourcePosition.Start] = frame.Source
	buffer[destinationPosition.Start] = frame.Destination
	buffer[sequenceNumberPosition.Start] = frame.SequenceNumber
	buffer[headerChecksumPosition.Start] = frame.HeaderChecksum
	buffer[payloadChecksumPosition.Start] = frame.PayloadChecksum
	return buffer
}

func (frame *Frame) String() string {
	return string(frame.Payload)
}

// Encode returns the unstuffed wire form: header followed by the payload,
// which acknowledgments omit.
func Encode(frame *Frame) []byte {
	payload := frame.transmittedPayload()
	buffer := make([]byte, 0, HeaderLength+len(payload))
	buffer = append(buffer, frame.header()...)
	return append(buffer, payload...)
}

// Decode splits a reassembled unit into header fields and payload. It does
// not validate anything; use Verify for that.
func Decode(raw []byte) (*Frame, error) {
	if len(raw) < HeaderLength {
		return nil, ErrShortFrame
	}
	payload := make([]byte, len(raw)-HeaderLength)
	copy(payload, raw[HeaderLength:])
	return &Frame{
		Source:           raw[sourcePosition.Start],
		Destination:      raw[destinationPosition.Start],
		SequenceNumber:   raw[sequenceNumberPosition.Start],
		HeaderChecksum:   raw[headerChecksumPosition.Start],
		PayloadChecksum:  raw[payloadChecksumPosition.Start],
		Payload:          payload,
		IsAcknowledgment: len(raw) == AckLength,
		finalized:        true,
	}, nil
}

// Checksum is the one's-complement sum of buffer folded into a byte: carries
// out of the low byte are added back in, and the result is inverted.
func Checksum(buffer []byte) byte {
	var sum uint16
	for _, b := range buffer {
		sum += uint16(b)
		sum = (sum & 0xFF) + (sum >> 8)
	}
	return ^byte(sum)
}

// Verify reports whether frame is addressed to expectedDestination, carries
// expectedSequenceNumber and both checksums match.
func Verify(frame *Frame, expectedDestination, expectedSequenceNumber byte) bool {
	if frame == nil {
		return false
	}
	return frame.Destination == expectedDestination &&
		frame.SequenceNumber == expectedSequenceNumber &&
		Checksum(frame.checkedHeader()) == frame.HeaderChecksum &&
		Checksum(frame.Payload) == frame.PayloadChecksum
}
