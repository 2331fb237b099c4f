package netcard

import "sync"

type ackRequest struct {
	destination    byte
	sequenceNumber byte
}

// linkState is everything the transmit and receive loops share. Every field
// is guarded by mu; the two channels carry wake-ups with capacity one, so a
// signal raised before the other loop starts waiting is not lost.
type linkState struct {
	mu sync.Mutex

	framesSent     byte
	framesReceived byte
	received       bool
	outstanding    bool
	pendingAck     *ackRequest

	ackReceived chan struct{}
	ackPending  chan struct{}
}

func newLinkState() *linkState {
	return &linkState{
		ackReceived: make(chan struct{}, 1),
		ackPending:  make(chan struct{}, 1),
	}
}

func notify(signal chan struct{}) {
	select {
	case signal <- struct{}{}:
	default:
	}
}

// nextSequenceNumber numbers a new outbound data frame and marks it as the
// one outstanding frame. A stale ack signal from the previous frame is dropped.
func (s *linkState) nextSequenceNumber() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesSent++
	s.outstanding = true
	select {
	case <-s.ackReceived:
	default:
	}
	return s.framesSent
}

// settle ends the wait for the outstanding frame, acknowledged or not.
func (s *linkState) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding = false
}

// acknowledge signals the transmit loop if ack verifies against the
// outstanding frame. It reports whether it did.
func (s *linkState) acknowledge(ack *Frame, self byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.outstanding || !Verify(ack, self, s.framesSent) {
		return false
	}
	s.outstanding = false
	notify(s.ackReceived)
	return true
}

func (s *linkState) expectedSequenceNumber() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.framesReceived + 1
}

// lastAccepted returns the sequence number of the last delivered frame, if any.
func (s *linkState) lastAccepted() (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.framesReceived, s.received
}

func (s *linkState) accept(sequenceNumber byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesReceived = sequenceNumber
	s.received = true
}

// postAck stores an acknowledgment for the transmit loop to send. A newer
// request replaces one that has not been sent yet.
func (s *linkState) postAck(request ackRequest) {
	s.mu.Lock()
	s.pendingAck = &request
	s.mu.Unlock()
	notify(s.ackPending)
}

func (s *linkState) takeAck() *ackRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	request := s.pendingAck
	s.pendingAck = nil
	return request
}

func (s *linkState) counters() (sent, received byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.framesSent, s.framesReceived
}
