package netcard

import "sync/atomic"

type Stats struct {
	TransmitState   string
	FramesSent      byte
	FramesReceived  byte
	Transmissions   uint64
	Retransmissions uint64
	AcksSent        uint64
	AcksReceived    uint64
	Delivered       uint64
	Duplicates      uint64
	Discarded       uint64
	Failures        uint64
}

type counters struct {
	transmissions   atomic.Uint64
	retransmissions atomic.Uint64
	acksSent        atomic.Uint64
	acksReceived    atomic.Uint64
	delivered       atomic.Uint64
	duplicates      atomic.Uint64
	discarded       atomic.Uint64
	failures        atomic.Uint64
}

func (card *NetworkCard) Stats() Stats {
	sent, received := card.state.counters()
	return Stats{
		TransmitState:   txState(card.txState.Load()).String(),
		FramesSent:      sent,
		FramesReceived:  received,
		Transmissions:   card.counters.transmissions.Load(),
		Retransmissions: card.counters.retransmissions.Load(),
		AcksSent:        card.counters.acksSent.Load(),
		AcksReceived:    card.counters.acksReceived.Load(),
		Delivered:       card.counters.delivered.Load(),
		Duplicates:      card.counters.duplicates.Load(),
		Discarded:       card.counters.discarded.Load(),
		Failures:        card.counters.failures.Load(),
	}
}
