package netcard

import (
	"context"
	"errors"
)

func (card *NetworkCard) receiveLoop(ctx context.Context) {
	defer card.loops.Done()
	for {
		raw, err := card.conn.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrFrameOverflow) {
				card.counters.discarded.Add(1)
				continue
			}
			card.logger.Warn().Err(err).Msg("frame read failed")
			if sleepFor(ctx, card.cfg.PollInterval) != nil {
				return
			}
			continue
		}
		status := card.handleUnit(ctx, raw)
		if ctx.Err() != nil {
			return
		}
		card.logger.Trace().Stringer("status", status).Int("bytes", len(raw)).Msg("unit handled")
	}
}

// handleUnit classifies one reassembled unit. Header-only units are
// acknowledgments; anything longer is a data frame that is delivered only
// if it carries the next expected sequence number. A verified copy of the
// last delivered frame means our ack got lost and is answered again.
func (card *NetworkCard) handleUnit(ctx context.Context, raw []byte) statusCode {
	frame, err := Decode(raw)
	if err != nil {
		card.counters.discarded.Add(1)
		return invalidSegment
	}

	if frame.IsAcknowledgment {
		if card.state.acknowledge(frame, card.id) {
			return ackReceived
		}
		card.logger.Debug().Uint8("seq", frame.SequenceNumber).Msg("ignoring ack")
		return staleAck
	}

	expected := card.state.expectedSequenceNumber()
	if Verify(frame, card.id, expected) {
		card.state.accept(expected)
		card.state.postAck(ackRequest{destination: frame.Source, sequenceNumber: expected})
		if err := card.inbound.Enqueue(ctx, frame); err != nil {
			return invalidSegment
		}
		card.counters.delivered.Add(1)
		card.logger.Debug().Uint8("seq", expected).Uint8("from", frame.Source).Msg("frame delivered")
		return success
	}

	if last, ok := card.state.lastAccepted(); ok && Verify(frame, card.id, last) {
		card.state.postAck(ackRequest{destination: frame.Source, sequenceNumber: last})
		card.counters.duplicates.Add(1)
		card.logger.Debug().Uint8("seq", last).Msg("duplicate frame, acknowledging again")
		return duplicateSegment
	}

	card.counters.discarded.Add(1)
	card.logger.Debug().
		Uint8("seq", frame.SequenceNumber).
		Uint8("expected", expected).
		Uint8("destination", frame.Destination).
		Msg("discarding frame")
	return invalidSegment
}
