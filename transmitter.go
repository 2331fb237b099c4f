package netcard

import (
	"context"
	"fmt"
	"time"
)

func (card *NetworkCard) setTxState(state txState) {
	previous := txState(card.txState.Swap(int32(state)))
	if previous != state {
		card.logger.Trace().Stringer("from", previous).Stringer("to", state).Msg("transmit state")
	}
}

func (card *NetworkCard) transmitLoop(ctx context.Context) {
	defer card.loops.Done()
	for {
		if err := card.flushPendingAck(ctx); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-card.state.ackPending:
		case item := <-card.outbound.Ready():
			if err := card.transmit(ctx, item); err != nil {
				return
			}
		}
	}
}

// flushPendingAck sends the acknowledgment the receive loop posted, if any.
// Acknowledgments are fire and forget.
func (card *NetworkCard) flushPendingAck(ctx context.Context) error {
	request := card.state.takeAck()
	if request == nil {
		return nil
	}
	ack := newAckFrame(card.id, request.destination, request.sequenceNumber)
	if err := card.conn.WriteFrame(ctx, Encode(ack)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		card.logger.Warn().Err(err).Uint8("seq", request.sequenceNumber).Msg("ack write failed")
		return nil
	}
	card.counters.acksSent.Add(1)
	card.logger.Debug().
		Uint8("seq", request.sequenceNumber).
		Uint8("to", request.destination).
		Msg("ack sent")
	return nil
}

// transmit runs one frame through sending and awaiting-ack until it is
// acknowledged or its retries exceed MaxRetransmissions. It only returns an
// error when the card is shutting down.
func (card *NetworkCard) transmit(ctx context.Context, item *outboundFrame) error {
	frame := item.frame
	frame.finalize(card.id, card.state.nextSequenceNumber())
	raw := Encode(frame)
	logger := card.logger.With().
		Str("delivery", item.delivery.ID.String()).
		Uint8("seq", frame.SequenceNumber).
		Logger()

	for retries := 0; retries <= card.cfg.MaxRetransmissions; retries++ {
		card.setTxState(sending)
		if retries > 0 {
			card.counters.retransmissions.Add(1)
			logger.Info().Int("retry", retries).Msg("no ack, retransmitting")
		}
		if err := card.conn.WriteFrame(ctx, raw); err != nil {
			if ctx.Err() != nil {
				item.delivery.resolve(ErrClosed)
				return ctx.Err()
			}
			logger.Warn().Err(err).Int("retry", retries).Msg("frame write failed")
		}
		card.counters.transmissions.Add(1)

		card.setTxState(awaitingAck)
		acked, err := card.awaitAck(ctx)
		if err != nil {
			item.delivery.resolve(ErrClosed)
			return err
		}
		if acked {
			card.counters.acksReceived.Add(1)
			logger.Debug().Int("retries", retries).Msg("frame acknowledged")
			item.delivery.resolve(nil)
			card.setTxState(idle)
			return nil
		}
	}

	card.state.settle()
	card.setTxState(failed)
	card.counters.failures.Add(1)
	transmissions := card.cfg.MaxRetransmissions + 1
	logger.Warn().Int("transmissions", transmissions).Msg("giving up on frame")
	item.delivery.resolve(fmt.Errorf("%w: seq %d to %d after %d transmissions",
		ErrDeliveryFailed, frame.SequenceNumber, frame.Destination, transmissions))
	card.setTxState(idle)
	return nil
}

// awaitAck waits up to AckTimeout for the receive loop to report the ack,
// sending any acknowledgment the receive loop posts in the meantime.
func (card *NetworkCard) awaitAck(ctx context.Context) (bool, error) {
	timer := time.NewTimer(card.cfg.AckTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-card.state.ackReceived:
			return true, nil
		case <-card.state.ackPending:
			if err := card.flushPendingAck(ctx); err != nil {
				return false, err
			}
		case <-timer.C:
			select {
			case <-card.state.ackReceived:
				return true, nil
			default:
				return false, nil
			}
		}
	}
}
