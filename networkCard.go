package netcard

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/nicosta1132/netcard-go/container"
	"github.com/nicosta1132/netcard-go/logging"
	"github.com/rs/zerolog"
)

// outboundFrame pairs a queued frame with the handle its sender waits on.
type outboundFrame struct {
	frame    *Frame
	delivery *Delivery
}

// NetworkCard is one endpoint of the link. After Open it runs a transmit loop
// and a receive loop over the same Connector; they cooperate only through
// linkState.
type NetworkCard struct {
	id     byte
	name   string
	conn   Connector
	cfg    Config
	logger zerolog.Logger

	outbound *container.Queue[*outboundFrame]
	inbound  *container.Queue[*Frame]
	state    *linkState
	counters counters
	txState  atomic.Int32

	mu      sync.Mutex
	opened  bool
	sending sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	loops   sync.WaitGroup
	closing sync.Once
}

type Option func(*NetworkCard)

func WithConfig(cfg Config) Option {
	return func(card *NetworkCard) {
		card.cfg = cfg
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(card *NetworkCard) {
		card.logger = logger
	}
}

func NewNetworkCard(id byte, conn Connector, opts ...Option) *NetworkCard {
	card := &NetworkCard{
		id:     id,
		name:   fmt.Sprintf("NetCard%d", id),
		conn:   conn,
		cfg:    DefaultConfig(),
		logger: logging.New("netcard"),
		state:  newLinkState(),
	}
	for _, opt := range opts {
		opt(card)
	}
	card.logger = card.logger.With().Uint8("card", id).Logger()
	card.outbound = container.NewQueue[*outboundFrame](card.cfg.QueueSize)
	card.inbound = container.NewQueue[*Frame](card.cfg.QueueSize)
	card.ctx, card.cancel = context.WithCancel(context.Background())
	return card
}

// AttachToLine creates a card that talks to line through a Transcoder named
// after the card.
func AttachToLine(id byte, line Line, opts ...Option) *NetworkCard {
	card := NewNetworkCard(id, nil, opts...)
	card.conn = NewTranscoder(line, card.name, card.cfg, card.logger)
	return card
}

func (card *NetworkCard) ID() byte {
	return card.id
}

func (card *NetworkCard) Name() string {
	return card.name
}

// Open starts the transmit and receive loops.
func (card *NetworkCard) Open() error {
	card.mu.Lock()
	defer card.mu.Unlock()
	if card.ctx.Err() != nil {
		return ErrClosed
	}
	if card.opened {
		return ErrAlreadyOpen
	}
	if card.conn == nil {
		return ErrConnectorMissing
	}
	if err := card.cfg.Validate(); err != nil {
		return err
	}
	card.opened = true

	card.loops.Add(2)
	go card.transmitLoop(card.ctx)
	go card.receiveLoop(card.ctx)
	card.logger.Debug().Msg("card opened")
	return nil
}

// Close stops both loops without finishing an in-flight retransmission.
// Deliveries still queued resolve with ErrClosed.
func (card *NetworkCard) Close() error {
	card.closing.Do(func() {
		card.cancel()
		card.loops.Wait()

		// a Send holding the read lock has either enqueued or seen the cancel
		card.sending.Lock()
		defer card.sending.Unlock()
		for {
			item, ok := card.outbound.TryDequeue()
			if !ok {
				break
			}
			item.delivery.resolve(ErrClosed)
		}
		card.logger.Debug().Msg("card closed")
	})
	return nil
}

// scope derives a context that is also cancelled when the card closes.
func (card *NetworkCard) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(card.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (card *NetworkCard) translate(ctx context.Context, err error) error {
	if card.ctx.Err() != nil {
		return ErrClosed
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Send blocks until a copy of frame is accepted into the outbound queue; the
// caller's frame is left untouched and may be sent again. The returned
// Delivery resolves once the copy is acknowledged or abandoned.
func (card *NetworkCard) Send(ctx context.Context, frame *Frame) (*Delivery, error) {
	if frame == nil || len(frame.Payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(frame.Payload) > card.cfg.MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, len(frame.Payload), card.cfg.MaxPayloadSize)
	}

	card.sending.RLock()
	defer card.sending.RUnlock()
	if card.ctx.Err() != nil {
		return nil, ErrClosed
	}

	outgoing := &Frame{
		Source:      card.id,
		Destination: frame.Destination,
		Payload:     slices.Clone(frame.Payload),
	}
	delivery := newDelivery(outgoing)

	scoped, cancel := card.scope(ctx)
	defer cancel()
	if err := card.outbound.Enqueue(scoped, &outboundFrame{frame: outgoing, delivery: delivery}); err != nil {
		return nil, card.translate(ctx, err)
	}
	card.logger.Debug().
		Str("delivery", delivery.ID.String()).
		Uint8("destination", outgoing.Destination).
		Int("bytes", len(outgoing.Payload)).
		Msg("frame queued")
	return delivery, nil
}

// SendAndWait sends frame and waits for its delivery outcome.
func (card *NetworkCard) SendAndWait(ctx context.Context, frame *Frame) error {
	delivery, err := card.Send(ctx, frame)
	if err != nil {
		return err
	}
	scoped, cancel := card.scope(ctx)
	defer cancel()
	if err := delivery.Wait(scoped); err != nil {
		if err == ErrClosed || err == scoped.Err() {
			return card.translate(ctx, err)
		}
		return err
	}
	return nil
}

// Receive blocks until a validated inbound frame is available.
func (card *NetworkCard) Receive(ctx context.Context) (*Frame, error) {
	scoped, cancel := card.scope(ctx)
	defer cancel()
	frame, err := card.inbound.Dequeue(scoped)
	if err != nil {
		return nil, card.translate(ctx, err)
	}
	return frame, nil
}
