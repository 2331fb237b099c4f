package netcard

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Delivery reports the fate of one frame handed to Send.
type Delivery struct {
	ID    uuid.UUID
	frame *Frame

	once sync.Once
	done chan struct{}
	err  error
}

func newDelivery(frame *Frame) *Delivery {
	return &Delivery{
		ID:    uuid.New(),
		frame: frame,
		done:  make(chan struct{}),
	}
}

func (d *Delivery) resolve(err error) {
	d.once.Do(func() {
		d.err = err
		close(d.done)
	})
}

// Frame returns the copy that was queued. Its header is filled in when
// transmission starts and is safe to read once Done is closed.
func (d *Delivery) Frame() *Frame {
	return d.frame
}

// Done is closed once the frame was acknowledged, abandoned or the card closed.
func (d *Delivery) Done() <-chan struct{} {
	return d.done
}

// Err returns nil while the delivery is pending or after it was acknowledged.
func (d *Delivery) Err() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}

func (d *Delivery) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
