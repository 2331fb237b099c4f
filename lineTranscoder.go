package netcard

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Transcoder turns bytes into timed voltage pulses on a Line and back.
//
// A byte on the wire is a low guard of four pulse widths, a high start pulse
// and eight data pulses, most significant bit first. A frame is its stuffed
// body followed by one unstuffed sentinel, after which the line returns to
// neutral.
type Transcoder struct {
	line   Line
	name   string
	cfg    Config
	logger zerolog.Logger
}

func NewTranscoder(line Line, name string, cfg Config, logger zerolog.Logger) *Transcoder {
	return &Transcoder{
		line:   line,
		name:   name,
		cfg:    cfg,
		logger: logger.With().Str("endpoint", name).Logger(),
	}
}

func (t *Transcoder) Name() string {
	return t.name
}

func sleepUntil(ctx context.Context, deadline time.Time) error {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func sleepFor(ctx context.Context, d time.Duration) error {
	return sleepUntil(ctx, time.Now().Add(d))
}

// drive holds level for n pulse widths measured from next and returns the
// end of the interval, so consecutive pulses do not accumulate drift.
func (t *Transcoder) drive(ctx context.Context, level Voltage, n int, next time.Time) (time.Time, error) {
	t.line.SetLevel(t.name, level)
	next = next.Add(time.Duration(n) * t.cfg.PulseWidth)
	return next, sleepUntil(ctx, next)
}

func (t *Transcoder) bitLevel(value byte) Voltage {
	if value&0x80 == 0x80 {
		return t.cfg.HighVoltage
	}
	return t.cfg.LowVoltage
}

func (t *Transcoder) transmitByte(ctx context.Context, value byte, next time.Time) (time.Time, error) {
	var err error
	if next, err = t.drive(ctx, t.cfg.LowVoltage, guardPulses, next); err != nil {
		return next, err
	}
	if next, err = t.drive(ctx, t.cfg.HighVoltage, 1, next); err != nil {
		return next, err
	}
	for bit := 0; bit < bitsPerByte; bit++ {
		if next, err = t.drive(ctx, t.bitLevel(value), 1, next); err != nil {
			return next, err
		}
		value <<= 1
	}
	return next, nil
}

// TransmitByte sends one byte as is, without stuffing.
func (t *Transcoder) TransmitByte(ctx context.Context, value byte) error {
	_, err := t.transmitByte(ctx, value, time.Now())
	return err
}

// WriteFrame stuffs body, sends it and terminates it with a sentinel. The
// line is left neutral even when ctx is cancelled mid-frame.
func (t *Transcoder) WriteFrame(ctx context.Context, body []byte) error {
	defer t.line.SetLevel(t.name, Neutral)

	next, err := t.drive(ctx, t.cfg.LowVoltage, guardPulses, time.Now())
	if err != nil {
		return err
	}
	for _, b := range Stuff(body) {
		if next, err = t.transmitByte(ctx, b, next); err != nil {
			return err
		}
	}
	if next, err = t.transmitByte(ctx, Sentinel, next); err != nil {
		return err
	}
	_, err = t.drive(ctx, Neutral, 1, next)
	t.logger.Trace().Int("bytes", len(body)).Msg("frame transmitted")
	return err
}

// awaitByteStart blocks until the line has been low for the qualifying dwell
// and then rises above the upper threshold. It returns false when the low
// period was too short, which is how noise on an idle line is ignored.
func (t *Transcoder) awaitByteStart(ctx context.Context) (bool, time.Time, error) {
	upper, lower := t.cfg.upperThreshold(), t.cfg.lowerThreshold()

	for t.line.GetLevel(t.name) > lower {
		if err := sleepFor(ctx, t.cfg.PollInterval); err != nil {
			return false, time.Time{}, err
		}
	}

	dwell := 0
	for dwell < byteStartPulses && t.line.GetLevel(t.name) < lower {
		dwell++
		if err := sleepFor(ctx, t.cfg.PulseWidth); err != nil {
			return false, time.Time{}, err
		}
	}
	if dwell < byteStartPulses {
		return false, time.Time{}, nil
	}

	for t.line.GetLevel(t.name) < upper {
		if err := sleepFor(ctx, t.cfg.PollInterval); err != nil {
			return false, time.Time{}, err
		}
	}
	return true, time.Now(), nil
}

// ReceiveByte waits for a byte start and samples the middle of the eight
// following pulses.
func (t *Transcoder) ReceiveByte(ctx context.Context) (byte, error) {
	var (
		started bool
		rise    time.Time
		err     error
	)
	for !started {
		if started, rise, err = t.awaitByteStart(ctx); err != nil {
			return 0, err
		}
	}

	upper := t.cfg.upperThreshold()
	pulse := t.cfg.PulseWidth
	var value byte
	for bit := 0; bit < bitsPerByte; bit++ {
		sample := rise.Add(pulse + pulse/2 + time.Duration(bit)*pulse)
		if err := sleepUntil(ctx, sample); err != nil {
			return 0, err
		}
		value <<= 1
		if t.line.GetLevel(t.name) > upper {
			value |= 1
		}
	}
	return value, nil
}

// ReadFrame reassembles one frame body up to an unescaped sentinel. A body
// longer than the reassembly limit is drained up to its sentinel and
// reported as ErrFrameOverflow instead of being truncated.
func (t *Transcoder) ReadFrame(ctx context.Context) ([]byte, error) {
	limit := t.cfg.reassemblyLimit()
	buffer := make([]byte, 0, HeaderLength+64)
	overflow := false

	for {
		b, err := t.ReceiveByte(ctx)
		if err != nil {
			return nil, err
		}
		if b == Sentinel {
			break
		}
		if b == Escape {
			if b, err = t.ReceiveByte(ctx); err != nil {
				return nil, err
			}
		}
		if len(buffer) == limit {
			overflow = true
			continue
		}
		buffer = append(buffer, b)
	}

	if overflow {
		t.logger.Debug().Int("limit", limit).Msg("reassembly overflow")
		return nil, ErrFrameOverflow
	}
	t.logger.Trace().Int("bytes", len(buffer)).Msg("frame reassembled")
	return buffer, nil
}
