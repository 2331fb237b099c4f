package netcard

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// channelConnector hands frame bodies to its peer over buffered channels,
// standing in for two transcoders on a perfect line.
type channelConnector struct {
	in  chan []byte
	out chan []byte
}

func newChannelConnectorPair() (*channelConnector, *channelConnector) {
	alphaToBeta, betaToAlpha := make(chan []byte, 100), make(chan []byte, 100)
	return &channelConnector{in: betaToAlpha, out: alphaToBeta},
		&channelConnector{in: alphaToBeta, out: betaToAlpha}
}

func (connector *channelConnector) WriteFrame(ctx context.Context, body []byte) error {
	select {
	case connector.out <- slices.Clone(body):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (connector *channelConnector) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case body := <-connector.in:
		return body, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// frameManipulator sits between a card and its connector and records,
// drops or corrupts outgoing units. Data frames are matched by sequence
// number and transmission attempt, acknowledgments by their running count.
type frameManipulator struct {
	extension Connector

	mu          sync.Mutex
	written     [][]byte
	attempts    map[byte]int
	dropData    map[byte][]int
	corruptData map[byte][]int
	dropAckNth  int
	acks        int
}

func newFrameManipulator(extension Connector) *frameManipulator {
	return &frameManipulator{
		extension:   extension,
		attempts:    make(map[byte]int),
		dropData:    make(map[byte][]int),
		corruptData: make(map[byte][]int),
	}
}

func (manipulator *frameManipulator) DropData(sequenceNumber byte, attempts ...int) {
	manipulator.mu.Lock()
	defer manipulator.mu.Unlock()
	manipulator.dropData[sequenceNumber] = append(manipulator.dropData[sequenceNumber], attempts...)
}

// CorruptData flips the payload checksum of the given attempts.
func (manipulator *frameManipulator) CorruptData(sequenceNumber byte, attempts ...int) {
	manipulator.mu.Lock()
	defer manipulator.mu.Unlock()
	manipulator.corruptData[sequenceNumber] = append(manipulator.corruptData[sequenceNumber], attempts...)
}

func (manipulator *frameManipulator) DropEveryNthAck(n int) {
	manipulator.mu.Lock()
	defer manipulator.mu.Unlock()
	manipulator.dropAckNth = n
}

func (manipulator *frameManipulator) WriteFrame(ctx context.Context, body []byte) error {
	manipulator.mu.Lock()
	body = slices.Clone(body)
	manipulator.written = append(manipulator.written, slices.Clone(body))
	drop := false
	if len(body) == AckLength {
		manipulator.acks++
		drop = manipulator.dropAckNth > 0 && manipulator.acks%manipulator.dropAckNth == 0
	} else if len(body) > AckLength {
		seq := body[sequenceNumberPosition.Start]
		manipulator.attempts[seq]++
		attempt := manipulator.attempts[seq]
		drop = slices.Contains(manipulator.dropData[seq], attempt)
		if slices.Contains(manipulator.corruptData[seq], attempt) {
			body[payloadChecksumPosition.Start] ^= 0xFF
		}
	}
	manipulator.mu.Unlock()

	if drop {
		return nil
	}
	return manipulator.extension.WriteFrame(ctx, body)
}

func (manipulator *frameManipulator) ReadFrame(ctx context.Context) ([]byte, error) {
	return manipulator.extension.ReadFrame(ctx)
}

// Written returns every unit handed to the manipulator, dropped ones included.
func (manipulator *frameManipulator) Written() [][]byte {
	manipulator.mu.Lock()
	defer manipulator.mu.Unlock()
	return slices.Clone(manipulator.written)
}

func (manipulator *frameManipulator) dataWrites(sequenceNumber byte) [][]byte {
	var result [][]byte
	for _, body := range manipulator.Written() {
		if len(body) > AckLength && body[sequenceNumberPosition.Start] == sequenceNumber {
			result = append(result, body)
		}
	}
	return result
}

// testLine is a two-sided line: every endpoint reads the sum of the others.
type testLine struct {
	mu     sync.Mutex
	levels map[string]Voltage
}

func newTestLine() *testLine {
	return &testLine{levels: make(map[string]Voltage)}
}

func (line *testLine) SetLevel(endpoint string, level Voltage) {
	line.mu.Lock()
	defer line.mu.Unlock()
	line.levels[endpoint] = level
}

func (line *testLine) GetLevel(endpoint string) Voltage {
	line.mu.Lock()
	defer line.mu.Unlock()
	var level Voltage
	for name, driven := range line.levels {
		if name != endpoint {
			level += driven
		}
	}
	return level
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.AckTimeout = 50 * time.Millisecond
	return cfg
}

// lineConfig is fast enough for tests and slow enough for timer jitter.
func lineConfig() Config {
	cfg := DefaultConfig()
	cfg.PulseWidth = 10 * time.Millisecond
	cfg.PollInterval = time.Millisecond
	cfg.MaxPayloadSize = 32
	cfg.AckTimeout = 3 * time.Second
	return cfg
}

func testContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

var quietLogger = zerolog.Nop()
