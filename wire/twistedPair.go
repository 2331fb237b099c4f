// Package wire provides an in-memory analog medium that network cards can be
// attached to in tests and in the demo.
package wire

import (
	"math/rand/v2"
	"sync"

	"github.com/nicosta1132/netcard-go"
)

// TwistedPair is a shared line. Each endpoint drives its own level and reads
// the sum of what every other endpoint drives, so two cards hear each other
// but not themselves.
type TwistedPair struct {
	mu      sync.Mutex
	levels  map[string]netcard.Voltage
	noise   float64
	random  *rand.Rand
	corrupt func(endpoint string, level netcard.Voltage) netcard.Voltage
}

type Option func(*TwistedPair)

// WithNoise adds Gaussian noise with the given standard deviation to every
// read. The seed makes a run reproducible.
func WithNoise(stddev float64, seed uint64) Option {
	return func(pair *TwistedPair) {
		pair.noise = stddev
		pair.random = rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	}
}

// WithCorruption installs a hook that may rewrite the level an endpoint reads.
func WithCorruption(corrupt func(endpoint string, level netcard.Voltage) netcard.Voltage) Option {
	return func(pair *TwistedPair) {
		pair.corrupt = corrupt
	}
}

func NewTwistedPair(opts ...Option) *TwistedPair {
	pair := &TwistedPair{
		levels: make(map[string]netcard.Voltage),
	}
	for _, opt := range opts {
		opt(pair)
	}
	return pair
}

func (pair *TwistedPair) SetLevel(endpoint string, level netcard.Voltage) {
	pair.mu.Lock()
	defer pair.mu.Unlock()
	pair.levels[endpoint] = level
}

func (pair *TwistedPair) GetLevel(endpoint string) netcard.Voltage {
	pair.mu.Lock()
	defer pair.mu.Unlock()

	var level netcard.Voltage
	for name, driven := range pair.levels {
		if name != endpoint {
			level += driven
		}
	}
	if pair.random != nil && pair.noise > 0 {
		level += netcard.Voltage(pair.random.NormFloat64() * pair.noise)
	}
	if pair.corrupt != nil {
		level = pair.corrupt(endpoint, level)
	}
	return level
}

// Driven reports the level endpoint itself drives, without noise.
func (pair *TwistedPair) Driven(endpoint string) netcard.Voltage {
	pair.mu.Lock()
	defer pair.mu.Unlock()
	return pair.levels[endpoint]
}
