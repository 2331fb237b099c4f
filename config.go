package netcard

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the tunables of one card and its line transcoder.
type Config struct {
	PulseWidth         time.Duration
	PollInterval       time.Duration
	HighVoltage        Voltage
	LowVoltage         Voltage
	MaxPayloadSize     int
	QueueSize          int
	AckTimeout         time.Duration
	MaxRetransmissions int
}

func DefaultConfig() Config {
	return Config{
		PulseWidth:         DefaultPulseWidth,
		PollInterval:       DefaultPulseWidth / 10,
		HighVoltage:        DefaultHighVoltage,
		LowVoltage:         DefaultLowVoltage,
		MaxPayloadSize:     DefaultMaxPayloadSize,
		QueueSize:          DefaultQueueSize,
		AckTimeout:         DefaultAckTimeout,
		MaxRetransmissions: DefaultMaxRetransmissions,
	}
}

func (cfg Config) Validate() error {
	switch {
	case cfg.PulseWidth <= 0:
		return fmt.Errorf("%w: pulse width must be positive", ErrInvalidConfig)
	case cfg.PollInterval <= 0 || cfg.PollInterval >= cfg.PulseWidth:
		return fmt.Errorf("%w: poll interval must be in (0, pulse width)", ErrInvalidConfig)
	case cfg.HighVoltage <= 0 || cfg.LowVoltage >= 0:
		return fmt.Errorf("%w: high voltage must be positive and low voltage negative", ErrInvalidConfig)
	case cfg.MaxPayloadSize <= 0:
		return fmt.Errorf("%w: max payload size must be positive", ErrInvalidConfig)
	case cfg.QueueSize <= 0:
		return fmt.Errorf("%w: queue size must be positive", ErrInvalidConfig)
	case cfg.AckTimeout <= 0:
		return fmt.Errorf("%w: ack timeout must be positive", ErrInvalidConfig)
	case cfg.MaxRetransmissions < 0:
		return fmt.Errorf("%w: max retransmissions must not be negative", ErrInvalidConfig)
	}
	return nil
}

// upperThreshold and lowerThreshold split the line into high, neutral and low bands.
func (cfg Config) upperThreshold() Voltage {
	return cfg.HighVoltage + cfg.LowVoltage/3
}

func (cfg Config) lowerThreshold() Voltage {
	return cfg.LowVoltage + cfg.HighVoltage/3
}

func (cfg Config) reassemblyLimit() int {
	return HeaderLength + cfg.MaxPayloadSize
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type fileConfig struct {
	PulseWidth         duration `toml:"pulse_width"`
	PollInterval       duration `toml:"poll_interval"`
	HighVoltage        float64  `toml:"high_voltage"`
	LowVoltage         float64  `toml:"low_voltage"`
	MaxPayloadSize     int      `toml:"max_payload_size"`
	QueueSize          int      `toml:"queue_size"`
	AckTimeout         duration `toml:"ack_timeout"`
	MaxRetransmissions int      `toml:"max_retransmissions"`
}

// LoadConfig reads a TOML file and applies the keys it defines over DefaultConfig.
// When pulse_width is set without poll_interval, the poll interval follows it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load netcard config: %w", err)
	}

	if meta.IsDefined("pulse_width") {
		cfg.PulseWidth = raw.PulseWidth.Duration
		cfg.PollInterval = cfg.PulseWidth / 10
	}
	if meta.IsDefined("poll_interval") {
		cfg.PollInterval = raw.PollInterval.Duration
	}
	if meta.IsDefined("high_voltage") {
		cfg.HighVoltage = Voltage(raw.HighVoltage)
	}
	if meta.IsDefined("low_voltage") {
		cfg.LowVoltage = Voltage(raw.LowVoltage)
	}
	if meta.IsDefined("max_payload_size") {
		cfg.MaxPayloadSize = raw.MaxPayloadSize
	}
	if meta.IsDefined("queue_size") {
		cfg.QueueSize = raw.QueueSize
	}
	if meta.IsDefined("ack_timeout") {
		cfg.AckTimeout = raw.AckTimeout.Duration
	}
	if meta.IsDefined("max_retransmissions") {
		cfg.MaxRetransmissions = raw.MaxRetransmissions
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load netcard config: %w", err)
	}
	return cfg, nil
}
