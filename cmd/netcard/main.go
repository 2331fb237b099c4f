package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nicosta1132/netcard-go"
	"github.com/nicosta1132/netcard-go/logging"
	"github.com/nicosta1132/netcard-go/wire"
)

func main() {
	configPath := flag.String("config", "", "TOML file with card settings")
	noise := flag.Float64("noise", 0, "standard deviation of Gaussian line noise in volts")
	seed := flag.Uint64("seed", 1, "noise seed")
	message := flag.String("message", "HELLO", "message sent when no arguments are given")
	flag.Parse()

	logging.ConfigureRuntime()
	logger := logging.New("demo")

	cfg := netcard.DefaultConfig()
	if *configPath != "" {
		loaded, err := netcard.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
		cfg = loaded
		logger.Info().Str("path", *configPath).Msg("loaded config")
	}

	var lineOpts []wire.Option
	if *noise > 0 {
		lineOpts = append(lineOpts, wire.WithNoise(*noise, *seed))
	}
	line := wire.NewTwistedPair(lineOpts...)

	sender := netcard.AttachToLine(1, line, netcard.WithConfig(cfg))
	receiver := netcard.AttachToLine(2, line, netcard.WithConfig(cfg))
	for _, card := range []*netcard.NetworkCard{sender, receiver} {
		if err := card.Open(); err != nil {
			logger.Fatal().Err(err).Str("card", card.Name()).Msg("failed to open card")
		}
	}
	defer receiver.Close()
	defer sender.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messages := flag.Args()
	if len(messages) == 0 {
		messages = []string{*message}
	}

	// a failed delivery means fewer frames will arrive than were sent
	receiveCtx, cancelReceive := context.WithCancel(ctx)
	defer cancelReceive()
	go func() {
		failed := false
		for _, text := range messages {
			if err := sender.SendAndWait(ctx, netcard.NewTextFrame(receiver.ID(), text)); err != nil {
				logger.Error().Err(err).Str("message", text).Msg("delivery failed")
				failed = true
			}
		}
		if failed {
			cancelReceive()
		}
	}()

	for range messages {
		frame, err := receiver.Receive(receiveCtx)
		if err != nil {
			logger.Error().Err(err).Msg("receive stopped")
			break
		}
		fmt.Printf("%s received from %d: %s\n", receiver.Name(), frame.Source, frame)
	}

	stats := sender.Stats()
	logger.Info().
		Uint64("transmissions", stats.Transmissions).
		Uint64("retransmissions", stats.Retransmissions).
		Uint64("failures", stats.Failures).
		Msg("done")
}
