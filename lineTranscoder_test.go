package netcard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TranscoderTestSuite struct {
	suite.Suite
	line        *testLine
	alpha, beta *Transcoder
}

func (suite *TranscoderTestSuite) SetupTest() {
	suite.line = newTestLine()
	suite.alpha = NewTranscoder(suite.line, "alpha", lineConfig(), quietLogger)
	suite.beta = NewTranscoder(suite.line, "beta", lineConfig(), quietLogger)
}

func (suite *TranscoderTestSuite) receiveFrame(ctx context.Context) <-chan []byte {
	result := make(chan []byte, 1)
	go func() {
		body, err := suite.beta.ReadFrame(ctx)
		if err != nil {
			close(result)
			return
		}
		result <- body
	}()
	return result
}

func (suite *TranscoderTestSuite) TestByteRoundTrip() {
	ctx, cancel := testContext(5 * time.Second)
	defer cancel()

	for _, value := range []byte{0x00, 0xFF, 0xA5, Sentinel} {
		received := make(chan byte, 1)
		go func() {
			b, err := suite.beta.ReceiveByte(ctx)
			if err == nil {
				received <- b
			}
		}()
		suite.Require().NoError(suite.alpha.TransmitByte(ctx, value))
		select {
		case b := <-received:
			suite.Equal(value, b)
		case <-ctx.Done():
			suite.FailNow("byte not received")
		}
		suite.line.SetLevel("alpha", Neutral)
	}
}

func (suite *TranscoderTestSuite) TestFrameWithReservedBytes() {
	ctx, cancel := testContext(10 * time.Second)
	defer cancel()

	body := []byte{1, 2, 1, Sentinel, Escape, 'h', Sentinel, 'i'}
	result := suite.receiveFrame(ctx)
	suite.Require().NoError(suite.alpha.WriteFrame(ctx, body))

	received, ok := <-result
	suite.Require().True(ok)
	suite.Equal(body, received)
	suite.Equal(Neutral, suite.line.GetLevel("beta"))
}

func (suite *TranscoderTestSuite) TestOverflowIsDrainedToSentinel() {
	ctx, cancel := testContext(20 * time.Second)
	defer cancel()

	limit := lineConfig().reassemblyLimit()
	oversized := make([]byte, limit+2)
	for i := range oversized {
		oversized[i] = byte('a' + i%26)
	}

	errs := make(chan error, 1)
	go func() {
		_, err := suite.beta.ReadFrame(ctx)
		errs <- err
	}()
	suite.Require().NoError(suite.alpha.WriteFrame(ctx, oversized))
	suite.ErrorIs(<-errs, ErrFrameOverflow)

	// the next frame starts cleanly after the drained one
	result := suite.receiveFrame(ctx)
	suite.Require().NoError(suite.alpha.WriteFrame(ctx, []byte("next frame")))
	received, ok := <-result
	suite.Require().True(ok)
	suite.Equal("next frame", string(received))
}

func (suite *TranscoderTestSuite) TestShortLowDwellIsIgnored() {
	ctx, cancel := testContext(2 * time.Second)
	defer cancel()

	cfg := lineConfig()
	go func() {
		suite.line.SetLevel("alpha", cfg.LowVoltage)
		time.Sleep(cfg.PulseWidth)
		suite.line.SetLevel("alpha", cfg.HighVoltage)
		time.Sleep(5 * cfg.PulseWidth)
		suite.line.SetLevel("alpha", Neutral)
	}()

	started, _, err := suite.beta.awaitByteStart(ctx)
	suite.Require().NoError(err)
	suite.False(started)
}

func (suite *TranscoderTestSuite) TestCancelledReadReturnsPromptly() {
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := suite.beta.ReadFrame(ctx)
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		suite.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		suite.Fail("read did not observe cancellation")
	}
}

func (suite *TranscoderTestSuite) TestCancelledWriteLeavesLineNeutral() {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := suite.alpha.WriteFrame(ctx, []byte("a long frame that will not finish"))
	suite.ErrorIs(err, context.DeadlineExceeded)
	suite.Equal(Neutral, suite.line.GetLevel("beta"))
}

func TestTranscoder(t *testing.T) {
	suite.Run(t, new(TranscoderTestSuite))
}
