package grbl

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cn5x/grbldecode/broker"
)

// countingSource is a broker that counts unsubscriptions per name.
type countingSource struct {
	*broker.Broker[string]
	mu           sync.Mutex
	unsubscribed map[string]int
}

func newCountingSource() *countingSource {
	return &countingSource{
		Broker:       broker.NewBroker[string](),
		unsubscribed: map[string]int{},
	}
}

func (s *countingSource) Unsubscribe(name string) {
	s.mu.Lock()
	s.unsubscribed[name]++
	s.mu.Unlock()
	s.Broker.Unsubscribe(name)
}

func (s *countingSource) requireUnsubscribedOnce(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.unsubscribed, 1)
	for name, count := range s.unsubscribed {
		require.Equal(t, 1, count, name)
	}
	require.Zero(t, s.Subscribers())
}

type testSignals struct {
	ok, error, alarm, probe *countingSource
}

func newTestSignals() *testSignals {
	return &testSignals{
		ok:    newCountingSource(),
		error: newCountingSource(),
		alarm: newCountingSource(),
		probe: newCountingSource(),
	}
}

func (s *testSignals) Signals() Signals {
	return Signals{OK: s.ok, Error: s.error, Alarm: s.alarm, Probe: s.probe}
}

func (s *testSignals) close() {
	s.ok.Close()
	s.error.Close()
	s.alarm.Close()
	s.probe.Close()
}

func TestReplyWaiterAwaitTerminalReply(t *testing.T) {
	ctx := testContext(t)

	for _, tc := range []struct {
		name    string
		publish func(t *testing.T, s *testSignals)
		reply   TerminalReply
	}{
		{
			name:    "ok",
			publish: func(t *testing.T, s *testSignals) { require.NoError(t, s.ok.Publish("ok")) },
			reply:   TerminalReply{Outcome: OutcomeOK, Line: "ok"},
		},
		{
			name:    "error",
			publish: func(t *testing.T, s *testSignals) { require.NoError(t, s.error.Publish("error:9")) },
			reply:   TerminalReply{Outcome: OutcomeError, Line: "error:9"},
		},
		{
			name:    "alarm",
			publish: func(t *testing.T, s *testSignals) { require.NoError(t, s.alarm.Publish("ALARM:1")) },
			reply:   TerminalReply{Outcome: OutcomeAlarm, Line: "ALARM:1"},
		},
		{
			name: "alarm wins over error and ok",
			publish: func(t *testing.T, s *testSignals) {
				require.NoError(t, s.ok.Publish("ok"))
				require.NoError(t, s.error.Publish("error:9"))
				require.NoError(t, s.alarm.Publish("ALARM:1"))
			},
			reply: TerminalReply{Outcome: OutcomeAlarm, Line: "ALARM:1"},
		},
		{
			name: "error wins over ok",
			publish: func(t *testing.T, s *testSignals) {
				require.NoError(t, s.ok.Publish("ok"))
				require.NoError(t, s.error.Publish("error:20"))
			},
			reply: TerminalReply{Outcome: OutcomeError, Line: "error:20"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			signals := newTestSignals()
			waiter := NewReplyWaiter(signals.Signals())

			reply, err := waiter.AwaitTerminalReply(ctx, func() error {
				tc.publish(t, signals)
				return nil
			})
			require.NoError(t, err)
			require.Equal(t, tc.reply, reply)

			signals.ok.requireUnsubscribedOnce(t)
			signals.error.requireUnsubscribedOnce(t)
			signals.alarm.requireUnsubscribedOnce(t)
		})
	}

	t.Run("from another goroutine", func(t *testing.T) {
		signals := newTestSignals()
		waiter := NewReplyWaiter(signals.Signals())

		done := make(chan struct{})
		reply, err := waiter.AwaitTerminalReply(ctx, func() error {
			go func() {
				defer close(done)
				_ = signals.ok.Publish("ok")
			}()
			return nil
		})
		<-done
		require.NoError(t, err)
		require.Equal(t, OutcomeOK, reply.Outcome)
	})

	t.Run("disconnected", func(t *testing.T) {
		signals := newTestSignals()
		waiter := NewReplyWaiter(signals.Signals())

		reply, err := waiter.AwaitTerminalReply(ctx, func() error {
			signals.close()
			return nil
		})
		require.ErrorIs(t, err, ErrDisconnected)
		require.Equal(t, OutcomeDisconnected, reply.Outcome)
	})

	t.Run("delivered before disconnection", func(t *testing.T) {
		for _, tc := range []struct {
			name    string
			publish func(s *testSignals) error
			reply   TerminalReply
		}{
			{
				name:    "ok",
				publish: func(s *testSignals) error { return s.ok.Publish("ok") },
				reply:   TerminalReply{Outcome: OutcomeOK, Line: "ok"},
			},
			{
				name:    "error",
				publish: func(s *testSignals) error { return s.error.Publish("error:9") },
				reply:   TerminalReply{Outcome: OutcomeError, Line: "error:9"},
			},
		} {
			t.Run(tc.name, func(t *testing.T) {
				// Closed channels are always ready, so repeat to cover select ordering.
				for range 100 {
					signals := newTestSignals()
					waiter := NewReplyWaiter(signals.Signals())

					reply, err := waiter.AwaitTerminalReply(ctx, func() error {
						if err := tc.publish(signals); err != nil {
							return err
						}
						signals.close()
						return nil
					})
					require.NoError(t, err)
					require.Equal(t, tc.reply, reply)
				}
			})
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		signals := newTestSignals()
		waiter := NewReplyWaiter(signals.Signals())

		cancelCtx, cancel := context.WithCancel(ctx)
		_, err := waiter.AwaitTerminalReply(cancelCtx, func() error {
			cancel()
			return nil
		})
		require.ErrorIs(t, err, context.Canceled)
		signals.ok.requireUnsubscribedOnce(t)
		signals.error.requireUnsubscribedOnce(t)
		signals.alarm.requireUnsubscribedOnce(t)
	})

	t.Run("send failure", func(t *testing.T) {
		signals := newTestSignals()
		waiter := NewReplyWaiter(signals.Signals())

		sendErr := errors.New("port closed")
		_, err := waiter.AwaitTerminalReply(ctx, func() error { return sendErr })
		require.ErrorIs(t, err, sendErr)
		require.ErrorContains(t, err, "send failed")
		signals.ok.requireUnsubscribedOnce(t)
		signals.error.requireUnsubscribedOnce(t)
		signals.alarm.requireUnsubscribedOnce(t)
	})
}

func TestReplyWaiterAwaitProbeOutcome(t *testing.T) {
	ctx := testContext(t)

	t.Run("success", func(t *testing.T) {
		signals := newTestSignals()
		waiter := NewReplyWaiter(signals.Signals())

		outcome, err := waiter.AwaitProbeOutcome(ctx, func() error {
			return signals.probe.Publish("[PRB:1.000,2.000,-3.500:1]")
		})
		require.NoError(t, err)
		require.Equal(t, ProbeOutcome{
			Outcome:     OutcomeProbe,
			Line:        "[PRB:1.000,2.000,-3.500:1]",
			Success:     true,
			Coordinates: []float64{1, 2, -3.5},
		}, outcome)
		signals.probe.requireUnsubscribedOnce(t)
		signals.error.requireUnsubscribedOnce(t)
		signals.alarm.requireUnsubscribedOnce(t)
	})

	t.Run("no contact", func(t *testing.T) {
		signals := newTestSignals()
		waiter := NewReplyWaiter(signals.Signals())

		outcome, err := waiter.AwaitProbeOutcome(ctx, func() error {
			return signals.probe.Publish("[PRB:0.000,0.000,0.000,0.000:0]")
		})
		require.NoError(t, err)
		require.False(t, outcome.Success)
		require.Equal(t, []float64{0, 0, 0, 0}, outcome.Coordinates)
	})

	t.Run("error", func(t *testing.T) {
		signals := newTestSignals()
		waiter := NewReplyWaiter(signals.Signals())

		outcome, err := waiter.AwaitProbeOutcome(ctx, func() error {
			return signals.error.Publish("error:9")
		})
		require.NoError(t, err)
		require.Equal(t, ProbeOutcome{Outcome: OutcomeError, Line: "error:9", Coordinates: []float64{}}, outcome)
	})

	t.Run("alarm", func(t *testing.T) {
		signals := newTestSignals()
		waiter := NewReplyWaiter(signals.Signals())

		outcome, err := waiter.AwaitProbeOutcome(ctx, func() error {
			require.NoError(t, signals.probe.Publish("[PRB:0.000,0.000,0.000:0]"))
			return signals.alarm.Publish("ALARM:5")
		})
		require.NoError(t, err)
		require.Equal(t, OutcomeAlarm, outcome.Outcome)
		require.False(t, outcome.Success)
		require.Empty(t, outcome.Coordinates)
	})

	t.Run("malformed", func(t *testing.T) {
		signals := newTestSignals()
		waiter := NewReplyWaiter(signals.Signals())

		outcome, err := waiter.AwaitProbeOutcome(ctx, func() error {
			return signals.probe.Publish("[PRB:garbage]")
		})
		require.ErrorIs(t, err, ErrNumericParse)
		require.Equal(t, OutcomeProbe, outcome.Outcome)
		require.Empty(t, outcome.Coordinates)
	})

	t.Run("delivered before disconnection", func(t *testing.T) {
		for range 100 {
			signals := newTestSignals()
			waiter := NewReplyWaiter(signals.Signals())

			outcome, err := waiter.AwaitProbeOutcome(ctx, func() error {
				if err := signals.probe.Publish("[PRB:0.000,0.000,-2.000:1]"); err != nil {
					return err
				}
				signals.close()
				return nil
			})
			require.NoError(t, err)
			require.Equal(t, ProbeOutcome{
				Outcome:     OutcomeProbe,
				Line:        "[PRB:0.000,0.000,-2.000:1]",
				Success:     true,
				Coordinates: []float64{0, 0, -2},
			}, outcome)
		}
	})

	t.Run("disconnected", func(t *testing.T) {
		signals := newTestSignals()
		waiter := NewReplyWaiter(signals.Signals())

		outcome, err := waiter.AwaitProbeOutcome(ctx, func() error {
			signals.close()
			return nil
		})
		require.ErrorIs(t, err, ErrDisconnected)
		require.Equal(t, OutcomeDisconnected, outcome.Outcome)
		require.Empty(t, outcome.Coordinates)
	})
}

func TestOutcomeString(t *testing.T) {
	require.Equal(t, "alarm", OutcomeAlarm.String())
	require.Equal(t, "unknown (0)", Outcome(0).String())
}
