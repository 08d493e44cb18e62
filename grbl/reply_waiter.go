package grbl

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// SignalSource delivers lines signaling a given kind of reply. broker.Broker[string] implements
// it. A closed channel means the source went away, such as on disconnection.
type SignalSource interface {
	Subscribe(name string, size int) <-chan string
	Unsubscribe(name string)
}

// Signals are the reply signal sources, published by the transport as lines are received.
type Signals struct {
	OK    SignalSource
	Error SignalSource
	Alarm SignalSource
	Probe SignalSource
}

// Outcome tells how a wait was resolved.
type Outcome int

const (
	OutcomeOK Outcome = iota + 1
	OutcomeError
	OutcomeAlarm
	OutcomeProbe
	OutcomeDisconnected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeError:
		return "error"
	case OutcomeAlarm:
		return "alarm"
	case OutcomeProbe:
		return "probe"
	case OutcomeDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("unknown (%d)", int(o))
	}
}

// TerminalReply is the reply terminating a command.
type TerminalReply struct {
	Outcome Outcome
	// The signaled line, such as "ok" or "error:9".
	Line string
}

// ProbeOutcome is the result of a probe cycle.
type ProbeOutcome struct {
	Outcome     Outcome
	Line        string
	Success     bool
	Coordinates []float64
}

// ReplyWaiter blocks callers until a given kind of reply is signaled. Only one wait of each kind
// may be outstanding at a time.
type ReplyWaiter struct {
	signals Signals
}

func NewReplyWaiter(signals Signals) *ReplyWaiter {
	return &ReplyWaiter{signals: signals}
}

var waitID atomic.Uint64

type subscription struct {
	source SignalSource
	name   string
	ch     <-chan string
}

func subscribe(kind string, source SignalSource) subscription {
	name := fmt.Sprintf("reply-waiter-%s-%d", kind, waitID.Add(1))
	return subscription{source: source, name: name, ch: source.Subscribe(name, 1)}
}

func (s subscription) unsubscribe() {
	s.source.Unsubscribe(s.name)
}

// await blocks until one of the channels is signaled. When several are ready, alarm wins over
// error, which wins over primary. A closed channel stops being waited on; only when all of them
// are closed the wait resolves as disconnected, so a reply delivered before the close is kept.
func await(
	ctx context.Context, primary Outcome, primaryCh, errorCh, alarmCh <-chan string,
) (Outcome, string, error) {
	for primaryCh != nil || errorCh != nil || alarmCh != nil {
		var outcome Outcome
		var line string
		var ok bool
		select {
		case line, ok = <-alarmCh:
			if !ok {
				alarmCh = nil
				continue
			}
			return OutcomeAlarm, line, nil
		case line, ok = <-errorCh:
			if !ok {
				errorCh = nil
				continue
			}
			outcome = OutcomeError
		case line, ok = <-primaryCh:
			if !ok {
				primaryCh = nil
				continue
			}
			outcome = primary
		case <-ctx.Done():
			return 0, "", fmt.Errorf("grbl: reply waiter: %w", context.Cause(ctx))
		}

		select {
		case alarmLine, ok := <-alarmCh:
			if ok {
				return OutcomeAlarm, alarmLine, nil
			}
		default:
		}
		if outcome == primary {
			select {
			case errorLine, ok := <-errorCh:
				if ok {
					return OutcomeError, errorLine, nil
				}
			default:
			}
		}
		return outcome, line, nil
	}
	return OutcomeDisconnected, "", fmt.Errorf("grbl: reply waiter: %w", ErrDisconnected)
}

// AwaitTerminalReply subscribes to ok, error and alarm signals, calls send (which may be nil) and
// blocks until one of them is signaled. All subscriptions are removed before returning. If the
// transport disconnects, it returns OutcomeDisconnected with an error wrapping ErrDisconnected.
func (w *ReplyWaiter) AwaitTerminalReply(ctx context.Context, send func() error) (TerminalReply, error) {
	okSub := subscribe("ok", w.signals.OK)
	defer okSub.unsubscribe()
	errorSub := subscribe("error", w.signals.Error)
	defer errorSub.unsubscribe()
	alarmSub := subscribe("alarm", w.signals.Alarm)
	defer alarmSub.unsubscribe()

	if send != nil {
		if err := send(); err != nil {
			return TerminalReply{}, fmt.Errorf("grbl: reply waiter: send failed: %w", err)
		}
	}

	outcome, line, err := await(ctx, OutcomeOK, okSub.ch, errorSub.ch, alarmSub.ch)
	if err != nil && outcome == 0 {
		return TerminalReply{}, err
	}
	return TerminalReply{Outcome: outcome, Line: line}, err
}

// AwaitProbeOutcome subscribes to probe, error and alarm signals, calls send (which may be nil) and
// blocks until one of them is signaled. On a probe signal, the probe line is parsed for the
// success flag and coordinates.
func (w *ReplyWaiter) AwaitProbeOutcome(ctx context.Context, send func() error) (ProbeOutcome, error) {
	probeSub := subscribe("probe", w.signals.Probe)
	defer probeSub.unsubscribe()
	errorSub := subscribe("error", w.signals.Error)
	defer errorSub.unsubscribe()
	alarmSub := subscribe("alarm", w.signals.Alarm)
	defer alarmSub.unsubscribe()

	if send != nil {
		if err := send(); err != nil {
			return ProbeOutcome{}, fmt.Errorf("grbl: reply waiter: send failed: %w", err)
		}
	}

	outcome, line, err := await(ctx, OutcomeProbe, probeSub.ch, errorSub.ch, alarmSub.ch)
	if err != nil {
		if outcome == 0 {
			return ProbeOutcome{}, err
		}
		return ProbeOutcome{Outcome: outcome, Coordinates: []float64{}}, err
	}
	if outcome != OutcomeProbe {
		return ProbeOutcome{Outcome: outcome, Line: line, Coordinates: []float64{}}, nil
	}

	result, err := parseProbeSignal(line)
	if err != nil {
		return ProbeOutcome{Outcome: outcome, Line: line, Coordinates: []float64{}},
			fmt.Errorf("grbl: reply waiter: %w", err)
	}
	return ProbeOutcome{
		Outcome:     outcome,
		Line:        line,
		Success:     result.Success,
		Coordinates: result.Coordinates[:result.Axes],
	}, nil
}

// parseProbeSignal parses a probe line such as [PRB:1.000,2.000,3.000:1].
func parseProbeSignal(line string) (ProbeResult, error) {
	s := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
	_, payload, ok := strings.Cut(s, ":")
	if !ok {
		return ProbeResult{}, fmt.Errorf("%w: probe signal: %#v", ErrNumericParse, line)
	}
	return NewProbeResult(payload)
}
