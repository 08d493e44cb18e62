package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	return log.WithLogger(t.Context(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func waitDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestManagerReturnCancelsAll(t *testing.T) {
	ctx := testContext(t)
	m := NewManager()
	m.Add("waits", waitDone)
	m.Add("returns", func(context.Context) error { return nil })
	m.Start(ctx)
	require.NoError(t, m.Wait(ctx))
}

func TestManagerErrors(t *testing.T) {
	ctx := testContext(t)
	fooErr := errors.New("foo")
	m := NewManager()
	m.Add("waits", waitDone)
	m.Add("fails", func(context.Context) error { return fooErr })
	m.Start(ctx)
	err := m.Wait(ctx)
	require.ErrorIs(t, err, fooErr)
	require.ErrorContains(t, err, "fails: foo")
	require.NotContains(t, err.Error(), "waits")
}

func TestManagerPanic(t *testing.T) {
	ctx := testContext(t)
	m := NewManager()
	m.Add("waits", waitDone)
	m.Add("panics", func(context.Context) error { panic("boom") })
	m.Start(ctx)
	require.ErrorContains(t, m.Wait(ctx), "panic: boom")
}

func TestManagerCancel(t *testing.T) {
	ctx := testContext(t)
	m := NewManager()
	m.Add("a", waitDone)
	m.Add("b", waitDone)
	m.Start(ctx)
	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Cancel()
	}()
	require.NoError(t, m.Wait(ctx))
}
