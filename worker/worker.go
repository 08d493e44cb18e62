package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/fornellas/slogxt/log"
)

type worker struct {
	name  string
	fn    func(context.Context) error
	errCh chan error
}

// Manager runs a group of named workers sharing a context. When any worker returns, the context
// is cancelled, so all other workers are asked to return as well.
type Manager struct {
	mu         sync.Mutex
	workers    []*worker
	cancelFunc context.CancelFunc
}

func NewManager() *Manager {
	return &Manager{}
}

// Add registers a worker, to be started by Start.
func (m *Manager) Add(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = append(m.workers, &worker{name: name, fn: fn})
}

// Start starts all workers. Worker panics are recovered and returned as errors.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, logger := log.MustWithGroup(ctx, "Workers")
	ctx, m.cancelFunc = context.WithCancel(ctx)
	cancelFunc := m.cancelFunc

	for _, w := range m.workers {
		workerCtx, workerLogger := log.MustWithGroup(ctx, w.name)
		w.errCh = make(chan error, 1)
		go func() {
			var err error
			defer func() {
				if r := recover(); r != nil {
					workerLogger.Error("Panic", "recovered", r, "stack", string(debug.Stack()))
					err = fmt.Errorf("worker: %s: panic: %v", w.name, r)
				}
				workerLogger.Debug("Finished", "err", err)
				cancelFunc()
				w.errCh <- err
			}()
			workerLogger.Debug("Starting")
			err = w.fn(workerCtx)
		}()
	}
	logger.Debug("All workers started", "count", len(m.workers))
}

// Cancel asks all workers to return.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
}

// Wait blocks until all workers have returned. Errors are joined, prefixed by the worker name.
// Context cancellation is not reported as an error.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	workers := m.workers
	m.workers = nil
	m.mu.Unlock()

	logger := log.MustLogger(ctx)
	logger.Debug("Waiting for workers")
	var err error
	for _, w := range workers {
		if w.errCh == nil {
			continue
		}
		if workerErr := <-w.errCh; workerErr != nil && !errors.Is(workerErr, context.Canceled) {
			err = errors.Join(err, fmt.Errorf("%s: %w", w.name, workerErr))
		}
	}
	logger.Debug("All workers finished", "err", err)
	return err
}
