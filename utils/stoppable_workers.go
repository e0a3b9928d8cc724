package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// StoppableWorkers runs background goroutines that exit when their
// context is cancelled and can be stopped and awaited as a group.
type StoppableWorkers struct {
	mu        sync.Mutex
	cancelCtx context.Context
	cancel    func()
	workers   sync.WaitGroup
}

// NewStoppableWorkers starts the given functions in goroutines. Panics
// inside workers are captured and logged rather than crashing the
// process mid-pipeline.
func NewStoppableWorkers(funcs ...func(ctx context.Context)) *StoppableWorkers {
	cancelCtx, cancel := context.WithCancel(context.Background())
	sw := &StoppableWorkers{cancelCtx: cancelCtx, cancel: cancel}
	sw.Add(funcs...)
	return sw
}

// Add starts more workers. After Stop it is a no-op.
func (sw *StoppableWorkers) Add(funcs ...func(ctx context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.cancelCtx.Err() != nil {
		return
	}
	sw.workers.Add(len(funcs))
	for _, f := range funcs {
		f := f
		goutils.PanicCapturingGo(func() {
			defer sw.workers.Done()
			f(sw.cancelCtx)
		})
	}
}

// Context returns the context workers should observe.
func (sw *StoppableWorkers) Context() context.Context {
	return sw.cancelCtx
}

// Stop cancels all workers and waits for them to exit.
func (sw *StoppableWorkers) Stop() {
	sw.mu.Lock()
	sw.cancel()
	sw.mu.Unlock()
	sw.workers.Wait()
}
