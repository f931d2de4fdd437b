package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nimaipatel/rlox-bytecode/vm"
)

// ErrWorkerStopped is returned by Do once Stop has been called.
var ErrWorkerStopped = errors.New("worker stopped")

// request represents a unit of work to be executed on the worker goroutine.
type request struct {
	fn   func() interface{}
	done chan result
}

// result holds the return value from a worker operation.
type result struct {
	value interface{}
	err   error
}

// Worker serializes all session access through a single goroutine. The
// compiler and VM are single-threaded; every LSP handler goes through the
// worker to avoid data races.
type Worker struct {
	requests chan request
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker() *Worker {
	w := &Worker{
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics. Internal VM errors keep their
// type so callers can report them distinctly.
func (w *Worker) execute(fn func() interface{}) result {
	var res result
	func() {
		defer func() {
			if r := recover(); r != nil {
				if ie, ok := vm.AsInternalError(r); ok {
					log.Errorf("internal error: %s", ie)
					res.err = ie
					return
				}
				res.err = fmt.Errorf("%v", r)
			}
		}()
		res.value = fn()
	}()
	return res
}

// Do submits fn for execution on the worker goroutine and blocks until it
// completes. Returns the result and any error (including panics), or
// ErrWorkerStopped when the worker stops before running fn.
func (w *Worker) Do(fn func() interface{}) (interface{}, error) {
	req := request{
		fn:   fn,
		done: make(chan result, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// Stop shuts down the worker goroutine. Calling it again has no effect.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
