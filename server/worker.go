package server

import (
	"crypto/sha256"
	"fmt"

	"github.com/chazu/treelox/session"
)

// maxCachedAnalyses bounds the analysis cache. When it fills up the cache
// is dropped wholesale; editors only ever revisit a handful of versions.
const maxCachedAnalyses = 256

// request is a unit of work to be executed on the worker goroutine.
type request struct {
	fn   func() any
	done chan result
}

// result holds the return value from a worker operation.
type result struct {
	value any
	err   error
}

// Worker serializes analysis and evaluation through a single goroutine.
// Sessions are single-threaded; every LSP handler must go through the
// worker to avoid data races.
type Worker struct {
	requests chan request
	quit     chan struct{}

	// cache is only touched on the worker goroutine.
	cache map[[sha256.Size]byte]*session.Analysis
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker() *Worker {
	w := &Worker{
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
		cache:    make(map[[sha256.Size]byte]*session.Analysis),
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

// execute runs a function, recovering from panics.
func (w *Worker) execute(fn func() any) result {
	var res result
	func() {
		defer func() {
			if r := recover(); r != nil {
				res.err = fmt.Errorf("%v", r)
			}
		}()
		res.value = fn()
	}()
	return res
}

// Do submits a function for execution on the worker goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *Worker) Do(fn func() any) (any, error) {
	req := request{
		fn:   fn,
		done: make(chan result, 1),
	}
	w.requests <- req
	res := <-req.done
	return res.value, res.err
}

// Analyze returns the analysis of text, reusing a cached one when the
// same text was analysed before.
func (w *Worker) Analyze(text string) (*session.Analysis, error) {
	v, err := w.Do(func() any {
		key := sha256.Sum256([]byte(text))
		if a, ok := w.cache[key]; ok {
			return a
		}
		a, err := session.Analyze(text)
		if err != nil {
			return err
		}
		if len(w.cache) >= maxCachedAnalyses {
			w.cache = make(map[[sha256.Size]byte]*session.Analysis)
		}
		w.cache[key] = a
		return a
	})
	if err != nil {
		return nil, err
	}
	if err, ok := v.(error); ok {
		return nil, err
	}
	return v.(*session.Analysis), nil
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	close(w.quit)
}
