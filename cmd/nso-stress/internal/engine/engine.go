// Package engine is the concurrency core of nso-stress. It drives a
// Requester with a sliding window of in-flight requests or with fixed
// batches, paces the request rate, and hands every outcome to the
// collector hooks.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/util"
)

// Class is the outcome classification of a request.
type Class string

const (
	ClassOK        Class = "ok"
	ClassWrong     Class = "nok"
	ClassException Class = "exception"
)

// Result is the outcome of one request.
type Result struct {
	ID      int64         `json:"id"`
	Class   Class         `json:"class"`
	Status  int           `json:"status"`
	Body    string        `json:"body,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Requester issues one request against the system under test. Do must be
// safe for concurrent use and should report failures through the result
// class instead of panicking.
type Requester interface {
	Do(ctx context.Context) Result
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context) Result

func (f RequesterFunc) Do(ctx context.Context) Result { return f(ctx) }

// Options shape one run.
type Options struct {
	// Window is the number of requests kept in flight.
	Window uint
	// Stop ends the run after this many requests. 0 means the run is
	// bounded by Duration instead.
	Stop uint
	// Rate paces request starts to this many per second. 0 means unpaced.
	Rate float64
	// Duration bounds the run when Stop is 0.
	Duration time.Duration
	// BatchInterval selects the batch executor when positive.
	BatchInterval time.Duration

	// OnResult observes every result as it completes.
	OnResult func(Result)
	// OnBatch runs before each window-sized batch of request starts, so
	// batch-level scenario parameters can advance.
	OnBatch func()
	// Collect retains the results in the returned Run. Disable for
	// unbounded soak runs to keep memory flat.
	Collect bool

	Logger *logrus.Entry
	// Panics counts recovered worker panics when set.
	Panics prometheus.Counter
}

// Run is what a finished execution produced.
type Run struct {
	Elapsed time.Duration
	Started uint
	Results []Result
}

func (o Options) window(stop uint) uint {
	w := o.Window
	if w == 0 {
		w = 1
	}
	if stop > 0 && w > stop {
		w = stop
	}
	return w
}

// group configures the recoverable panic group the workers run under: a
// panicking requester is logged and counted, never fatal to the run.
func (o Options) group() interface{ Go(func()) } {
	return util.RecoverablePanicGroup.Log(o.Logger).Counter(o.Panics)
}

// Execute runs the requester with the executor the options select.
func Execute(ctx context.Context, requester Requester, opts Options) Run {
	if opts.BatchInterval > 0 {
		return Batches(ctx, requester, opts)
	}
	return SlidingWindow(ctx, requester, opts)
}

// SlidingWindow keeps Options.Window requests in flight and starts a new
// request as soon as one completes, until the stop count or the duration
// is reached or the context is canceled. In-flight requests are waited
// for before returning, so every started request is accounted for.
func SlidingWindow(ctx context.Context, requester Requester, opts Options) Run {
	stop := opts.Stop
	window := opts.window(stop)

	runCtx := ctx
	if stop == 0 && opts.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	var pace *time.Ticker
	if opts.Rate > 0 {
		pace = time.NewTicker(time.Duration(float64(time.Second) / opts.Rate))
		defer pace.Stop()
	}

	pg := opts.group()
	sem := make(chan struct{}, window)
	resultCh := make(chan Result)
	collectDone := make(chan struct{})

	run := Run{}
	go func() {
		defer close(collectDone)
		for r := range resultCh {
			if opts.OnResult != nil {
				opts.OnResult(r)
			}
			if opts.Collect {
				run.Results = append(run.Results, r)
			}
		}
	}()

	var wg sync.WaitGroup
	start := time.Now()
	started := uint(0)
launch:
	for stop == 0 || started < stop {
		if started%window == 0 && opts.OnBatch != nil {
			opts.OnBatch()
		}
		if pace != nil {
			select {
			case <-pace.C:
			case <-runCtx.Done():
				break launch
			}
		}
		select {
		case sem <- struct{}{}:
		case <-runCtx.Done():
			break launch
		}
		wg.Add(1)
		pg.Go(func() {
			defer wg.Done()
			defer func() { <-sem }()
			resultCh <- requester.Do(runCtx)
		})
		started++
	}

	wg.Wait()
	close(resultCh)
	<-collectDone

	run.Elapsed = time.Since(start)
	run.Started = started
	return run
}
