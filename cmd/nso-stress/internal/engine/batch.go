package engine

import (
	"context"
	"sync"
	"time"
)

// Batches issues fixed batches of Options.Window requests, one batch per
// Options.BatchInterval, and waits for each batch to complete before the
// results are handed on. Useful for probing how the server absorbs
// bursts rather than a steady window.
func Batches(ctx context.Context, requester Requester, opts Options) Run {
	stop := opts.Stop
	window := opts.window(stop)
	interval := opts.BatchInterval
	if interval <= 0 {
		interval = time.Second
	}

	runCtx := ctx
	if stop == 0 && opts.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	pg := opts.group()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := Run{}
	results := make(chan Result, window)
	start := time.Now()
	started := uint(0)
	for {
		if stop > 0 && started >= stop {
			break
		}
		if runCtx.Err() != nil {
			break
		}

		size := window
		if stop > 0 && stop-started < size {
			size = stop - started
		}
		if opts.OnBatch != nil {
			opts.OnBatch()
		}

		var wg sync.WaitGroup
		for i := uint(0); i < size; i++ {
			wg.Add(1)
			pg.Go(func() {
				defer wg.Done()
				results <- requester.Do(runCtx)
			})
		}
		started += size

		batchDone := make(chan struct{})
		go func() {
			wg.Wait()
			close(batchDone)
		}()
		collect := func(r Result) {
			if opts.OnResult != nil {
				opts.OnResult(r)
			}
			if opts.Collect {
				run.Results = append(run.Results, r)
			}
		}
		// a panicking requester produces no result, so completion is
		// tracked through the wait group rather than a result count
	drain:
		for {
			select {
			case r := <-results:
				collect(r)
			case <-batchDone:
				for {
					select {
					case r := <-results:
						collect(r)
					default:
						break drain
					}
				}
			}
		}

		if stop > 0 && started >= stop {
			break
		}
		select {
		case <-ticker.C:
		case <-runCtx.Done():
			run.Elapsed = time.Since(start)
			run.Started = started
			return run
		}
	}

	run.Elapsed = time.Since(start)
	run.Started = started
	return run
}
