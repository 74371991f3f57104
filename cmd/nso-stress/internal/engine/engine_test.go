package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okRequester(inFlight *atomic.Int64, peak *atomic.Int64) Requester {
	var id atomic.Int64
	return RequesterFunc(func(ctx context.Context) Result {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return Result{ID: id.Add(1), Class: ClassOK, Status: 200}
	})
}

func TestSlidingWindowRunsStopRequests(t *testing.T) {
	var inFlight, peak atomic.Int64
	run := SlidingWindow(context.Background(), okRequester(&inFlight, &peak), Options{
		Window:  4,
		Stop:    50,
		Collect: true,
	})

	assert.Equal(t, uint(50), run.Started)
	assert.Len(t, run.Results, 50)
	assert.LessOrEqual(t, peak.Load(), int64(4))
}

func TestSlidingWindowClampsWindowToStop(t *testing.T) {
	var inFlight, peak atomic.Int64
	run := SlidingWindow(context.Background(), okRequester(&inFlight, &peak), Options{
		Window:  100,
		Stop:    3,
		Collect: true,
	})
	assert.Equal(t, uint(3), run.Started)
}

func TestSlidingWindowDurationBound(t *testing.T) {
	var inFlight, peak atomic.Int64
	start := time.Now()
	run := SlidingWindow(context.Background(), okRequester(&inFlight, &peak), Options{
		Window:   2,
		Duration: 50 * time.Millisecond,
	})
	assert.Greater(t, run.Started, uint(0))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSlidingWindowOnResultSeesEveryResult(t *testing.T) {
	var inFlight, peak atomic.Int64
	var mu sync.Mutex
	ids := map[int64]bool{}
	SlidingWindow(context.Background(), okRequester(&inFlight, &peak), Options{
		Window: 3,
		Stop:   20,
		OnResult: func(r Result) {
			mu.Lock()
			defer mu.Unlock()
			require.False(t, ids[r.ID], "result %d delivered twice", r.ID)
			ids[r.ID] = true
		},
	})
	assert.Len(t, ids, 20)
}

func TestSlidingWindowOnBatchPerWindow(t *testing.T) {
	var inFlight, peak atomic.Int64
	batches := 0
	SlidingWindow(context.Background(), okRequester(&inFlight, &peak), Options{
		Window:  5,
		Stop:    20,
		OnBatch: func() { batches++ },
	})
	assert.Equal(t, 4, batches)
}

func TestSlidingWindowCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started atomic.Int64
	requester := RequesterFunc(func(ctx context.Context) Result {
		if started.Add(1) == 5 {
			cancel()
		}
		return Result{Class: ClassOK}
	})
	run := SlidingWindow(ctx, requester, Options{Window: 1})
	assert.GreaterOrEqual(t, run.Started, uint(5))
}

func TestSlidingWindowSurvivesPanickingRequester(t *testing.T) {
	var calls atomic.Int64
	requester := RequesterFunc(func(ctx context.Context) Result {
		if calls.Add(1) == 3 {
			panic("requester blew up")
		}
		return Result{Class: ClassOK}
	})
	run := SlidingWindow(context.Background(), requester, Options{
		Window:  1,
		Stop:    10,
		Collect: true,
	})
	assert.Equal(t, uint(10), run.Started)
	assert.Len(t, run.Results, 9)
}

func TestBatchesIssuesFixedBursts(t *testing.T) {
	var inFlight, peak atomic.Int64
	batches := 0
	run := Batches(context.Background(), okRequester(&inFlight, &peak), Options{
		Window:        4,
		Stop:          10,
		BatchInterval: time.Millisecond,
		OnBatch:       func() { batches++ },
		Collect:       true,
	})
	assert.Equal(t, uint(10), run.Started)
	assert.Len(t, run.Results, 10)
	// 4 + 4 + a final partial batch of 2
	assert.Equal(t, 3, batches)
}

func TestExecuteSelectsExecutor(t *testing.T) {
	var inFlight, peak atomic.Int64
	run := Execute(context.Background(), okRequester(&inFlight, &peak), Options{
		Window: 2,
		Stop:   4,
	})
	assert.Equal(t, uint(4), run.Started)
}

func TestWindowSeries(t *testing.T) {
	assert.Nil(t, WindowSeries(0))
	assert.Equal(t, []uint{1}, WindowSeries(1))
	assert.Equal(t, []uint{1, 2, 5, 10}, WindowSeries(10))
	assert.Equal(t, []uint{1, 2, 5, 10, 20, 50, 64}, WindowSeries(64))
	assert.Equal(t, []uint{1, 2, 5, 10, 20, 50, 100}, WindowSeries(100))
}
