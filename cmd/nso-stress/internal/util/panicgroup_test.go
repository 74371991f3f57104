package util

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrivialPanicGroup(t *testing.T) {
	ch := make(chan int)

	pg := panicGroup{}
	pg.Go(func() { ch <- 1 })

	<-ch
}

type logCounter struct {
	mu      sync.Mutex
	entries [logrus.TraceLevel + 1]int
}

func (lc *logCounter) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (lc *logCounter) Fire(e *logrus.Entry) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.entries[e.Level]++
	return nil
}

func (lc *logCounter) count(level logrus.Level) int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.entries[level]
}

func indirectPanic() {
	var p *int
	_ = *p
}

func TestRecoverableGoRoutinesLogAndCount(t *testing.T) {
	counter := &logCounter{}
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(counter)
	entry := logrus.NewEntry(logger)

	panics := prometheus.NewCounter(prometheus.CounterOpts{Name: "panics"})
	pg := RecoverablePanicGroup.Log(entry).Counter(panics)
	pg.logPanicsToStdErr = false

	pg.Go(indirectPanic)

	require.Eventually(t, func() bool {
		return counter.count(logrus.WarnLevel) >= 5
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(panics))
}

func TestNilLogAndCounterAreAccepted(t *testing.T) {
	done := make(chan struct{})
	pg := RecoverablePanicGroup.Log(nil).Counter(nil)
	pg.logPanicsToStdErr = false
	pg.Go(func() {
		defer close(done)
		panic("contained")
	})
	<-done

	// the panic must not take the process down; reaching this point
	// with the goroutine finished is the assertion
}
