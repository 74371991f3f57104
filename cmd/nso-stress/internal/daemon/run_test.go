package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/config"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/nsotest"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/param"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/scenario"
)

func startDaemon(t *testing.T, mutate func(*config.Config)) (*Daemon, *config.Config) {
	t.Helper()
	logger := logrus.NewEntry(logrus.New())
	srv, ts := nsotest.StartTest("admin", "admin", logger)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	cfg := &config.Config{
		Host:      strings.TrimPrefix(ts.URL, "http://"),
		Username:  "admin",
		Password:  "admin",
		Timeout:   5 * time.Second,
		Quiet:     true,
		HistoryDB: filepath.Join(t.TempDir(), "history.sqlite"),
		LogLevel:  logrus.WarnLevel,
	}
	if mutate != nil {
		mutate(cfg)
	}
	d := MustNew(cfg)
	t.Cleanup(func() { d.Close() })
	return d, cfg
}

func TestRunTasksRESTCONF(t *testing.T) {
	d, cfg := startDaemon(t, func(cfg *config.Config) {
		cfg.Concurrency = 5
		cfg.Requests = 20
		cfg.Output = filepath.Join(t.TempDir(), "out.json")
	})

	tasks := scenario.Expand("set", "/stress/item=<<id>>", `{"n": <<id>>}`, "")
	params := param.NewSet()
	params.Put("id", param.NewSequenceRequest(1))

	err := d.RunTasks(context.Background(), "restconf", "set test", tasks, params)
	require.NoError(t, err)

	// every request landed in the shared store
	out, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"count": 20`)

	runs, err := d.History().Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "set test", runs[0].Label)
	assert.Equal(t, 20, runs[0].OK)
}

func TestRunTasksReportsFailures(t *testing.T) {
	d, _ := startDaemon(t, func(cfg *config.Config) {
		cfg.Concurrency = 2
		cfg.Requests = 4
	})

	// reading a path that does not exist misses the expected status
	tasks := scenario.Expand("read", "/missing/path", "", "")
	err := d.RunTasks(context.Background(), "restconf", "read missing", tasks, param.NewSet())
	require.ErrorContains(t, err, "failed requests")
}

func TestRunTasksJSONRPC(t *testing.T) {
	d, _ := startDaemon(t, func(cfg *config.Config) {
		cfg.Concurrency = 2
		cfg.Requests = 10
	})

	tasks := []scenario.Task{{Op: "load", Resource: "/stress/item{<<id>>}", Data: `{"n": 1}`}}
	params := param.NewSet()
	params.Put("id", param.NewSequenceRequest(1))

	err := d.RunTasks(context.Background(), "jsonrpc", "load test", tasks, params)
	require.NoError(t, err)
}

func TestRunTasksRamp(t *testing.T) {
	d, _ := startDaemon(t, func(cfg *config.Config) {
		cfg.Concurrency = 5
		cfg.Requests = 10
		cfg.Ramp = true
		cfg.HTMLReport = filepath.Join(t.TempDir(), "report.html")
	})

	tasks := scenario.Expand("set", "/ramp/item=<<id>>", `{}`, "")
	params := param.NewSet()
	params.Put("id", param.NewSequenceRequest(1))

	require.NoError(t, d.RunTasks(context.Background(), "restconf", "ramp", tasks, params))

	// one history row per window in the 1,2,5 series
	runs, err := d.History().Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	html, err := os.ReadFile(d.cfg.HTMLReport)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Throughput by window size")
}

func TestUnknownProtocol(t *testing.T) {
	d, _ := startDaemon(t, nil)
	tasks := scenario.Expand("read", "/x", "", "")
	err := d.RunTasks(context.Background(), "telnet", "bad", tasks, param.NewSet())
	require.ErrorContains(t, err, "unknown protocol")
}

func TestCommitFlagsAppendedToRESTCONFQuery(t *testing.T) {
	d, _ := startDaemon(t, func(cfg *config.Config) {
		cfg.NoNetworking = true
		cfg.CommitQueue = true
	})

	tasks := []scenario.Task{
		{Op: "create", Resource: "/stress/item", Data: `{}`},
		{Op: "read", Resource: "/stress/item=1", Query: "depth=3"},
	}
	req, cleanup, err := d.buildRequester(context.Background(), "restconf", tasks, param.NewSet())
	require.NoError(t, err)
	defer cleanup()

	rc := req.(*restconfRequester)
	assert.Equal(t, "no-networking=true&commit-queue=sync", rc.tasks[0].query)
	assert.Equal(t, "depth=3&no-networking=true&commit-queue=sync", rc.tasks[1].query)
}
