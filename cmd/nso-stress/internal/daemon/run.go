package daemon

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/client/jsonrpc"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/client/restconf"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/config"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/engine"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/metrics"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/param"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/report"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/scenario"
)

// RunScenario executes a loaded scenario: resolve its tasks and
// parameters, apply the scenario defaults the command line left
// untouched, and run.
func (d *Daemon) RunScenario(ctx context.Context, s *scenario.Scenario) error {
	tasks, err := s.Tasks()
	if err != nil {
		return err
	}
	params, err := s.ParamSet()
	if err != nil {
		return err
	}
	cfg := d.cfg
	if !cfg.Explicit("window") && s.Defaults.Window > 0 {
		cfg.Concurrency = s.Defaults.Window
	}
	if !cfg.Explicit("requests") && s.Defaults.Requests > 0 {
		cfg.Requests = s.Defaults.Requests
	}
	if !cfg.Explicit("rate") && s.Defaults.Rate > 0 {
		cfg.Rate = float64(s.Defaults.Rate)
	}
	if !cfg.Explicit("duration") && s.Defaults.Duration != "" {
		dur, err := time.ParseDuration(s.Defaults.Duration)
		if err != nil {
			return errors.Wrapf(err, "scenario %s: invalid default duration", s.Name)
		}
		cfg.Duration = dur
	}
	protocol := s.Protocol
	if protocol == "" {
		protocol = "restconf"
	}
	return d.RunTasks(ctx, protocol, s.Name, tasks, params)
}

// RunTasks executes a task list against the configured host, either as
// a single run or as a ramp across window sizes.
func (d *Daemon) RunTasks(ctx context.Context, protocol, label string, tasks []scenario.Task, params *param.Set) error {
	cfg := d.cfg
	if err := params.ApplyOverrides(cfg.Params); err != nil {
		return err
	}
	if cfg.KeepState {
		if err := params.LoadState("."); err != nil {
			return err
		}
	}

	requester, cleanup, err := d.buildRequester(ctx, protocol, tasks, params)
	if err != nil {
		return err
	}
	defer cleanup()

	series := cfg.Series
	if cfg.Ramp && len(series) == 0 {
		series = engine.WindowSeries(cfg.Concurrency)
	}

	var summaries []metrics.Summary
	if len(series) > 0 {
		for _, window := range series {
			if ctx.Err() != nil {
				break
			}
			params.Reset()
			s := d.runOnce(ctx, requester, window, params)
			summaries = append(summaries, s)
			d.record(ctx, label, protocol, s)
		}
		if !cfg.Quiet {
			report.PrintRamp(os.Stdout, summaries)
		}
		if cfg.HTMLReport != "" {
			if err := report.WriteHTML(cfg.HTMLReport, cfg.Host, summaries); err != nil {
				return err
			}
			d.logger.Infof("wrote html report to %s", cfg.HTMLReport)
		}
	} else {
		s := d.runOnce(ctx, requester, cfg.Concurrency, params)
		summaries = append(summaries, s)
		d.record(ctx, label, protocol, s)
		if !cfg.Quiet {
			report.PrintSummary(os.Stdout, s)
		}
	}

	if cfg.KeepState {
		if err := params.SaveState("."); err != nil {
			return err
		}
	}
	if cfg.Output != "" {
		export := report.Export{
			Tool:      "nso-stress",
			Version:   config.Version,
			Host:      cfg.Host,
			Summaries: summaries,
		}
		if err := report.WriteJSON(cfg.Output, export); err != nil {
			return err
		}
	}
	for _, s := range summaries {
		if s.Failed() {
			return errors.New("run finished with failed requests")
		}
	}
	return nil
}

// runOnce drives the engine for a single window size and aggregates
// the outcome.
func (d *Daemon) runOnce(ctx context.Context, requester engine.Requester, window uint, params *param.Set) metrics.Summary {
	cfg := d.cfg
	started := time.Now()
	d.registry.BatchSize.Set(float64(window))

	var progress *report.Progress
	if !cfg.Quiet {
		progress = report.StartProgress(os.Stderr, int(cfg.Requests))
	}

	summary := metrics.Summary{Window: window, Started: started}
	opts := engine.Options{
		Window:        window,
		Stop:          cfg.Requests,
		Rate:          cfg.Rate,
		Duration:      cfg.Duration,
		BatchInterval: cfg.BatchInterval,
		OnResult: func(r engine.Result) {
			summary.Add(r)
			progress.Increment()
		},
		OnBatch: params.NextBatch,
		Logger:  d.logger.WithField("subsystem", "engine"),
		Panics:  d.registry.Panics,
	}
	run := engine.Execute(ctx, requester, opts)
	progress.Finish()

	summary.Elapsed = run.Elapsed
	summary.Finish()
	return summary
}

func (d *Daemon) buildRequester(ctx context.Context, protocol string, tasks []scenario.Task, params *param.Set) (engine.Requester, func(), error) {
	cfg := d.cfg
	logger := d.logger.WithField("host", cfg.Host)
	switch protocol {
	case "restconf":
		client := restconf.New(restconf.Options{
			Host:          cfg.Host,
			Username:      cfg.Username,
			Password:      cfg.Password,
			TLS:           cfg.TLS,
			NoCompression: cfg.NoCompression,
			Timeout:       cfg.Timeout,
			Retries:       cfg.Retries,
			DryRun:        cfg.DryRun,
			Echo:          cfg.Echo,
			Logger:        logger,
		})
		if cfg.WarmConns > 0 && !cfg.DryRun {
			client.Warm(ctx, cfg.WarmConns)
		}
		requester, err := newRESTCONFRequester(client, tasks, params, d.registry, d.restconfCommitQuery())
		return requester, func() {}, err
	case "jsonrpc":
		if cfg.DryRun {
			return nil, nil, errors.New("dry-run is only supported for restconf")
		}
		client := jsonrpc.New(jsonrpc.Options{
			Host:          cfg.Host,
			Username:      cfg.Username,
			Password:      cfg.Password,
			TLS:           cfg.TLS,
			NoCompression: cfg.NoCompression,
			Timeout:       cfg.Timeout,
			Echo:          cfg.Echo,
			Logger:        logger,
		})
		if err := client.Login(ctx); err != nil {
			client.Close()
			return nil, nil, errors.Wrap(err, "could not log in")
		}
		requester, err := newJSONRPCRequester(client, tasks, params, d.registry, d.commitFlags())
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		cleanup := func() {
			logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Logout(logoutCtx)
			client.Close()
		}
		return requester, cleanup, nil
	default:
		return nil, nil, errors.Errorf("unknown protocol %q", protocol)
	}
}

// WatchStream subscribes to a RESTCONF notification stream and writes
// every event payload to w until the context is canceled.
func (d *Daemon) WatchStream(ctx context.Context, stream string, w io.Writer) error {
	cfg := d.cfg
	client := restconf.New(restconf.Options{
		Host:          cfg.Host,
		Username:      cfg.Username,
		Password:      cfg.Password,
		TLS:           cfg.TLS,
		NoCompression: cfg.NoCompression,
		Timeout:       cfg.Timeout,
		Logger:        d.logger.WithField("host", cfg.Host),
	})

	events := make(chan restconf.Event)
	done := make(chan error, 1)
	go func() {
		done <- client.Stream(ctx, stream, events)
	}()
	for ev := range events {
		if ev.Comment != "" {
			d.logger.Debugf("stream comment: %s", ev.Comment)
			continue
		}
		fmt.Fprintln(w, ev.Data)
	}
	err := <-done
	if errors.Cause(err) == context.Canceled {
		return nil
	}
	return err
}

func (d *Daemon) commitFlags() []string {
	var flags []string
	if d.cfg.NoNetworking {
		flags = append(flags, "no-networking")
	}
	if d.cfg.CommitQueue {
		flags = append(flags, "commit-queue=sync")
	}
	return flags
}

// restconfCommitQuery renders the commit flags as RESTCONF query
// parameters, appended to every task's query string.
func (d *Daemon) restconfCommitQuery() string {
	var parts []string
	if d.cfg.NoNetworking {
		parts = append(parts, "no-networking=true")
	}
	if d.cfg.CommitQueue {
		parts = append(parts, "commit-queue=sync")
	}
	return strings.Join(parts, "&")
}

func (d *Daemon) record(ctx context.Context, label, protocol string, s metrics.Summary) {
	if d.history == nil {
		return
	}
	if err := d.history.Record(ctx, label, d.cfg.Host, protocol, s); err != nil {
		d.logger.WithError(err).Warn("could not record run history")
	}
}
