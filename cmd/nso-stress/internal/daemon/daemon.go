// Package daemon wires a run together: logger, metrics registry,
// protocol clients, the engine and the result sinks, plus the optional
// admin HTTP endpoint.
package daemon

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/config"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/history"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/metrics"
)

const defaultShutdownGracePeriod = 10 * time.Second

type Daemon struct {
	cfg      *config.Config
	logger   *logrus.Logger
	registry *metrics.Registry
	history  *history.DB

	adminServer *http.Server
}

func MustNew(cfg *config.Config) *Daemon {
	logger := newLogger(cfg)

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		registry: metrics.MakeRegistry(),
	}

	if cfg.HistoryDB != "" {
		db, err := history.Open(cfg.HistoryDB)
		if err != nil {
			logger.WithError(err).Fatalf("could not open history database %s", cfg.HistoryDB)
		}
		d.history = db
	}

	if cfg.AdminEndpoint != "" {
		d.startAdmin()
	}
	return d
}

func (d *Daemon) Logger() *logrus.Logger {
	return d.logger
}

func (d *Daemon) MetricsRegistry() *metrics.Registry {
	return d.registry
}

func (d *Daemon) History() *history.DB {
	return d.history
}

// startAdmin serves /metrics and the pprof endpoints on the admin
// address for watching a long run from the outside.
func (d *Daemon) startAdmin() {
	// after importing net/http/pprof, debug endpoints are implicitly
	// registered in the default serve mux
	http.Handle("/metrics", d.registry.HTTPHandler)
	d.adminServer = &http.Server{Addr: d.cfg.AdminEndpoint, Handler: http.DefaultServeMux}
	d.logger.Infof("starting admin server on %v", d.cfg.AdminEndpoint)
	go func() {
		if err := d.adminServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			d.logger.WithError(err).Error("admin server encountered fatal error")
		}
	}()
}

func (d *Daemon) Close() error {
	var err error
	if d.adminServer != nil {
		shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), defaultShutdownGracePeriod)
		defer shutdownRelease()
		if localErr := d.adminServer.Shutdown(shutdownCtx); localErr != nil {
			err = localErr
		}
	}
	if d.history != nil {
		if localErr := d.history.Close(); localErr != nil {
			err = localErr
		}
	}
	return err
}

// SignalContext returns a context canceled on SIGINT or SIGTERM, so a
// run can be interrupted and still report what it completed.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx, cancel
}
