package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/config"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/daemon"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/history"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/nsotest"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/param"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/report"
	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/scenario"
)

func main() {
	var cfg config.Config
	rootCmd := buildCLI(&cfg)

	if err := cfg.Init(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "could not parse config options: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func buildCLI(cfg *config.Config) *cobra.Command {
	// setValues finalizes the config layering once the subcommand's
	// flags were parsed.
	setValues := func(cmd *cobra.Command) error {
		if err := cfg.BindTo(cmd.Flags()); err != nil {
			return err
		}
		if err := cfg.SetValues(); err != nil {
			return err
		}
		return cfg.Validate()
	}

	rootCmd := &cobra.Command{
		Use:           "nso-stress",
		Short:         "Stress and performance test the NSO northbound interfaces",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd := &cobra.Command{
		Use:   "run <scenario.toml>",
		Short: "Execute a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setValues(cmd); err != nil {
				return err
			}
			s, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			d := daemon.MustNew(cfg)
			defer d.Close()
			ctx, cancel := daemon.SignalContext(context.Background())
			defer cancel()
			return d.RunScenario(ctx, s)
		},
	}

	var queryString string
	restconfCmd := &cobra.Command{
		Use:   "restconf <operation> <resource> [data]",
		Short: "Run one RESTCONF operation under load",
		Long: `Run a single RESTCONF operation (create, read, update, set, delete,
action, or the crud/cud compounds) against the data tree, repeated
according to the load flags. Resource and data may contain <<name>>
parameter references.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setValues(cmd); err != nil {
				return err
			}
			return runAdhoc(cfg, "restconf", args, queryString)
		},
	}
	restconfCmd.Flags().StringVar(&queryString, "query-string", "", "raw query string appended to the resource URL")

	jsonrpcCmd := &cobra.Command{
		Use:   "jsonrpc <operation> <path> [data]",
		Short: "Run one JSON-RPC operation under load",
		Long: `Run a single JSON-RPC operation (read, load, delete, run_action,
show_config, or the crud/cud compounds) against a keypath, repeated
according to the load flags. Path and data may contain <<name>>
parameter references.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setValues(cmd); err != nil {
				return err
			}
			return runAdhoc(cfg, "jsonrpc", args, "")
		},
	}

	streamCmd := &cobra.Command{
		Use:   "stream <name>",
		Short: "Subscribe to a RESTCONF notification stream and print its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setValues(cmd); err != nil {
				return err
			}
			d := daemon.MustNew(cfg)
			defer d.Close()
			ctx, cancel := daemon.SignalContext(context.Background())
			defer cancel()
			return d.WatchStream(ctx, args[0], os.Stdout)
		},
	}

	var historyLimit uint64
	var historyPrune time.Duration
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setValues(cmd); err != nil {
				return err
			}
			if cfg.HistoryDB == "" {
				return errors.New("history is disabled, set --history-db to a database path")
			}
			db, err := history.Open(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer db.Close()
			if historyPrune > 0 {
				pruned, err := db.Prune(cmd.Context(), time.Now().Add(-historyPrune))
				if err != nil {
					return err
				}
				fmt.Printf("pruned %d runs\n", pruned)
			}
			runs, err := db.Recent(cmd.Context(), historyLimit)
			if err != nil {
				return err
			}
			report.PrintHistory(os.Stdout, runs)
			return nil
		},
	}
	historyCmd.Flags().Uint64Var(&historyLimit, "limit", 20, "maximum number of runs to list")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "delete runs older than this before listing")

	mockCmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve a mock NSO northbound on the configured host address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setValues(cmd); err != nil {
				return err
			}
			d := daemon.MustNew(cfg)
			defer d.Close()
			logger := d.Logger().WithField("subsystem", "mock")
			srv := nsotest.NewServer(cfg.Username, cfg.Password, logger)
			defer srv.Close()
			server := &http.Server{Addr: cfg.Host, Handler: srv}
			logger.Infof("mock NSO listening on %s", cfg.Host)
			ctx, cancel := daemon.SignalContext(context.Background())
			defer cancel()
			go func() {
				<-ctx.Done()
				_ = server.Close()
			}()
			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information and exit",
		Run: func(_ *cobra.Command, _ []string) {
			if config.CommitHash == "" {
				fmt.Printf("nso-stress dev\n")
			} else {
				branch := config.Branch
				if branch == "main" {
					branch = ""
				}
				fmt.Printf("nso-stress %s (%s) %s\n", config.Version, config.CommitHash, branch)
			}
		},
	}

	rootCmd.AddCommand(runCmd, restconfCmd, jsonrpcCmd, streamCmd, historyCmd, mockCmd, versionCmd)
	return rootCmd
}

// runAdhoc executes a single command line operation with the shared
// load flags.
func runAdhoc(cfg *config.Config, protocol string, args []string, query string) error {
	data := ""
	if len(args) == 3 {
		data = args[2]
	}
	resource := cfg.ResourcePrefix + args[1]
	tasks := scenario.Expand(args[0], resource, data, query)
	// ad-hoc runs get a request-scoped <<id>> sequence so unique
	// resources can be generated without a scenario file
	params := param.NewSet()
	params.Put("id", param.NewSequenceRequest(1))
	d := daemon.MustNew(cfg)
	defer d.Close()
	ctx, cancel := daemon.SignalContext(context.Background())
	defer cancel()
	label := fmt.Sprintf("%s %s %s", protocol, args[0], args[1])
	return d.RunTasks(ctx, protocol, label, tasks, params)
}
