package config

import (
	"fmt"
	"go/types"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultHistoryDB = "nso-stress.sqlite"

func (cfg *Config) options() Options {
	if cfg.optionsCache != nil {
		return *cfg.optionsCache
	}
	defaultTimeout := 5 * time.Minute
	opts := Options{
		{
			Name:         "config-path",
			EnvVar:       "NSO_STRESS_CONFIG_PATH",
			TomlKey:      "-",
			Usage:        "File path to the toml configuration file",
			OptType:      types.String,
			ConfigKey:    &cfg.ConfigPath,
			DefaultValue: "",
		},
		{
			Name:         "config-strict",
			EnvVar:       "NSO_STRESS_CONFIG_STRICT",
			TomlKey:      "STRICT",
			Usage:        "Enable strict toml configuration file parsing",
			OptType:      types.Bool,
			ConfigKey:    &cfg.Strict,
			DefaultValue: false,
		},
		{
			Name:         "host",
			Usage:        "NSO instance to send requests to (host:port)",
			OptType:      types.String,
			ConfigKey:    &cfg.Host,
			DefaultValue: "localhost:8080",
		},
		{
			Name:         "username",
			Usage:        "User to authenticate as",
			OptType:      types.String,
			ConfigKey:    &cfg.Username,
			DefaultValue: "admin",
		},
		{
			Name:         "password",
			Usage:        "Password to authenticate with",
			OptType:      types.String,
			ConfigKey:    &cfg.Password,
			DefaultValue: "admin",
		},
		{
			Name:         "tls",
			Usage:        "Use https when connecting to the NSO instance",
			OptType:      types.Bool,
			ConfigKey:    &cfg.TLS,
			DefaultValue: false,
		},
		{
			Name:         "no-compression",
			Usage:        "Ask NSO not to gzip response payloads",
			OptType:      types.Bool,
			ConfigKey:    &cfg.NoCompression,
			DefaultValue: true,
		},
		{
			Name:         "window",
			Usage:        "Number of in-flight requests to keep open (the sliding window size)",
			OptType:      types.Uint,
			ConfigKey:    &cfg.Concurrency,
			DefaultValue: uint(1),
			Validate: func(o *ConfigOption) error {
				if cfg.Concurrency == 0 {
					return fmt.Errorf("must be positive")
				}
				return nil
			},
		},
		{
			Name:         "requests",
			Usage:        "Stop after this many requests. 0 means run until the duration elapses",
			OptType:      types.Uint,
			ConfigKey:    &cfg.Requests,
			DefaultValue: uint(0),
		},
		{
			Name:         "rate",
			Usage:        "Target requests per second. 0 means as fast as possible",
			OptType:      types.Float64,
			ConfigKey:    &cfg.Rate,
			DefaultValue: float64(0),
		},
		{
			Name:           "duration",
			Usage:          "How long to generate load when no request count is given",
			OptType:        types.String,
			ConfigKey:      &cfg.Duration,
			DefaultValue:   "60s",
			CustomSetValue: parseDuration,
			MarshalTOML: func(o *ConfigOption) (interface{}, error) {
				return cfg.Duration.String(), nil
			},
		},
		{
			Name:           "series",
			Usage:          "Comma-separated list of window sizes for a ramp run, e.g. 1,5,20",
			OptType:        types.String,
			ConfigKey:      &cfg.Series,
			DefaultValue:   nil,
			CustomSetValue: parseUintSlice,
			MarshalTOML: func(o *ConfigOption) (interface{}, error) {
				out := make([]string, len(cfg.Series))
				for i, n := range cfg.Series {
					out[i] = strconv.FormatUint(uint64(n), 10)
				}
				return out, nil
			},
		},
		{
			Name:         "ramp",
			Usage:        "Run the 1,2,5,10,20,... window series up to the configured window",
			OptType:      types.Bool,
			ConfigKey:    &cfg.Ramp,
			DefaultValue: false,
		},
		{
			Name:           "batch-interval",
			Usage:          "Interval between request batches in batch mode. 0 selects the sliding window executor",
			OptType:        types.String,
			ConfigKey:      &cfg.BatchInterval,
			DefaultValue:   "0s",
			CustomSetValue: parseDuration,
			MarshalTOML: func(o *ConfigOption) (interface{}, error) {
				return cfg.BatchInterval.String(), nil
			},
		},
		{
			Name:         "dry-run",
			Usage:        "Do everything except sending the requests",
			OptType:      types.Bool,
			ConfigKey:    &cfg.DryRun,
			DefaultValue: false,
		},
		{
			Name:         "echo",
			Usage:        "Log every request and response",
			OptType:      types.Bool,
			ConfigKey:    &cfg.Echo,
			DefaultValue: false,
		},
		{
			Name:           "timeout",
			Usage:          "Per-request timeout. 0 disables the timeout",
			OptType:        types.String,
			ConfigKey:      &cfg.Timeout,
			DefaultValue:   defaultTimeout.String(),
			CustomSetValue: parseDuration,
			MarshalTOML: func(o *ConfigOption) (interface{}, error) {
				return cfg.Timeout.String(), nil
			},
		},
		{
			Name:         "retries",
			Usage:        "Retry transport failures this many times with exponential backoff",
			OptType:      types.Uint,
			ConfigKey:    &cfg.Retries,
			DefaultValue: uint(0),
		},
		{
			Name:         "no-networking",
			Usage:        "Add the no-networking commit flag to every request",
			OptType:      types.Bool,
			ConfigKey:    &cfg.NoNetworking,
			DefaultValue: false,
		},
		{
			Name:         "commit-queue",
			Usage:        "Commit through the commit queue (commit-queue=sync)",
			OptType:      types.Bool,
			ConfigKey:    &cfg.CommitQueue,
			DefaultValue: false,
		},
		{
			Name:         "warm-connections",
			Usage:        "Open this many connections before the run starts",
			OptType:      types.Uint,
			ConfigKey:    &cfg.WarmConns,
			DefaultValue: uint(0),
		},
		{
			Name:           "param",
			Usage:          "Comma-separated scenario parameter overrides, e.g. id=100,group=7",
			OptType:        types.String,
			ConfigKey:      &cfg.Params,
			DefaultValue:   nil,
			CustomSetValue: parseStringSlice,
		},
		{
			Name:         "resource-prefix",
			Usage:        "Prefix prepended to every ad-hoc resource path",
			OptType:      types.String,
			ConfigKey:    &cfg.ResourcePrefix,
			DefaultValue: "",
		},
		{
			Name:         "keep-state",
			Usage:        "Load and save parameter state between runs",
			OptType:      types.Bool,
			ConfigKey:    &cfg.KeepState,
			DefaultValue: false,
		},
		{
			Name:         "quiet",
			Usage:        "Suppress the progress bar and the summary printout",
			OptType:      types.Bool,
			ConfigKey:    &cfg.Quiet,
			DefaultValue: false,
		},
		{
			Name:         "output",
			Usage:        "Write the collected results as JSON to this file",
			OptType:      types.String,
			ConfigKey:    &cfg.Output,
			DefaultValue: "",
		},
		{
			Name:         "html",
			Usage:        "Write an HTML chart report for ramp runs to this file",
			OptType:      types.String,
			ConfigKey:    &cfg.HTMLReport,
			DefaultValue: "",
		},
		{
			Name:         "history-db",
			Usage:        "SQLite file run summaries are recorded in. \"\" disables the history",
			OptType:      types.String,
			ConfigKey:    &cfg.HistoryDB,
			DefaultValue: defaultHistoryDB,
		},
		{
			Name:         "admin-endpoint",
			Usage:        "Admin endpoint to serve /metrics and pprof on. \"\" (default) disables the admin server",
			OptType:      types.String,
			ConfigKey:    &cfg.AdminEndpoint,
			DefaultValue: "",
		},
		{
			Name:         "log-level",
			Usage:        "minimum log severity (debug, info, warn, error) to log",
			OptType:      types.String,
			ConfigKey:    &cfg.LogLevel,
			DefaultValue: logrus.WarnLevel.String(),
			CustomSetValue: func(o *ConfigOption, i interface{}) error {
				switch v := i.(type) {
				case string:
					ll, err := logrus.ParseLevel(v)
					if err != nil {
						return fmt.Errorf("could not parse log-level: %v", v)
					}
					cfg.LogLevel = ll
					return nil
				case logrus.Level:
					cfg.LogLevel = v
					return nil
				default:
					return fmt.Errorf("could not parse log-level: %v", v)
				}
			},
			MarshalTOML: func(o *ConfigOption) (interface{}, error) {
				return cfg.LogLevel.String(), nil
			},
		},
		{
			Name:         "log-format",
			Usage:        "format used for output logs (json or text)",
			OptType:      types.String,
			ConfigKey:    &cfg.LogFormat,
			DefaultValue: LogFormat(LogFormatText).String(),
			CustomSetValue: func(o *ConfigOption, i interface{}) error {
				switch v := i.(type) {
				case string:
					return cfg.LogFormat.UnmarshalText([]byte(v))
				case LogFormat:
					cfg.LogFormat = v
					return nil
				default:
					return fmt.Errorf("could not parse log-format: %v", v)
				}
			},
			MarshalTOML: func(o *ConfigOption) (interface{}, error) {
				return cfg.LogFormat.String(), nil
			},
		},
		{
			Name:         "log-file",
			Usage:        "Write logs to this file (rotated) instead of stderr",
			OptType:      types.String,
			ConfigKey:    &cfg.LogFile,
			DefaultValue: "",
		},
	}
	cfg.optionsCache = &opts
	return opts
}
