package config

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config represents the configuration of an nso-stress run
type Config struct {
	ConfigPath string

	Strict bool

	// Target NSO instance
	Host          string
	Username      string
	Password      string
	TLS           bool
	NoCompression bool

	// Load shape
	Concurrency   uint
	Requests      uint
	Rate          float64
	Duration      time.Duration
	Series        []uint
	Ramp          bool
	BatchInterval time.Duration

	// Request behaviour
	DryRun         bool
	Echo           bool
	Timeout        time.Duration
	Retries        uint
	NoNetworking   bool
	CommitQueue    bool
	WarmConns      uint
	Params         []string
	KeepState      bool
	ResourcePrefix string

	// Output
	Quiet      bool
	Output     string
	HTMLReport string
	HistoryDB  string

	AdminEndpoint string

	LogLevel  logrus.Level
	LogFormat LogFormat
	LogFile   string

	// We memoize these, so they bind to viper flags correctly
	optionsCache *Options
	viper        *viper.Viper

	// options set through a flag, env var or config file, as opposed
	// to a default. Scenario defaults only fill in the rest.
	explicit map[string]bool
}

func (cfg *Config) markExplicit(name string) {
	if cfg.explicit == nil {
		cfg.explicit = map[string]bool{}
	}
	cfg.explicit[name] = true
}

// Explicit reports whether the named option was set by the user.
func (cfg *Config) Explicit(name string) bool {
	return cfg.explicit[name]
}

// Init registers every option as a persistent flag so subcommands
// share the full flag surface.
func (cfg *Config) Init(cmd *cobra.Command) error {
	cfg.Bind()
	return cfg.options().AddFlags(cmd.PersistentFlags())
}

// SetValues populates the config in layers: defaults first, then cli
// flags and environment variables, then the toml config file (if any),
// and finally the flags and environment again so they win over the file.
func (cfg *Config) SetValues() error {
	if err := cfg.loadDefaults(); err != nil {
		return err
	}

	if err := cfg.loadFlags(); err != nil {
		return err
	}

	if cfg.ConfigPath != "" {
		if err := cfg.loadConfigPath(); err != nil {
			return err
		}

		if err := cfg.loadFlags(); err != nil {
			return err
		}
	}

	return nil
}

// loadDefaults populates the config with default values
func (cfg *Config) loadDefaults() error {
	for _, option := range cfg.options().items() {
		if option.DefaultValue != nil {
			if err := option.setValue(option.DefaultValue); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadFlags populates the config with values from the cli flags and
// environment variables
func (cfg *Config) loadFlags() error {
	cfg.Bind()
	for _, option := range cfg.options().items() {
		if cfg.viper.IsSet(option.Name) {
			if err := option.setValue(cfg.viper.Get(option.Name)); err != nil {
				return err
			}
			cfg.markExplicit(option.Name)
		}
	}
	return nil
}

// loadConfigPath loads a new config from a toml file at the given path. Strict
// mode will return an error if there are any unknown toml variables set. Note,
// strict-mode can also be set by putting `STRICT=true` in the config.toml file
// itself.
func (cfg *Config) loadConfigPath() error {
	file, err := os.Open(cfg.ConfigPath)
	if err != nil {
		return err
	}
	defer file.Close()
	return parseToml(file, cfg.Strict, cfg)
}

func (cfg *Config) Validate() error {
	return cfg.options().Validate()
}
