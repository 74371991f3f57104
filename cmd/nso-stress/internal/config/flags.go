package config

import (
	"fmt"
	"go/types"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Bind creates the viper instance the flag and environment lookups go
// through. It is idempotent so SetValues can be called before or after
// flag registration.
func (cfg *Config) Bind() {
	if cfg.viper == nil {
		cfg.viper = viper.New()
	}
}

// AddFlags registers a cli flag for every option and binds it, together
// with the matching environment variable, to the config's viper.
func (options Options) AddFlags(fs *pflag.FlagSet) error {
	for _, option := range options {
		if err := option.addFlag(fs); err != nil {
			return err
		}
	}
	return nil
}

func (o *ConfigOption) addFlag(fs *pflag.FlagSet) error {
	// the defaults shown in --help come from the option defaults, the
	// actual layering happens in SetValues.
	switch o.OptType {
	case types.Bool:
		fs.Bool(o.Name, false, o.usageWithEnv())
	case types.Int:
		fs.Int(o.Name, 0, o.usageWithEnv())
	case types.Uint:
		fs.Uint(o.Name, 0, o.usageWithEnv())
	case types.Float64:
		fs.Float64(o.Name, 0, o.usageWithEnv())
	case types.String:
		fs.String(o.Name, "", o.usageWithEnv())
	default:
		return fmt.Errorf("unsupported option type for flag %s", o.Name)
	}
	return nil
}

func (o *ConfigOption) usageWithEnv() string {
	if envVar, ok := o.getEnvVar(); ok {
		return fmt.Sprintf("%s (%s)", o.Usage, envVar)
	}
	return o.Usage
}

// BindTo wires a parsed flag set and the environment into the viper
// instance. Must be called after flag parsing, before SetValues.
func (cfg *Config) BindTo(fs *pflag.FlagSet) error {
	cfg.Bind()
	for _, option := range cfg.options().items() {
		flag := fs.Lookup(option.Name)
		if flag == nil {
			continue
		}
		// viper treats a bound pflag as set only once it changed, which
		// preserves the defaults -> file -> env -> flag layering.
		if flag.Changed {
			if err := cfg.viper.BindPFlag(option.Name, flag); err != nil {
				return err
			}
		}
		if envVar, ok := option.getEnvVar(); ok {
			if err := cfg.viper.BindEnv(option.Name, envVar); err != nil {
				return err
			}
		}
	}
	return nil
}
