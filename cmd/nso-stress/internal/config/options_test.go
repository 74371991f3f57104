package config

import (
	"reflect"
	"testing"
	"time"
	"unsafe"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllConfigKeysMustBePointers(t *testing.T) {
	cfg := Config{}
	for _, option := range cfg.options() {
		kind := reflect.ValueOf(option.ConfigKey).Type().Kind()
		if kind != reflect.Pointer {
			t.Errorf("ConfigOption.ConfigKey must be a pointer, got %s for %s", kind, option.Name)
		}
	}
}

func TestMustDocumentAllOptions(t *testing.T) {
	// Allow us to explicitly exclude any fields on the Config struct, which are not going to have Options.
	excluded := map[string]bool{}

	cfg := Config{}
	cfgValue := reflect.ValueOf(cfg)
	cfgType := cfgValue.Type()

	options := cfg.options()
	optionsByField := map[uintptr]*ConfigOption{}
	for _, option := range options {
		key := uintptr(reflect.ValueOf(option.ConfigKey).UnsafePointer())
		if existing, ok := optionsByField[key]; ok {
			t.Errorf("Conflicting ConfigOptions %s and %s, point to the same struct field", existing.Name, option.Name)
		}
		optionsByField[key] = option
	}

	// Get the base address of the struct
	cfgPtr := uintptr(unsafe.Pointer(&cfg))
	for _, structField := range reflect.VisibleFields(cfgType) {
		if excluded[structField.Name] {
			continue
		}
		if !structField.IsExported() {
			continue
		}

		// Each field has an offset within that struct
		fieldPointer := cfgPtr + structField.Offset

		// There should be an option which points to this field
		_, ok := optionsByField[fieldPointer]
		if !ok {
			t.Errorf("Missing ConfigOption for field Config.%s", structField.Name)
		}
	}
}

func TestDefaults(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.loadDefaults())

	assert.Equal(t, "localhost:8080", cfg.Host)
	assert.Equal(t, "admin", cfg.Username)
	assert.Equal(t, uint(1), cfg.Concurrency)
	assert.Equal(t, 60*time.Second, cfg.Duration)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.True(t, cfg.NoCompression)
	assert.Equal(t, defaultHistoryDB, cfg.HistoryDB)
	assert.Equal(t, logrus.WarnLevel, cfg.LogLevel)
	assert.Equal(t, LogFormat(LogFormatText), cfg.LogFormat)
}

func TestValidateRejectsZeroWindow(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.loadDefaults())
	cfg.Concurrency = 0
	require.ErrorContains(t, cfg.Validate(), "window")
}

func TestLogLevelSetter(t *testing.T) {
	cfg := Config{}
	option := cfg.options().lookup("log-level")
	require.NotNil(t, option)

	require.NoError(t, option.setValue("info"))
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)

	require.NoError(t, option.setValue(logrus.ErrorLevel))
	assert.Equal(t, logrus.ErrorLevel, cfg.LogLevel)

	require.Error(t, option.setValue("shouty"))
}

func TestSeriesSetter(t *testing.T) {
	cfg := Config{}
	option := cfg.options().lookup("series")
	require.NotNil(t, option)

	require.NoError(t, option.setValue("1, 5,20"))
	assert.Equal(t, []uint{1, 5, 20}, cfg.Series)

	require.ErrorContains(t, option.setValue("1,0,5"), "positive")
	require.Error(t, option.setValue("1,five"))
}

func TestDurationSetter(t *testing.T) {
	cfg := Config{}
	option := cfg.options().lookup("duration")
	require.NotNil(t, option)

	require.NoError(t, option.setValue("90s"))
	assert.Equal(t, 90*time.Second, cfg.Duration)

	require.NoError(t, option.setValue(2*time.Minute))
	assert.Equal(t, 2*time.Minute, cfg.Duration)

	require.Error(t, option.setValue("ninety"))
}
