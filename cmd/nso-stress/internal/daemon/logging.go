package daemon

import (
	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/config"
)

// newLogger builds the run's logger from the config: level, text or
// json lines, and optional rotated file output so long soak runs do
// not fill the disk.
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)
	switch cfg.LogFormat {
	case config.LogFormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if cfg.LogFile != "" {
		logger.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}
	return logger
}
