package logger

import (
	"os"

	"github.com/monoledger/monoledger/config"
	"github.com/rs/zerolog"
)

// New returns a configured zerolog.Logger scoped to the given component.
func New(cfg *config.Config, component string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if cfg.IsDevelopment() && cfg.LogLevel == "" {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log := zerolog.New(out).With().Timestamp().Str("component", component).Logger()
	return log
}
