package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	instance *zap.SugaredLogger
	once     sync.Once
)

type Config struct {
	Development bool
}

func build(cfg Config) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func New(cfg Config) (*zap.SugaredLogger, error) {
	var err error
	once.Do(func() {
		var l *zap.Logger
		if l, err = build(cfg); err != nil {
			return
		}
		instance = l.Sugar()
	})
	if instance == nil && err == nil {
		// a previous New already failed; build a fresh one
		l, e := build(cfg)
		if e != nil {
			return nil, e
		}
		instance = l.Sugar()
	}
	return instance, err
}

// Nop returns a no-op logger for tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
