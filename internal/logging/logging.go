// Package logging builds the logr.Logger shared by the commands.
package logging

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger backed by zap. verbose enables V(1) messages.
func New(name string, verbose bool) logr.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if verbose {
		// logr's V(1) maps to zap level -1.
		cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-1))
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard()
	}
	return zapr.NewLogger(zl).WithName(name)
}

// FatalLogr adds Fatal to a logr.Logger.
type FatalLogr struct {
	logr.Logger
}

func (l *FatalLogr) Fatal(err error, msg string, keysAndValues ...interface{}) {
	l.Error(err, msg, keysAndValues...)
	os.Exit(1)
}
