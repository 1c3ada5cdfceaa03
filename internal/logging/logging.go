// Package logging builds the zap.SugaredLogger every other quadstore
// package accepts as a dependency, grounded on cmd/cmd.go's
// newLogger/newLoggerWithOutput (console encoder for interactive use, JSON
// for production).
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a *zap.SugaredLogger writing to stdout: JSON-encoded when
// json is true, a colored console encoding otherwise.
func New(json bool) *zap.SugaredLogger {
	econf := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var core zapcore.Core
	if json {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(econf), zapcore.AddSync(os.Stdout), zap.DebugLevel)
	} else {
		econf.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(econf), zapcore.AddSync(os.Stdout), zap.DebugLevel)
	}
	return zap.New(core).Sugar()
}
