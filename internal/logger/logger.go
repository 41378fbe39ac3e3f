// Package logger holds the process-wide zap logger for triage.
//
// The logger is a no-op until [Initialize] runs, so packages may log at any
// point without nil checks. Verbose mode switches on a console encoder at
// debug level; the default stays silent because triage's primary output is
// the formatted listing on stdout.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the shared sugared logger.
var Log *zap.SugaredLogger

func init() {
	Log = zap.NewNop().Sugar()
}

// Initialize configures the global logger. With verbose false the logger
// stays a no-op.
func Initialize(verbose bool) {
	if !verbose {
		Log = zap.NewNop().Sugar()
		return
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stderr),
		zap.DebugLevel,
	)
	Log = zap.New(core).Sugar()
}
