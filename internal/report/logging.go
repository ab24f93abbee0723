package report

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logSubdir is the per-user directory reports log into when no
// explicit logfile is given.
const logSubdir = "gracc-reporting"

// ResolveLogfile picks the logfile location: the explicit path, then
// <default_logdir>/gracc-reporting/<report>.log, then the same under
// $HOME. The first writable candidate wins; everything failing falls
// back to the current working directory.
func ResolveLogfile(explicit, defaultLogdir, reportName string) string {
	var candidates []string
	if explicit != "" {
		candidates = append(candidates, explicit)
	}
	if defaultLogdir != "" {
		candidates = append(candidates, filepath.Join(defaultLogdir, logSubdir, reportName+".log"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, logSubdir, reportName+".log"))
	}

	for _, candidate := range candidates {
		if writable(candidate) {
			return candidate
		}
	}
	return reportName + ".log"
}

// writable checks that the file can be opened for append, creating the
// parent directory if needed.
func writable(path string) bool {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// NewLogger builds the per-run logger: a console core at Info (Debug
// under verbose) teed with a file core that always logs at Debug. The
// returned func flushes and closes the logfile.
func NewLogger(reportName, vo, logfile string, verbose bool) (*zap.Logger, func(), error) {
	f, err := os.OpenFile(logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	consoleLevel := zapcore.InfoLevel
	if verbose {
		consoleLevel = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), consoleLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), zapcore.DebugLevel),
	)

	fields := []zap.Field{zap.String("report", reportName)}
	if vo != "" {
		fields = append(fields, zap.String("vo", vo))
	}
	logger := zap.New(core).With(fields...)

	cleanup := func() {
		_ = logger.Sync()
		_ = f.Close()
	}
	return logger, cleanup, nil
}
