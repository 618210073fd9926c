package cli

import "go.uber.org/zap"

// agentLogger wraps zap for verbose debug with supervisor context.
type agentLogger struct {
	sugared *zap.SugaredLogger
}

func newAgentLogger(globals *Globals) *agentLogger {
	if globals == nil || !globals.Verbose {
		return &agentLogger{sugared: zap.NewNop().Sugar()}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	logger, _ := cfg.Build()
	return &agentLogger{sugared: logger.Sugar()}
}

func (l *agentLogger) Debug(format string, args ...interface{}) {
	l.sugared.Debugf(format, args...)
}

// Sugared exposes the underlying logger for components that log
// structured diagnostics themselves.
func (l *agentLogger) Sugared() *zap.SugaredLogger {
	return l.sugared
}
