package logging

import (
	corelogger "github.com/platformbuilds/sentra-core/pkg/logger"
	"go.uber.org/zap"
)

// Logger is a minimal logging interface used across the server and the policy
// engine packages. It mirrors the public surface of pkg/logger so internal
// packages can depend on internal/logging rather than pkg/logger directly.
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
}

// New returns a no-op zap-backed Logger. Production callers supply the
// project-wide logger from pkg/logger; this constructor is a convenience for
// tests and small tools.
func New(level string) Logger {
	return &zapAdapter{logger: zap.NewNop()}
}

// FromCoreLogger wraps the project core logger (pkg/logger.Logger) into an
// internal/logging.Logger.
func FromCoreLogger(core corelogger.Logger) Logger {
	if core == nil {
		return New("info")
	}
	return &coreAdapter{core: core}
}

type coreAdapter struct {
	core corelogger.Logger
}

func (c *coreAdapter) Info(msg string, fields ...interface{})  { c.core.Info(msg, fields...) }
func (c *coreAdapter) Error(msg string, fields ...interface{}) { c.core.Error(msg, fields...) }
func (c *coreAdapter) Warn(msg string, fields ...interface{})  { c.core.Warn(msg, fields...) }
func (c *coreAdapter) Debug(msg string, fields ...interface{}) { c.core.Debug(msg, fields...) }
func (c *coreAdapter) Fatal(msg string, fields ...interface{}) { c.core.Fatal(msg, fields...) }

type zapAdapter struct {
	logger *zap.Logger
}

func (z *zapAdapter) Info(msg string, fields ...interface{}) {
	z.logger.Sugar().Infow(msg, fields...)
}

func (z *zapAdapter) Error(msg string, fields ...interface{}) {
	z.logger.Sugar().Errorw(msg, fields...)
}

func (z *zapAdapter) Warn(msg string, fields ...interface{}) {
	z.logger.Sugar().Warnw(msg, fields...)
}

func (z *zapAdapter) Debug(msg string, fields ...interface{}) {
	z.logger.Sugar().Debugw(msg, fields...)
}

func (z *zapAdapter) Fatal(msg string, fields ...interface{}) {
	z.logger.Sugar().Fatalw(msg, fields...)
}
