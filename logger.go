package roadside

import (
	"go.uber.org/zap"
)

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger to Logger. A nil logger yields a no-op.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{sugar: l.Sugar()}
}

func (z *zapLogger) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }
func (z *zapLogger) Info(msg string, args ...any) { z.sugar.Infow(msg, args...) }
func (z *zapLogger) Warn(msg string, args ...any) { z.sugar.Warnw(msg, args...) }
func (z *zapLogger) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

var defLogger = newDefaultLogger()

func newDefaultLogger() Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return NewZapLogger(nil)
	}
	return NewZapLogger(l.Named("roadside"))
}

// DefaultLogger returns the package level logger.
func DefaultLogger() Logger {
	return defLogger
}

func resolveLogger(l Logger) Logger {
	if l == nil {
		return defLogger
	}
	return l
}
