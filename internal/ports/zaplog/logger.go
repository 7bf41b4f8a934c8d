// Package zaplog adapts zap to the runtime.Logger interface the engine logs through,
// so the standalone server and the Nakama module share logging call sites.
package zaplog

import (
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
)

// Logger is a runtime.Logger writing printf-style messages to zap.
type Logger struct {
	z      *zap.Logger
	fields map[string]interface{}
}

// New wraps z. A nil z logs nothing.
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z.WithOptions(zap.AddCallerSkip(1))}
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.z.Debug(fmt.Sprintf(format, v...))
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.z.Info(fmt.Sprintf(format, v...))
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.z.Warn(fmt.Sprintf(format, v...))
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.z.Error(fmt.Sprintf(format, v...))
}

func (l *Logger) WithField(key string, v interface{}) runtime.Logger {
	return l.WithFields(map[string]interface{}{key: v})
}

func (l *Logger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		merged[k] = v
		zf = append(zf, zap.Any(k, v))
	}
	return &Logger{z: l.z.With(zf...), fields: merged}
}

func (l *Logger) Fields() map[string]interface{} {
	return l.fields
}

var _ runtime.Logger = (*Logger)(nil)
