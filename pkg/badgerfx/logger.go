package badgerfx

import (
	"strings"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// zapLogger adapts zap to badger.Logger. Badger reports routine compaction
// and replay progress at info level, so it is demoted to debug.
type zapLogger struct {
	logger *zap.SugaredLogger
}

func newLogger(l *zap.Logger) *zapLogger {
	return &zapLogger{
		logger: l.WithOptions(zap.AddCallerSkip(1)).Sugar(),
	}
}

func (l *zapLogger) Debugf(format string, a ...any) {
	l.logger.Debugf(trim(format), a...)
}

func (l *zapLogger) Infof(format string, a ...any) {
	l.logger.Debugf(trim(format), a...)
}

func (l *zapLogger) Warningf(format string, a ...any) {
	l.logger.Warnf(trim(format), a...)
}

func (l *zapLogger) Errorf(format string, a ...any) {
	l.logger.Errorf(trim(format), a...)
}

// trim drops the trailing newline badger appends to most messages.
func trim(format string) string {
	return strings.TrimRight(format, "\n")
}

var _ badger.Logger = (*zapLogger)(nil)
