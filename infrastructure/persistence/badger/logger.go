package badger

import "go.uber.org/zap"

// zapLogger routes badger's internal logging through zap.
type zapLogger struct {
	s *zap.SugaredLogger
}

func newLogger(l *zap.Logger) *zapLogger {
	return &zapLogger{s: l.Named("badger").WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *zapLogger) Errorf(f string, v ...interface{})   { l.s.Errorf(f, v...) }
func (l *zapLogger) Warningf(f string, v ...interface{}) { l.s.Warnf(f, v...) }
func (l *zapLogger) Infof(f string, v ...interface{})    { l.s.Debugf(f, v...) }
func (l *zapLogger) Debugf(f string, v ...interface{})   { l.s.Debugf(f, v...) }
