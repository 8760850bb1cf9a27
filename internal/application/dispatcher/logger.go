package dispatcher

import "go.uber.org/zap"

// zapLogger adapts a zap logger to the dispatcher Logger interface
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// ZapLogger wraps a zap logger for use with WithLogger
func ZapLogger(logger *zap.Logger) Logger {
	return &zapLogger{sugar: logger.Sugar()}
}

func (l *zapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *zapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}
