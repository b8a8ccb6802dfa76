package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLoggerProvider 把日志转发给 zap
type ZapLoggerProvider struct {
	logger *zap.Logger
}

// NewZapLoggerProvider 创建 zap 日志提供者
func NewZapLoggerProvider(logger *zap.Logger) *ZapLoggerProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLoggerProvider{logger: logger}
}

// NewProductionZapProvider 使用 zap 的生产配置
func NewProductionZapProvider() (*ZapLoggerProvider, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZapLoggerProvider(logger), nil
}

func (p *ZapLoggerProvider) Write(entry *LogEntry) {
	logger := p.logger
	if entry.Category != "" {
		logger = logger.Named(entry.Category)
	}

	fields := make([]zap.Field, 0, len(entry.Fields))
	for _, f := range entry.Fields {
		fields = append(fields, zap.Any(f.Key, f.Value))
	}

	// Fatal 由 compositeLogger 负责退出，这里按 Error 写入
	if ce := logger.Check(zapLevel(entry.Level), entry.Message); ce != nil {
		ce.Time = entry.Time
		ce.Write(fields...)
	}
}

// Sync 刷新 zap 缓冲
func (p *ZapLoggerProvider) Sync() error {
	return p.logger.Sync()
}

func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelTrace, LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
