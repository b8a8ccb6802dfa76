package logging

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// LoggingBuilder 日志构建器
type LoggingBuilder struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
	errs         []error
	mu           sync.RWMutex
}

// NewLoggingBuilder 创建日志构建器
func NewLoggingBuilder() *LoggingBuilder {
	return &LoggingBuilder{
		minimumLevel: LogLevelInfo,
	}
}

// SetMinimumLevel 设置最小日志级别
func (b *LoggingBuilder) SetMinimumLevel(level LogLevel) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minimumLevel = level
	return b
}

// AddProvider 添加日志提供者
func (b *LoggingBuilder) AddProvider(provider LoggerProvider) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers = append(b.providers, provider)
	return b
}

// AddConsole 添加控制台日志
func (b *LoggingBuilder) AddConsole(options ...ConsoleLoggerOptions) *LoggingBuilder {
	var opts ConsoleLoggerOptions
	if len(options) > 0 {
		opts = options[0]
	}
	return b.AddProvider(NewConsoleLoggerProvider(opts))
}

// AddFile 添加文件日志，打开失败的错误由 Validate 返回
func (b *LoggingBuilder) AddFile(path string, options ...FileLoggerOptions) *LoggingBuilder {
	var opts FileLoggerOptions
	if len(options) > 0 {
		opts = options[0]
	}
	opts.Path = path

	provider, err := NewFileLoggerProvider(opts)
	if err != nil {
		b.mu.Lock()
		b.errs = append(b.errs, err)
		b.mu.Unlock()
		return b
	}
	return b.AddProvider(provider)
}

// Validate 返回添加提供者时的错误
func (b *LoggingBuilder) Validate() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return errors.Join(b.errs...)
}

// AddZap 添加 zap 日志
func (b *LoggingBuilder) AddZap(logger *zap.Logger) *LoggingBuilder {
	return b.AddProvider(NewZapLoggerProvider(logger))
}

// Build 构建日志工厂
func (b *LoggingBuilder) Build() LoggerFactory {
	b.mu.RLock()
	defer b.mu.RUnlock()

	factory := &loggerFactory{minimumLevel: b.minimumLevel}
	for _, provider := range b.providers {
		factory.AddProvider(provider)
	}
	return factory
}

// NewLogger 创建一个默认的控制台 Logger
func NewLogger(category string) Logger {
	return NewLoggingBuilder().AddConsole().Build().CreateLogger(category)
}
