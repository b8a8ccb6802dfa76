package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
	// LogLevelNone 关闭日志
	LogLevelNone
)

var levelNames = map[LogLevel]string{
	LogLevelTrace: "TRACE",
	LogLevelDebug: "DEBUG",
	LogLevelInfo:  "INFO",
	LogLevelWarn:  "WARN",
	LogLevelError: "ERROR",
	LogLevelFatal: "FATAL",
	LogLevelNone:  "NONE",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLogLevel 解析配置中的日志级别，大小写不敏感
func ParseLogLevel(s string) (LogLevel, error) {
	for level, name := range levelNames {
		if strings.EqualFold(s, name) {
			return level, nil
		}
	}
	return LogLevelInfo, fmt.Errorf("logging: unknown log level %q", s)
}

// Field 日志字段
type Field struct {
	Key   string
	Value any
}

// String 字符串字段
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Any 任意值字段
func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err 错误字段，nil 时值为空
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger 日志接口
type Logger interface {
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	Log(level LogLevel, msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	WithCategory(category string) Logger
}

// LoggerFactory 日志工厂接口
type LoggerFactory interface {
	CreateLogger(category string) Logger
	AddProvider(provider LoggerProvider)
	SetMinimumLevel(level LogLevel)
	// Close 关闭实现了 io.Closer 的提供者
	Close() error
}

// LoggerProvider 日志提供者接口
// 提供者只负责输出，级别过滤由 compositeLogger 完成
type LoggerProvider interface {
	Write(entry *LogEntry)
}

type loggerFactory struct {
	mu           sync.RWMutex
	providers    []LoggerProvider
	minimumLevel LogLevel
}

func (f *loggerFactory) CreateLogger(category string) Logger {
	return &compositeLogger{factory: f, category: category}
}

func (f *loggerFactory) AddProvider(provider LoggerProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers = append(f.providers, provider)
}

func (f *loggerFactory) SetMinimumLevel(level LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minimumLevel = level
}

func (f *loggerFactory) Close() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var errs []error
	for _, p := range f.providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f *loggerFactory) dispatch(entry *LogEntry) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if entry.Level < f.minimumLevel {
		return
	}
	for _, p := range f.providers {
		p.Write(entry)
	}
}

// compositeLogger 把日志分发给工厂中的所有提供者
// 级别在写入时读取，工厂调整级别对已创建的 Logger 立即生效
type compositeLogger struct {
	factory  *loggerFactory
	category string
	fields   []Field
}

func (l *compositeLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *compositeLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *compositeLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *compositeLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *compositeLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *compositeLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *compositeLogger) Log(level LogLevel, msg string, fields ...Field) {
	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)
	l.factory.dispatch(newEntry(level, l.category, msg, all))
}

func (l *compositeLogger) WithFields(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &compositeLogger{factory: l.factory, category: l.category, fields: merged}
}

func (l *compositeLogger) WithCategory(category string) Logger {
	return &compositeLogger{factory: l.factory, category: category, fields: l.fields}
}

// Nop 丢弃所有日志
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Trace(string, ...Field)         {}
func (nopLogger) Debug(string, ...Field)         {}
func (nopLogger) Info(string, ...Field)          {}
func (nopLogger) Warn(string, ...Field)          {}
func (nopLogger) Error(string, ...Field)         {}
func (nopLogger) Fatal(string, ...Field)         {}
func (nopLogger) Log(LogLevel, string, ...Field) {}
func (n nopLogger) WithFields(...Field) Logger   { return n }
func (n nopLogger) WithCategory(string) Logger   { return n }
