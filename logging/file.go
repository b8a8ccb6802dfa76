package logging

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// FileLoggerOptions 文件日志选项
type FileLoggerOptions struct {
	Path string
	// Formatter 默认为不带颜色的 TextFormatter
	Formatter Formatter
	// BufferSize 异步队列长度，默认 DefaultAsyncBufferSize
	BufferSize int
}

// FileLoggerProvider 文件日志提供者，日志经 AsyncWriter 追加到文件
type FileLoggerProvider struct {
	file      *os.File
	writer    *AsyncWriter
	closeOnce sync.Once
	closeErr  error
}

// NewFileLoggerProvider 打开（或创建）日志文件
func NewFileLoggerProvider(options FileLoggerOptions) (*FileLoggerProvider, error) {
	if options.Path == "" {
		return nil, errors.New("logging: file logger requires a path")
	}
	if options.Formatter == nil {
		options.Formatter = NewTextFormatter()
	}

	file, err := os.OpenFile(options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("logging: failed to open log file: %w", err)
	}
	return &FileLoggerProvider{
		file:   file,
		writer: NewAsyncWriter(file, options.Formatter, options.BufferSize),
	}, nil
}

func (p *FileLoggerProvider) Write(entry *LogEntry) {
	p.writer.WriteLog(entry)
}

// Close 写完队列中的日志后关闭文件
func (p *FileLoggerProvider) Close() error {
	p.closeOnce.Do(func() {
		_ = p.writer.Close()
		p.closeErr = p.file.Close()
	})
	return p.closeErr
}
