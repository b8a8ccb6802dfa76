package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleLoggerOptions 控制台日志选项
type ConsoleLoggerOptions struct {
	// Formatter 默认为 TextFormatter
	Formatter Formatter
	Output    io.Writer
}

// ConsoleLoggerProvider 控制台日志提供者
type ConsoleLoggerProvider struct {
	formatter Formatter
	output    io.Writer
	mu        sync.Mutex
}

// NewConsoleLoggerProvider 创建控制台日志提供者
func NewConsoleLoggerProvider(options ConsoleLoggerOptions) *ConsoleLoggerProvider {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	if options.Formatter == nil {
		text := NewTextFormatter()
		text.ColorOutput = options.Output == os.Stdout
		options.Formatter = text
	}
	return &ConsoleLoggerProvider{
		formatter: options.Formatter,
		output:    options.Output,
	}
}

func (p *ConsoleLoggerProvider) Write(entry *LogEntry) {
	data, err := p.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: format error: %v\n", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.output.Write(data); err != nil {
		fmt.Fprintf(os.Stderr, "logging: write error: %v\n", err)
	}
}
