package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// DefaultAsyncBufferSize 异步写入队列的默认长度
const DefaultAsyncBufferSize = 1024

// AsyncWriter 在后台协程中格式化并写入日志
// 队列满时 WriteLog 阻塞等待，不丢日志
type AsyncWriter struct {
	writer    io.Writer
	formatter Formatter
	entryCh   chan *LogEntry
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
}

// NewAsyncWriter 创建异步写入器并启动后台写入协程
func NewAsyncWriter(writer io.Writer, formatter Formatter, bufferSize int) *AsyncWriter {
	if bufferSize <= 0 {
		bufferSize = DefaultAsyncBufferSize
	}
	w := &AsyncWriter{
		writer:    writer,
		formatter: formatter,
		entryCh:   make(chan *LogEntry, bufferSize),
	}

	w.wg.Add(1)
	go w.process()
	return w
}

// WriteLog 写入日志条目，关闭后的写入被丢弃
func (w *AsyncWriter) WriteLog(entry *LogEntry) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	w.entryCh <- entry
}

// Close 停止接收日志，并等待队列中的日志写完
func (w *AsyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.entryCh)
	}
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}

func (w *AsyncWriter) process() {
	defer w.wg.Done()

	for entry := range w.entryCh {
		data, err := w.formatter.Format(entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging: format error: %v\n", err)
			continue
		}

		// JSON 格式没有换行，补齐后一次写入
		buf := bufferPool.Get()
		buf.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			buf.WriteByte('\n')
		}
		if _, err := w.writer.Write(buf.Bytes()); err != nil {
			fmt.Fprintf(os.Stderr, "logging: write error: %v\n", err)
		}
		bufferPool.Put(buf)
	}
}
