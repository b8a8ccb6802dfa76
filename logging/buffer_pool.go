package logging

import (
	"bytes"
	"sync"
)

// byteBufferPool 复用写入缓冲
type byteBufferPool struct {
	pool sync.Pool
}

func newByteBufferPool() *byteBufferPool {
	return &byteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return new(bytes.Buffer)
			},
		},
	}
}

func (p *byteBufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

func (p *byteBufferPool) Put(b *bytes.Buffer) {
	b.Reset()
	p.pool.Put(b)
}

var bufferPool = newByteBufferPool()
