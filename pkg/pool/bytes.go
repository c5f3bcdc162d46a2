package pool

import (
	"sync"
)

// BytesPool hands out fixed size byte slices.
type BytesPool struct {
	pool       sync.Pool
	BufferSize int
}

func NewBytesPool(bufferSize int) *BytesPool {
	return &BytesPool{
		BufferSize: bufferSize,
		pool: sync.Pool{
			New: func() any {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

func (p *BytesPool) GetBytes() []byte {
	return *p.GetBytesPtr()
}

// PutBytes returns buf to the pool. Slices of a foreign capacity are dropped.
func (p *BytesPool) PutBytes(buf []byte) {
	if cap(buf) != p.BufferSize {
		return
	}
	p.PutBytesPtr(&buf)
}

func (p *BytesPool) GetBytesPtr() *[]byte {
	return p.pool.Get().(*[]byte)
}

func (p *BytesPool) PutBytesPtr(buf *[]byte) {
	*buf = (*buf)[:cap(*buf)]
	p.pool.Put(buf)
}
