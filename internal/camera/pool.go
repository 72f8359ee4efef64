package camera

import "sync"

// bufferPool recycles frame buffers of a fixed size. Releasing a frame back
// through Source.Release feeds the pool; capture goroutines draw from it to
// avoid allocating a fresh buffer per frame.
type bufferPool struct {
	size int
	pool sync.Pool
}

func newBufferPool(size int) *bufferPool {
	return &bufferPool{
		size: size,
		pool: sync.Pool{
			New: func() any { return make([]byte, size) },
		},
	}
}

func (p *bufferPool) get() []byte {
	return p.pool.Get().([]byte)
}

// put returns a buffer to the pool. Wrong-sized buffers are discarded; they
// can appear when a source is reconfigured between runs.
func (p *bufferPool) put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	p.pool.Put(buf[:p.size])
}
