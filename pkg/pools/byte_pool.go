// Package pools recycles scratch byte slices used on the WAL write path.
package pools

import "sync"

// Size classes. Requests above the largest class are allocated directly.
var classes = [...]int{64, 256, 1024, 4096, 16384, 65536}

// MaxPooled is the largest capacity Put accepts
const MaxPooled = 65536

// BytePool hands out zero-length slices with at least the requested capacity
type BytePool struct {
	pools [len(classes)]sync.Pool
}

// NewBytePool creates an empty pool
func NewBytePool() *BytePool {
	p := &BytePool{}
	for i, size := range classes {
		size := size
		p.pools[i].New = func() any {
			b := make([]byte, 0, size)
			return &b
		}
	}
	return p
}

// class returns the smallest class holding size, or -1
func class(size int) int {
	for i, c := range classes {
		if size <= c {
			return i
		}
	}
	return -1
}

// Get returns a slice with length 0 and capacity >= size
func (p *BytePool) Get(size int) []byte {
	i := class(size)
	if i < 0 {
		return make([]byte, 0, size)
	}
	bp := p.pools[i].Get().(*[]byte)
	return (*bp)[:0]
}

// Put recycles b. The caller must not use b afterwards.
func (p *BytePool) Put(b []byte) {
	c := cap(b)
	if c > MaxPooled {
		return
	}
	// Store under the largest class b can fully serve
	i := class(c)
	if classes[i] != c {
		i--
	}
	if i < 0 {
		return
	}
	b = b[:0]
	p.pools[i].Put(&b)
}

var defaultPool = NewBytePool()

// Get takes a slice from the shared pool
func Get(size int) []byte { return defaultPool.Get(size) }

// Put returns a slice to the shared pool
func Put(b []byte) { defaultPool.Put(b) }
