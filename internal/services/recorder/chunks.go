package recorder

import (
	"sync"

	"github.com/eric2788/webmrec/internal/media"
)

// Chunks is the ordered fragment sequence of one recording.
type Chunks struct {
	mu    sync.Mutex
	parts [][]byte
	size  int
}

func (c *Chunks) Append(fragment []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parts = append(c.parts, fragment)
	c.size += len(fragment)
}

func (c *Chunks) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.parts)
}

func (c *Chunks) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Blob concatenates the fragments in capture order.
func (c *Chunks) Blob() *media.Blob {
	blob, _ := c.snapshot()
	return blob
}

func (c *Chunks) snapshot() (*media.Blob, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return media.NewBlob(c.parts, media.MimeWebM), len(c.parts)
}

// drop removes the first n fragments.
func (c *Chunks) drop(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n = min(n, len(c.parts))
	for _, p := range c.parts[:n] {
		c.size -= len(p)
	}
	c.parts = append([][]byte(nil), c.parts[n:]...)
	if len(c.parts) == 0 {
		c.parts = nil
	}
}

func (c *Chunks) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parts = nil
	c.size = 0
}
