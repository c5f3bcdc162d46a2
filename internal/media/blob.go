package media

import (
	"bytes"
	"io"
)

const MimeWebM = "video/webm"

const ExtWebM = "webm"

// Blob is an immutable byte payload tagged with its media type.
type Blob struct {
	Data []byte
	Type string
}

// NewBlob concatenates parts in order into a single blob.
func NewBlob(parts [][]byte, mime string) *Blob {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	data := make([]byte, 0, size)
	for _, p := range parts {
		data = append(data, p...)
	}
	return &Blob{Data: data, Type: mime}
}

func (b *Blob) Size() int {
	return len(b.Data)
}

func (b *Blob) Reader() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b.Data))
}
