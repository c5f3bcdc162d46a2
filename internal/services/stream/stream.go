package stream

import (
	"context"
	"io"
	"time"

	"github.com/eric2788/webmrec/pkg/pool"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("service", "stream")

const DefaultBufferSize = 64 * 1024

type Service struct {
	pool *pool.BytesPool
}

func NewService() *Service {
	return &Service{pool: pool.NewBytesPool(DefaultBufferSize)}
}

// ReadStream pumps body into the returned channel until EOF, a read error
// or ctx ends. The channel is closed afterwards and body closed. Every
// received slice must be handed back with Flush.
func (r *Service) ReadStream(ctx context.Context, body io.ReadCloser) <-chan []byte {
	ch := make(chan []byte, 16)
	go r.read(ctx, ch, body)
	return ch
}

func (r *Service) Flush(buf []byte) {
	r.pool.PutBytes(buf[:cap(buf)])
}

func (r *Service) read(ctx context.Context, ch chan<- []byte, body io.ReadCloser) {
	defer body.Close()
	defer close(ch)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			buf := r.pool.GetBytes()
			n, err := body.Read(buf)
			if n > 0 {
				select {
				case ch <- buf[:n]:
				case <-ctx.Done():
					r.Flush(buf)
					return
				}
			} else {
				r.Flush(buf)
			}
			if err == io.EOF {
				logger.Info("stream ended")
				return
			} else if err != nil {
				if ctx.Err() == nil {
					logger.Errorf("error reading stream: %v", err)
				}
				return
			}
			if n == 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(1 * time.Millisecond):
				}
			}
		}
	}
}
