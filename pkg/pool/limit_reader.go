package pool

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// LimitReader throttles reads to limit bytes per second.
type LimitReader struct {
	r io.ReadCloser
	l *rate.Limiter
	c context.Context
}

func NewLimitReader(ctx context.Context, r io.ReadCloser, limit, burst int) *LimitReader {
	return &LimitReader{
		r: r,
		l: rate.NewLimiter(rate.Limit(limit), burst),
		c: ctx,
	}
}

func (lr *LimitReader) Read(p []byte) (n int, err error) {
	if len(p) > lr.l.Burst() {
		p = p[:lr.l.Burst()]
	}
	n, err = lr.r.Read(p)
	if n > 0 {
		if werr := lr.l.WaitN(lr.c, n); werr != nil && err == nil {
			err = werr
		}
	}
	return n, err
}

func (lr *LimitReader) Close() error {
	return lr.r.Close()
}
