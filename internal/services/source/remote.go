package source

import (
	"context"
	"io"
	"sync"

	"github.com/eric2788/webmrec/internal/media"
	"github.com/eric2788/webmrec/internal/services/stream"
	"github.com/eric2788/webmrec/pkg/monitor"
	"github.com/eric2788/webmrec/pkg/pool"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// VideoTrack is announced on the capture stream with the first received
// bytes of a connection.
var VideoTrack = media.Track{ID: "video0", Kind: "video"}

// Remote is a playable source backed by an HTTP webm stream. Playing
// connects and feeds the capture stream, pausing disconnects. The end of the
// remote stream pauses the source.
type Remote struct {
	*media.Element

	url       string
	client    *resty.Client
	st        *stream.Service
	rateLimit int
	ctx       context.Context
	logger    *logrus.Entry

	mu       sync.Mutex
	cancel   context.CancelFunc
	closed   bool
	received int64

	// wmu is held around each write of a connection into the capture stream
	wmu sync.Mutex
}

func (r *Remote) URL() string {
	return r.url
}

// Play connects to the remote stream. It does nothing while connected.
func (r *Remote) Play() {
	r.mu.Lock()
	if r.closed || r.cancel != nil {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(r.ctx)
	r.cancel = cancel
	r.mu.Unlock()

	// every connection starts over with its own header
	r.Output().ResetInit()
	r.Element.Play()
	go r.pump(ctx)
}

func (r *Remote) Pause() {
	r.disconnect()
	r.Element.Pause()
}

// Close pauses the source for good and deactivates its capture stream.
func (r *Remote) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.Pause()
	r.Output().Deactivate()
}

// BytesReceived is the total of bytes read over all connections.
func (r *Remote) BytesReceived() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.received
}

// disconnect cancels the current connection. Once it returns the connection
// writes nothing more into the capture stream.
func (r *Remote) disconnect() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
	// wait out a write in flight
	r.wmu.Lock()
	r.wmu.Unlock() //nolint:staticcheck
}

func (r *Remote) pump(ctx context.Context) {
	defer func() {
		// ended on its own: eof or connection failure
		if ctx.Err() == nil {
			r.Pause()
		}
	}()

	resp, err := r.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(r.url)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Errorf("cannot connect: %v", err)
		}
		return
	} else if resp.IsError() {
		resp.RawBody().Close()
		r.logger.Errorf("remote responded %s", resp.Status())
		return
	}
	r.logger.Info("connected")

	base := r.BytesReceived()
	var body io.ReadCloser = monitor.NewProgressReader(resp.RawBody(), func(read int64) {
		r.mu.Lock()
		r.received = base + read
		r.mu.Unlock()
	})
	if r.rateLimit > 0 {
		body = pool.NewLimitReader(ctx, body, r.rateLimit, r.rateLimit)
	}

	out := r.Output()
	for buf := range r.st.ReadStream(ctx, body) {
		if ctx.Err() != nil {
			// drain what the reader buffered before the cancel
			r.st.Flush(buf)
			continue
		}
		out.Activate()
		out.AddTrack(VideoTrack)
		r.write(ctx, out, buf)
		r.st.Flush(buf)
	}
	r.logger.Info("disconnected")
}

func (r *Remote) write(ctx context.Context, out *media.CaptureStream, buf []byte) {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	if ctx.Err() != nil {
		return
	}
	_, _ = out.Write(buf)
}
