package media

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ChunkRecorder buffers the data of a Stream while recording and hands it
// out as fragments every interval and once more on stop.
type ChunkRecorder struct {
	stream   Stream
	interval time.Duration
	logger   *logrus.Entry

	mu     sync.Mutex
	state  RecorderState
	take   uint64
	buf    []byte
	align  *clusterAligner
	onData func([]byte)
	onStop func()
	unsub  func()
	stopCh chan struct{}
}

type RecorderOption func(*ChunkRecorder)

// WithInterval sets the fragment timeslice. Zero emits a single fragment on
// stop.
func WithInterval(d time.Duration) RecorderOption {
	return func(r *ChunkRecorder) {
		if d >= 0 {
			r.interval = d
		}
	}
}

func NewChunkRecorder(stream Stream, options ...RecorderOption) *ChunkRecorder {
	r := &ChunkRecorder{
		stream:   stream,
		interval: time.Second,
		logger:   logger.WithField("component", "recorder"),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// ChunkRecorderFactory returns a RecorderFactory producing ChunkRecorders.
func ChunkRecorderFactory(options ...RecorderOption) RecorderFactory {
	return func(stream Stream) (Recorder, error) {
		return NewChunkRecorder(stream, options...), nil
	}
}

func (r *ChunkRecorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *ChunkRecorder) OnData(fn func([]byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onData = fn
}

func (r *ChunkRecorder) OnStop(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStop = fn
}

func (r *ChunkRecorder) Start() error {
	r.mu.Lock()
	if r.state != RecorderInactive {
		r.mu.Unlock()
		return ErrInvalidState
	}
	r.state = RecorderRecording
	r.take++
	take := r.take
	r.buf = nil
	r.align = nil
	stop := make(chan struct{})
	r.stopCh = stop
	r.mu.Unlock()

	// not under r.mu: a write in flight may still be calling into r
	head, unsub := r.stream.OnDataFrom(func(p []byte) { r.write(take, p) })

	r.mu.Lock()
	if r.state != RecorderRecording {
		unsub()
	} else {
		r.unsub = unsub
		// a recording joining a running stream starts with its header and
		// resumes at the next cluster
		live := r.buf
		r.buf = head.Data
		if head.Complete {
			r.align = &clusterAligner{}
		}
		r.appendLocked(live)
	}
	r.mu.Unlock()

	go r.loop(stop)
	r.logger.WithField("header", len(head.Data)).Debug("recording started")
	return nil
}

func (r *ChunkRecorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != RecorderRecording {
		return ErrInvalidState
	}
	r.state = RecorderStopping
	if r.unsub != nil {
		r.unsub()
		r.unsub = nil
	}
	close(r.stopCh)
	r.logger.Debug("recording stop requested")
	return nil
}

func (r *ChunkRecorder) write(take uint64, p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != RecorderRecording || take != r.take {
		return
	}
	r.appendLocked(p)
}

func (r *ChunkRecorder) appendLocked(p []byte) {
	if r.align != nil {
		var ok bool
		if p, ok = r.align.align(p); !ok {
			return
		}
		r.align = nil
	}
	r.buf = append(r.buf, p...)
}

func (r *ChunkRecorder) loop(stop <-chan struct{}) {
	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-tick:
			r.flush()
		case <-stop:
			r.flush()
			r.mu.Lock()
			onStop := r.onStop
			r.mu.Unlock()
			if onStop != nil {
				onStop()
			}
			r.mu.Lock()
			r.state = RecorderInactive
			r.mu.Unlock()
			r.logger.Debug("recording stopped")
			return
		}
	}
}

func (r *ChunkRecorder) flush() {
	r.mu.Lock()
	fragment := r.buf
	r.buf = nil
	onData := r.onData
	r.mu.Unlock()
	if len(fragment) == 0 || onData == nil {
		return
	}
	onData(fragment)
}
