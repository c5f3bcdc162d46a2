package recorder

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eric2788/webmrec/internal/media"
	"github.com/eric2788/webmrec/internal/services/repair"
	"github.com/eric2788/webmrec/utils"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/sirupsen/logrus"
)

type Mode string

const (
	// ModeAuto follows the play and pause events of the source.
	ModeAuto Mode = "auto"
	// ModeManual only reacts to explicit Start and Stop calls.
	ModeManual Mode = "manual"
)

type State string

const (
	StateUnbound    State = "unbound"
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateFinalizing State = "finalizing"
	StateDisposed   State = "disposed"
)

const DefaultName = "recorded"

// playingSource is implemented by sources able to report their play state.
type playingSource interface {
	Playing() bool
}

// Session records one media source. It binds to the capture stream once the
// stream is active and carries a track, then records between Start and Stop
// and finalizes every recording through its Finalizer.
type Session struct {
	id          string
	name        string
	mode        Mode
	source      media.Source
	engine      *repair.Engine
	finalizer   *Finalizer
	newRecorder media.RecorderFactory
	ctx         context.Context
	logger      *logrus.Entry
	createdAt   time.Time

	mu          sync.Mutex
	rec         media.Recorder
	chunks      *Chunks
	activeBound bool
	trackBound  bool
	disposed    bool
	unsubs      []func()
	bound       chan struct{}
	lastOutput  string
	lastErr     error

	pending    sync.WaitGroup
	fragments  atomic.Uint64
	bytes      atomic.Uint64
	recordings *xsync.Counter
}

type SessionOption func(*Session)

func WithName(name string) SessionOption {
	return func(s *Session) {
		s.name = utils.EmptyOrElse(name, s.name)
	}
}

func WithMode(mode Mode) SessionOption {
	return func(s *Session) {
		if mode == ModeManual || mode == ModeAuto {
			s.mode = mode
		}
	}
}

func WithRecorderFactory(factory media.RecorderFactory) SessionOption {
	return func(s *Session) {
		s.newRecorder = factory
	}
}

// WithContext sets the context finalization runs under.
func WithContext(ctx context.Context) SessionOption {
	return func(s *Session) {
		s.ctx = ctx
	}
}

// NewSession returns immediately. Engine initialization and stream binding
// happen in the background; Start and Stop are ignored until Bound is closed.
func NewSession(source media.Source, engine *repair.Engine, finalizer *Finalizer, options ...SessionOption) *Session {
	s := &Session{
		id:          utils.RandomID(),
		name:        DefaultName,
		mode:        ModeAuto,
		source:      source,
		engine:      engine,
		finalizer:   finalizer,
		newRecorder: media.ChunkRecorderFactory(),
		ctx:         context.Background(),
		createdAt:   time.Now(),
		chunks:      &Chunks{},
		bound:       make(chan struct{}),
		recordings:  xsync.NewCounter(),
	}
	for _, option := range options {
		option(s)
	}
	s.logger = logger.WithField("session", s.id).WithField("name", s.name)

	go func() {
		if s.engine.Initialize() == nil {
			s.logger.Debug("repair engine unavailable, recordings stay raw")
		}
		s.bind()
	}()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Name() string {
	return s.name
}

func (s *Session) Mode() Mode {
	return s.mode
}

// Bound is closed once the recorder exists.
func (s *Session) Bound() <-chan struct{} {
	return s.bound
}

// Ready exposes the repair engine readiness, nil when the engine is not
// initialized.
func (s *Session) Ready() *repair.Readiness {
	return s.engine.Ready()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return StateDisposed
	} else if s.rec == nil {
		return StateUnbound
	}
	switch s.rec.State() {
	case media.RecorderRecording:
		return StateRecording
	case media.RecorderStopping:
		return StateFinalizing
	default:
		return StateIdle
	}
}

// Start begins a recording. It does nothing unless the session is idle.
func (s *Session) Start() {
	rec := s.recorder()
	if rec == nil {
		s.logger.Debug("start ignored: recorder not bound")
		return
	} else if state := rec.State(); state != media.RecorderInactive {
		s.logger.Debugf("start ignored: recorder is %v", state)
		return
	}
	if err := rec.Start(); err != nil {
		s.logger.Debugf("start ignored: %v", err)
		return
	}
	s.logger.Info("recording started")
}

// Stop ends the current recording. Finalization follows asynchronously.
func (s *Session) Stop() {
	rec := s.recorder()
	if rec == nil {
		s.logger.Debug("stop ignored: recorder not bound")
		return
	} else if state := rec.State(); state != media.RecorderRecording {
		s.logger.Debugf("stop ignored: recorder is %v", state)
		return
	}
	if err := s.stop(rec); err != nil {
		s.logger.Debugf("stop ignored: %v", err)
		return
	}
	s.logger.Info("recording stopped, finalizing")
}

// stop counts the finalization the recorder's stop callback will run.
func (s *Session) stop(rec media.Recorder) error {
	s.pending.Add(1)
	if err := rec.Stop(); err != nil {
		s.pending.Done()
		return err
	}
	return nil
}

// Dispose releases every subscription of the session. A running recording
// is stopped and still finalized.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	unsubs := s.unsubs
	s.unsubs = nil
	rec := s.rec
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if rec != nil && rec.State() == media.RecorderRecording {
		if err := s.stop(rec); err != nil {
			s.logger.Debugf("stop on dispose: %v", err)
		}
	}
	s.logger.Info("session disposed")
}

// Wait blocks until in-flight finalizations are done or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) recorder() media.Recorder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil
	}
	return s.rec
}

func (s *Session) bind() {
	stream := s.source.CaptureStream()
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.unsubs = append(s.unsubs, stream.OnActive(s.onStreamActive))
	s.mu.Unlock()

	if stream.Active() {
		s.onStreamActive()
	}
}

func (s *Session) onStreamActive() {
	stream := s.source.CaptureStream()
	s.mu.Lock()
	if s.activeBound || s.disposed {
		s.mu.Unlock()
		return
	}
	s.activeBound = true
	s.unsubs = append(s.unsubs, stream.OnAddTrack(func(media.Track) { s.onTrackAdded() }))
	s.mu.Unlock()

	s.logger.Debug("capture stream active")
	if len(stream.Tracks()) > 0 {
		s.onTrackAdded()
	}
}

func (s *Session) onTrackAdded() {
	s.mu.Lock()
	if s.trackBound || s.disposed {
		s.mu.Unlock()
		return
	}
	s.trackBound = true

	rec, err := s.newRecorder(s.source.CaptureStream())
	if err != nil {
		s.mu.Unlock()
		s.logger.Errorf("cannot create recorder: %v", err)
		return
	}
	rec.OnData(s.onFragment)
	rec.OnStop(s.onRecorderStop)
	s.rec = rec

	autoStart := false
	if s.mode == ModeAuto {
		s.unsubs = append(s.unsubs,
			s.source.OnPlay(s.Start),
			s.source.OnPause(s.Stop),
		)
		if p, ok := s.source.(playingSource); ok {
			autoStart = p.Playing()
		}
	}
	close(s.bound)
	s.mu.Unlock()

	s.logger.Debug("recorder bound")
	if autoStart {
		s.Start()
	}
}

func (s *Session) onFragment(fragment []byte) {
	s.chunks.Append(fragment)
	s.fragments.Add(1)
	s.bytes.Add(uint64(len(fragment)))
}

func (s *Session) onRecorderStop() {
	defer s.pending.Done()

	rec, err := s.finalizer.run(s.ctx, s.chunks, s.name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		s.logger.Errorf("finalization failed: %v", err)
		return
	} else if rec == nil {
		s.logger.Info("nothing was recorded, no output produced")
		return
	}
	s.recordings.Inc()
	s.lastOutput = rec.Location
	s.logger.Infof("recording delivered: %s (%d bytes, raw %d bytes, repaired: %v)", rec.Location, rec.Blob.Size(), rec.Raw, rec.Repaired)
}
