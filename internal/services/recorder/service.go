package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/eric2788/webmrec/internal/media"
	"github.com/eric2788/webmrec/internal/modules/config"
	"github.com/eric2788/webmrec/internal/services/repair"
	"github.com/eric2788/webmrec/internal/services/source"
	"github.com/eric2788/webmrec/utils"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/sirupsen/logrus"
	"go.uber.org/fx"
)

var logger = logrus.WithField("service", "recorder")

var ErrMaxSessionsReached = fmt.Errorf("maximum concurrent sessions reached")
var ErrSessionNotFound = fmt.Errorf("session not found")
var ErrSourceNotControllable = fmt.Errorf("session source cannot be played or paused")

// controllable sources can be told to play and pause.
type controllable interface {
	Play()
	Pause()
}

// Service keeps the recording sessions of the process.
type Service struct {
	engine    *repair.Engine
	finalizer *Finalizer
	sources   *source.Service
	sessions  *xsync.Map[string, *Session]
	sourceOf  *xsync.Map[string, media.Source]

	cfg    *config.Config
	ctx    context.Context
	cancel context.CancelFunc
}

func NewService(
	lc fx.Lifecycle,
	engine *repair.Engine,
	finalizer *Finalizer,
	sources *source.Service,
	cfg *config.Config,
) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Service{
		engine:    engine,
		finalizer: finalizer,
		sources:   sources,
		sessions:  xsync.NewMap[string, *Session](),
		sourceOf:  xsync.NewMap[string, media.Source](),
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
	}
	lc.Append(fx.StopHook(func(ctx context.Context) error {
		defer cancel()
		return r.shutdown(ctx)
	}))
	return r
}

// Create opens a remote source at url and records it.
func (r *Service) Create(url, name string, mode Mode) (*Session, error) {
	if r.sessions.Size() >= r.cfg.MaxSessions {
		return nil, ErrMaxSessionsReached
	}
	src, err := r.sources.Open(url)
	if err != nil {
		return nil, err
	}
	session, err := r.Attach(src, name, mode)
	if err != nil {
		src.Close()
		return nil, err
	}
	return session, nil
}

// Attach records an already existing source.
func (r *Service) Attach(src media.Source, name string, mode Mode) (*Session, error) {
	if r.sessions.Size() >= r.cfg.MaxSessions {
		return nil, ErrMaxSessionsReached
	}
	session := NewSession(src, r.engine, r.finalizer,
		WithName(utils.EmptyOrElse(name, r.cfg.DefaultName)),
		WithMode(mode),
		WithContext(r.ctx),
		WithRecorderFactory(media.ChunkRecorderFactory(media.WithInterval(r.cfg.FragmentInterval))),
	)
	r.sessions.Store(session.ID(), session)
	r.sourceOf.Store(session.ID(), src)
	session.logger.Infof("session created in %s mode", session.Mode())
	return session, nil
}

func (r *Service) Get(id string) (*Session, bool) {
	return r.sessions.Load(id)
}

func (r *Service) List() []string {
	ids := make([]string, 0, r.sessions.Size())
	r.sessions.Range(func(key string, _ *Session) bool {
		ids = append(ids, key)
		return true
	})
	return ids
}

func (r *Service) Start(id string) error {
	session, ok := r.sessions.Load(id)
	if !ok {
		return ErrSessionNotFound
	}
	session.Start()
	return nil
}

func (r *Service) Stop(id string) error {
	session, ok := r.sessions.Load(id)
	if !ok {
		return ErrSessionNotFound
	}
	session.Stop()
	return nil
}

// Play resumes the source of the session, which starts recording in auto
// mode.
func (r *Service) Play(id string) error {
	src, err := r.controllable(id)
	if err != nil {
		return err
	}
	src.Play()
	return nil
}

func (r *Service) Pause(id string) error {
	src, err := r.controllable(id)
	if err != nil {
		return err
	}
	src.Pause()
	return nil
}

func (r *Service) controllable(id string) (controllable, error) {
	src, ok := r.sourceOf.Load(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	c, ok := src.(controllable)
	if !ok {
		return nil, ErrSourceNotControllable
	}
	return c, nil
}

// Dispose disposes the session and releases its source. A running recording
// is still finalized.
func (r *Service) Dispose(id string) error {
	session, ok := r.sessions.LoadAndDelete(id)
	if !ok {
		return ErrSessionNotFound
	}
	session.Dispose()
	if src, ok := r.sourceOf.LoadAndDelete(id); ok {
		if closer, ok := src.(interface{ Close() }); ok {
			closer.Close()
		}
	}
	return nil
}

func (r *Service) shutdown(ctx context.Context) error {
	sessions := make([]*Session, 0, r.sessions.Size())
	for _, id := range r.List() {
		if session, ok := r.sessions.Load(id); ok {
			sessions = append(sessions, session)
		}
		_ = r.Dispose(id)
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	for _, session := range sessions {
		if err := session.Wait(ctx); err != nil {
			return fmt.Errorf("session %s still finalizing: %v", session.ID(), err)
		}
	}
	return nil
}
