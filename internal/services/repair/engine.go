// Package repair fixes the container metadata of recorded webm files. The
// recorder emits a live-style stream without duration or cues; a stream copy
// remux through ffmpeg rewrites both so the file becomes seekable.
package repair

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eric2788/webmrec/internal/media"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var logger = logrus.WithField("service", "repair")

const (
	inputName  = "i.webm"
	outputName = "o.webm"
)

var (
	ErrEngineUninitialized = errors.New("repair engine is not initialized")
	ErrInsufficientSpace   = errors.New("not enough free space in repair work dir")
)

type Options struct {
	WorkDir    string
	FFmpegPath string
}

// Engine is the process wide repair engine. It initializes lazily and at
// most once; every caller of Initialize observes the same Readiness.
type Engine struct {
	opts       Options
	runner     Runner
	capability func() error
	newFS      func() (billy.Filesystem, error)
	checkSpace bool

	initOnce sync.Once
	loads    atomic.Int32

	mu       sync.RWMutex
	fs       billy.Filesystem
	ready    *Readiness
	progress func(Progress)
}

type Option func(*Engine)

func WithRunner(r Runner) Option {
	return func(e *Engine) {
		e.runner = r
	}
}

// WithCapability replaces the environment check run on first Initialize.
func WithCapability(check func() error) Option {
	return func(e *Engine) {
		e.capability = check
	}
}

func WithFilesystem(fs billy.Filesystem) Option {
	return func(e *Engine) {
		e.newFS = func() (billy.Filesystem, error) { return fs, nil }
		e.checkSpace = false
	}
}

func NewEngine(opts Options, options ...Option) *Engine {
	e := &Engine{
		opts:       opts,
		runner:     NewFFmpegRunner(opts.FFmpegPath),
		checkSpace: true,
	}
	e.capability = e.defaultCapability
	e.newFS = e.defaultFS
	for _, option := range options {
		option(e)
	}
	return e
}

// Initialize runs the one-time setup. It returns nil when the environment
// lacks what the engine needs, in which case repair stays unavailable for
// the lifetime of the engine.
func (e *Engine) Initialize() *Readiness {
	e.initOnce.Do(e.initialize)
	return e.Ready()
}

func (e *Engine) initialize() {
	if err := e.capability(); err != nil {
		logger.Warnf("%v: output video will not be seekable", err)
		return
	}
	fs, err := e.newFS()
	if err != nil {
		logger.Warnf("cannot prepare repair work dir: %v: output video will not be seekable", err)
		return
	}

	ready := newReadiness()

	e.mu.Lock()
	e.fs = fs
	e.ready = ready
	if e.progress == nil {
		e.progress = logProgress()
	}
	e.mu.Unlock()

	e.loads.Add(1)
	go func() {
		version, err := e.runner.Load(context.Background())
		if err != nil {
			logger.Errorf("repair engine load failed: %v", err)
		} else {
			logger.Infof("repair engine loaded: %s", version)
		}
		ready.resolve(version, err)
	}()
}

func (e *Engine) Initialized() bool {
	return e.Ready() != nil
}

// Ready exposes the load outcome, nil if the engine was never initialized.
func (e *Engine) Ready() *Readiness {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

// Loads reports how many load sequences were started.
func (e *Engine) Loads() int {
	return int(e.loads.Load())
}

// SetProgress installs the hook receiving remux progress.
func (e *Engine) SetProgress(fn func(Progress)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress = fn
}

// Repair remuxes blob with stream copy so that the container carries a
// duration and a seek index. Every call works in its own directory.
func (e *Engine) Repair(ctx context.Context, blob *media.Blob) (*media.Blob, error) {
	ready := e.Ready()
	if ready == nil {
		return nil, ErrEngineUninitialized
	}
	if err := ready.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "repair engine not ready")
	}

	e.mu.RLock()
	fs, hook := e.fs, e.progress
	e.mu.RUnlock()

	if err := e.ensureSpace(fs, uint64(blob.Size())*2); err != nil {
		return nil, err
	}

	dir, err := util.TempDir(fs, "jobs", "remux-")
	if err != nil {
		return nil, errors.Wrap(err, "create remux dir")
	}
	defer func() {
		if err := util.RemoveAll(fs, dir); err != nil {
			logger.Warnf("cannot clean remux dir %s: %v", dir, err)
		}
	}()

	work, err := fs.Chroot(dir)
	if err != nil {
		return nil, errors.Wrap(err, "chroot remux dir")
	}
	if err := util.WriteFile(work, inputName, blob.Data, 0644); err != nil {
		return nil, errors.Wrap(err, "write remux input")
	}

	start := time.Now()
	total := int64(blob.Size())
	err = e.runner.Remux(ctx, work, inputName, outputName, func(p Progress) {
		p.Ratio = ratio(p, total)
		if hook != nil {
			hook(p)
		}
	})
	if err != nil {
		return nil, err
	}

	data, err := util.ReadFile(work, outputName)
	if err != nil {
		return nil, errors.Wrap(err, "read remux output")
	}
	logger.Debugf("remuxed %d bytes into %d bytes in %v", total, len(data), time.Since(start).Round(time.Millisecond))
	return &media.Blob{Data: data, Type: media.MimeWebM}, nil
}

func (e *Engine) defaultCapability() error {
	if _, err := exec.LookPath(e.opts.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found (%s)", e.opts.FFmpegPath)
	}
	if err := os.MkdirAll(e.opts.WorkDir, 0755); err != nil {
		return fmt.Errorf("repair work dir %s not writable: %v", e.opts.WorkDir, err)
	}
	return nil
}

func (e *Engine) defaultFS() (billy.Filesystem, error) {
	return osfs.New(e.opts.WorkDir), nil
}

func (e *Engine) ensureSpace(fs billy.Filesystem, need uint64) error {
	if !e.checkSpace {
		return nil
	}
	usage, err := disk.Usage(fs.Root())
	if err != nil {
		logger.Debugf("cannot read disk usage of %s: %v", fs.Root(), err)
		return nil
	}
	if usage.Free < need {
		return errors.Wrapf(ErrInsufficientSpace, "need %d bytes, %d free", need, usage.Free)
	}
	return nil
}

func ratio(p Progress, total int64) float64 {
	if p.Done {
		return 1
	} else if total <= 0 {
		return 0
	}
	return min(float64(p.TotalSize)/float64(total), 1)
}

func logProgress() func(Progress) {
	sometimes := &rate.Sometimes{Interval: time.Second}
	return func(p Progress) {
		if p.Done {
			logger.Infof("%.0f%%", p.Ratio*100)
			return
		}
		sometimes.Do(func() {
			logger.Infof("%.0f%%", p.Ratio*100)
		})
	}
}
