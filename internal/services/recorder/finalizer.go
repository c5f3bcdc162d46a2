package recorder

import (
	"context"
	"fmt"

	"github.com/eric2788/webmrec/internal/processors"
	"github.com/eric2788/webmrec/internal/services/repair"
	"github.com/eric2788/webmrec/internal/services/sink"
	"github.com/eric2788/webmrec/pkg/pipeline"
	"go.uber.org/fx"
)

// Finalizer turns a finished chunk sequence into a delivered file: concat,
// best effort repair, then the sink.
type Finalizer struct {
	pipe *pipeline.Pipe[*processors.Recording]
}

func NewFinalizer(engine *repair.Engine, s sink.Sink) (*Finalizer, error) {
	pipe := pipeline.New(
		processors.NewRepair(engine),
		processors.NewDeliver(s),
	)
	if err := pipe.Open(context.Background()); err != nil {
		pipe.Close()
		return nil, fmt.Errorf("cannot open finalizer: %w", err)
	}
	return &Finalizer{pipe: pipe}, nil
}

func NewFinalizerService(lc fx.Lifecycle, engine *repair.Engine, s sink.Sink) (*Finalizer, error) {
	f, err := NewFinalizer(engine, s)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(f.Close))
	return f, nil
}

// Finalize saves chunks under name. It reports false without touching the
// sink when nothing was recorded. Errors of the repair or delivery step are
// returned as is and leave chunks in place.
func (f *Finalizer) Finalize(ctx context.Context, chunks *Chunks, name string) (bool, error) {
	rec, err := f.run(ctx, chunks, name)
	return rec != nil, err
}

func (f *Finalizer) run(ctx context.Context, chunks *Chunks, name string) (*processors.Recording, error) {
	blob, n := chunks.snapshot()
	if n == 0 {
		return nil, nil
	}
	rec, err := f.pipe.Process(ctx, &processors.Recording{
		Name: name,
		Blob: blob,
		Raw:  blob.Size(),
	})
	if err != nil {
		return nil, err
	}
	chunks.drop(n)
	return rec, nil
}

func (f *Finalizer) Close() {
	f.pipe.Close()
}
