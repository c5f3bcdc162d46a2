package processors

import (
	"context"
	"errors"

	"github.com/eric2788/webmrec/internal/services/repair"
	"github.com/eric2788/webmrec/pkg/pipeline"
	"github.com/sirupsen/logrus"
)

type RepairProcessor struct {
	engine *repair.Engine
}

// NewRepair fixes duration and cues of the recording when the engine is
// initialized and passes it through untouched otherwise.
func NewRepair(engine *repair.Engine) *pipeline.ProcessorInfo[*Recording] {
	return pipeline.NewProcessorInfo(
		"webm-repair",
		pipeline.Processor[*Recording](&RepairProcessor{engine: engine}),
		pipeline.WithoutTimeout[*Recording](),
	)
}

func (p *RepairProcessor) Open(ctx context.Context, log *logrus.Entry) error {
	if p.engine == nil {
		return errors.New("no repair engine")
	}
	return nil
}

func (p *RepairProcessor) Process(ctx context.Context, log *logrus.Entry, rec *Recording) (*Recording, error) {
	if !p.engine.Initialized() {
		log.Debugf("repair engine unavailable, keeping raw %s", rec.Name)
		return rec, nil
	}
	fixed, err := p.engine.Repair(ctx, rec.Blob)
	if err != nil {
		return rec, err
	}
	next := *rec
	next.Blob = fixed
	next.Repaired = true
	return &next, nil
}

func (p *RepairProcessor) Close() error {
	return nil
}
