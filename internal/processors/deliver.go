package processors

import (
	"context"
	"errors"

	"github.com/eric2788/webmrec/internal/services/sink"
	"github.com/eric2788/webmrec/pkg/pipeline"
	"github.com/sirupsen/logrus"
)

type DeliverProcessor struct {
	sink sink.Sink
}

func NewDeliver(s sink.Sink) *pipeline.ProcessorInfo[*Recording] {
	return pipeline.NewProcessorInfo(
		"deliver",
		pipeline.Processor[*Recording](&DeliverProcessor{sink: s}),
		pipeline.WithoutTimeout[*Recording](),
	)
}

func (p *DeliverProcessor) Open(ctx context.Context, log *logrus.Entry) error {
	if p.sink == nil {
		return errors.New("no sink to deliver to")
	}
	return nil
}

func (p *DeliverProcessor) Process(ctx context.Context, log *logrus.Entry, rec *Recording) (*Recording, error) {
	location, err := p.sink.Deliver(ctx, rec.Blob, rec.Name)
	if err != nil {
		return rec, err
	}
	next := *rec
	next.Location = location
	return &next, nil
}

func (p *DeliverProcessor) Close() error {
	return nil
}
