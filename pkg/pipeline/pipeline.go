package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("pkg", "pipeline")

type Pipe[T any] struct {
	processors []*ProcessorInfo[T]
}

func New[T any](processors ...*ProcessorInfo[T]) *Pipe[T] {
	return &Pipe[T]{
		processors: processors,
	}
}

func (p *Pipe[T]) Process(ctx context.Context, item T) (T, error) {
	var currentItem T = item
	for _, processor := range p.processors {
		select {
		case <-ctx.Done():
			return currentItem, ctx.Err()
		default:
			var err error
			currentItem, err = p.process(ctx, processor, currentItem)
			if err != nil {
				return currentItem, err
			}
		}
	}
	return currentItem, nil
}

func (p *Pipe[T]) Open(ctx context.Context) error {
	for _, processor := range p.processors {
		if err := processor.processor.Open(ctx, processor.logger); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipe[T]) Close() {
	for _, processor := range p.processors {
		if err := processor.close(); err != nil {
			processor.logger.Errorf("error closing processor: %v", err)
		}
	}
}

func (p *Pipe[T]) process(ctx context.Context, tp *ProcessorInfo[T], item T) (T, error) {
	start := time.Now()
	c, cancel := ctx, context.CancelFunc(func() {})
	if tp.timeout > 0 {
		c, cancel = context.WithTimeout(ctx, tp.timeout)
	}
	defer cancel()
	defer func() {
		tp.logger.Debugf("processor executed: %vms", time.Since(start).Milliseconds())
	}()
	next, err := tp.process(c, item)
	if err != nil {
		return item, err
	}
	return next, nil
}
