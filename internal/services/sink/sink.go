// Package sink hands finished recordings to the user as "<name>.webm".
package sink

import (
	"context"

	"github.com/eric2788/webmrec/internal/media"
	"github.com/eric2788/webmrec/internal/modules/config"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("service", "sink")

// Sink delivers a blob under name and reports where it can be fetched.
// Transient resources allocated during delivery never outlive the call.
type Sink interface {
	Deliver(ctx context.Context, blob *media.Blob, name string) (string, error)
}

func FileName(name string) string {
	return name + "." + media.ExtWebM
}

// Select picks the configured sink.
func Select(cfg *config.Config, file *File, link *Link) Sink {
	if cfg.Sink == config.SinkLink {
		logger.Info("recordings will be delivered as temporary download links")
		return link
	}
	logger.Infof("recordings will be delivered into %s", cfg.OutputDir)
	return file
}
