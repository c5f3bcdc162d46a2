package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/eric2788/webmrec/internal/media"
	"github.com/eric2788/webmrec/internal/modules/config"
	"github.com/eric2788/webmrec/internal/services/stream"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"go.uber.org/fx"
)

var logger = logrus.WithField("service", "source")

var ErrInvalidURL = fmt.Errorf("source url must be an absolute http(s) url")

// Service opens remote webm sources.
type Service struct {
	client    *resty.Client
	st        *stream.Service
	rateLimit int
	ctx       context.Context
}

func NewService(lc fx.Lifecycle, st *stream.Service, cfg *config.Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.StopHook(cancel))
	return newService(ctx, st, cfg.SourceRateLimit)
}

func newService(ctx context.Context, st *stream.Service, rateLimit int) *Service {
	return &Service{
		client: resty.New().
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
			SetHeader("Accept", "video/webm, */*").
			SetHeader("User-Agent", "webmrec"),
		st:        st,
		rateLimit: rateLimit,
		ctx:       ctx,
	}
}

// Open validates rawURL and returns a paused source for it.
func (s *Service) Open(rawURL string) (*Remote, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}
	return &Remote{
		Element:   media.NewElement(),
		url:       u.String(),
		client:    s.client,
		st:        s.st,
		rateLimit: s.rateLimit,
		ctx:       s.ctx,
		logger:    logger.WithField("url", u.Redacted()),
	}, nil
}
