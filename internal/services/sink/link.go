package sink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/eric2788/webmrec/internal/media"
	"github.com/eric2788/webmrec/internal/modules/config"
	"github.com/eric2788/webmrec/pkg/signeddownload"
	"github.com/eric2788/webmrec/utils"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/fx"
)

var ErrLinkNotFound = errors.New("download link not found or expired")

type linkEntry struct {
	blob     *media.Blob
	fileName string
}

// Link keeps recordings in memory behind a signed, single use download URL.
// An entry is released on its first download or when it expires.
type Link struct {
	cache   *ttlcache.Cache[string, *linkEntry]
	signer  *signeddownload.Client
	baseURL string
	ttl     time.Duration
}

func NewLink(secret []byte, baseURL string, ttl time.Duration) *Link {
	if ttl <= 0 {
		ttl = signeddownload.DefaultExpireAfter
	}
	l := &Link{
		cache: ttlcache.New(
			ttlcache.WithTTL[string, *linkEntry](ttl),
			ttlcache.WithDisableTouchOnHit[string, *linkEntry](),
		),
		signer:  signeddownload.NewClient(secret),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		ttl:     ttl,
	}
	l.cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *linkEntry]) {
		if reason == ttlcache.EvictionReasonExpired {
			logger.WithField("link", item.Key()).Infof("download link for %s expired", item.Value().fileName)
		}
	})
	return l
}

func NewLinkService(lc fx.Lifecycle, cfg *config.Config) *Link {
	l := NewLink([]byte(cfg.JwtSecret), cfg.PublicURL, cfg.DownloadTTL)
	lc.Append(fx.StartStopHook(
		func() {
			go l.cache.Start()
		},
		func() {
			l.cache.Stop()
			l.cache.DeleteAll()
		},
	))
	return l
}

func (l *Link) Deliver(ctx context.Context, blob *media.Blob, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := utils.RandomID()
	fileName := FileName(utils.SanitizeFilename(name))
	l.cache.Set(id, &linkEntry{blob: blob, fileName: fileName}, ttlcache.DefaultTTL)

	token, err := l.signer.GenerateDownloadToken(id, fileName, time.Now().Add(l.ttl))
	if err != nil {
		l.cache.Delete(id)
		return "", fmt.Errorf("cannot sign download link: %w", err)
	}
	link := fmt.Sprintf("%s/download?token=%s", l.baseURL, url.QueryEscape(token))
	logger.WithField("link", id).Infof("recording %s available at %s", fileName, link)
	return link, nil
}

// Take resolves token and releases the entry behind it.
func (l *Link) Take(token string) (*media.Blob, string, error) {
	claims, err := l.signer.ParseDownloadToken(token)
	if err != nil {
		return nil, "", fmt.Errorf("invalid download token: %w", err)
	}
	item, ok := l.cache.GetAndDelete(claims.LinkID)
	if !ok || item == nil {
		return nil, "", ErrLinkNotFound
	}
	return item.Value().blob, item.Value().fileName, nil
}

func (l *Link) Pending() int {
	return l.cache.Len()
}
