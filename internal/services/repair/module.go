package repair

import (
	"github.com/eric2788/webmrec/internal/modules/config"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/fx"
)

func NewService(lc fx.Lifecycle, cfg *config.Config) *Engine {
	e := NewEngine(Options{
		WorkDir:    cfg.RepairWorkDir,
		FFmpegPath: cfg.FFmpegPath,
	})
	lc.Append(fx.StopHook(func() error {
		e.mu.RLock()
		fs := e.fs
		e.mu.RUnlock()
		if fs == nil {
			return nil
		}
		return util.RemoveAll(fs, "jobs")
	}))
	return e
}
