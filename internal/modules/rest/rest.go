package rest

import (
	"context"
	"slices"
	"time"

	"github.com/eric2788/webmrec/internal/modules/config"

	"github.com/sirupsen/logrus"
	"go.uber.org/fx"

	jwtware "github.com/gofiber/contrib/v3/jwt"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	logging "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

var logger = logrus.WithField("module", "rest")

// publicPaths carry their own signed tokens and skip the login guard.
var publicPaths = []string{"/login", "/download", "/files/tempdownload", "/health"}

// New builds the http app. Routes are registered by the controllers.
func New(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "webmrec",
		BodyLimit: 1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logging.New(logging.Config{
		Format: "| ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
		Stream: logger.WriterLevel(logrus.DebugLevel),
	}))

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if cfg.Username != "" && cfg.PasswordHash != "" {
		logger.Info("JWT authentication enabled for REST API")
		app.Post("/login",
			limiter.New(limiter.Config{Max: 10, Expiration: 1 * time.Minute}),
			loginHandler(cfg),
		)
		app.Use(jwtware.New(jwtware.Config{
			Next: func(c fiber.Ctx) bool {
				return slices.Contains(publicPaths, c.Path())
			},
			SigningKey: jwtware.SigningKey{Key: []byte(cfg.JwtSecret)},
		}))
	} else {
		logger.Warn("USERNAME or PASSWORD not set, REST API is not protected")
	}

	return app
}

func provider(ls fx.Lifecycle, cfg *config.Config) *fiber.App {
	app := New(cfg)

	ls.Append(
		fx.StartStopHook(
			func(ctx context.Context) error {
				addr := ":" + cfg.Port
				logger.Infof("starting http server on %s", addr)
				go func() {
					if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
						logger.Errorf("http server error: %v", err)
					}
				}()
				return nil
			},
			func(ctx context.Context) error {
				logger.Info("stopping http server")
				return app.ShutdownWithContext(ctx)
			},
		),
	)

	return app
}

var Module = fx.Module("rest", fx.Provide(provider))
