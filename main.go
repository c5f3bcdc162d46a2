package main

import (
	"time"

	"github.com/eric2788/webmrec/internal/controllers/download"
	"github.com/eric2788/webmrec/internal/controllers/file"
	"github.com/eric2788/webmrec/internal/controllers/session"
	"github.com/eric2788/webmrec/internal/modules/config"
	"github.com/eric2788/webmrec/internal/modules/rest"
	f "github.com/eric2788/webmrec/internal/services/file"
	"github.com/eric2788/webmrec/internal/services/recorder"
	"github.com/eric2788/webmrec/internal/services/repair"
	"github.com/eric2788/webmrec/internal/services/sink"
	"github.com/eric2788/webmrec/internal/services/source"
	"github.com/eric2788/webmrec/internal/services/stream"
	"go.uber.org/fx"
)

// services lists every provider except the http app.
var services = fx.Options(
	fx.Provide(repair.NewService),
	fx.Provide(stream.NewService),
	fx.Provide(source.NewService),
	fx.Provide(sink.NewFileService),
	fx.Provide(sink.NewLinkService),
	fx.Provide(sink.Select),
	fx.Provide(recorder.NewFinalizerService),
	fx.Provide(recorder.NewService),
	fx.Provide(f.NewService),
)

var controllers = fx.Options(
	fx.Invoke(session.NewController),
	fx.Invoke(download.NewController),
	fx.Invoke(file.NewController),
)

func main() {

	app := fx.New(
		config.Module,
		rest.Module,

		services,
		controllers,

		fx.StopTimeout(1*time.Minute),
	)

	app.Run()
}
