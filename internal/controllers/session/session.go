package session

import (
	"errors"

	"github.com/eric2788/webmrec/internal/services/recorder"
	"github.com/eric2788/webmrec/internal/services/repair"
	"github.com/eric2788/webmrec/internal/services/source"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("controller", "session")

type Controller struct {
	service *recorder.Service
	engine  *repair.Engine
}

func NewController(app *fiber.App, service *recorder.Service, engine *repair.Engine) *Controller {
	sc := &Controller{service: service, engine: engine}
	sessions := app.Group("/sessions")
	sessions.Post("/", sc.createSession)
	sessions.Get("/", sc.listSessions)
	sessions.Get("/:id", sc.getSession)
	sessions.Post("/:id/start", sc.startRecording)
	sessions.Post("/:id/stop", sc.stopRecording)
	sessions.Post("/:id/play", sc.playSource)
	sessions.Post("/:id/pause", sc.pauseSource)
	sessions.Delete("/:id", sc.disposeSession)
	app.Get("/engine", sc.getEngine)
	return sc
}

// @Summary Create a recording session
// @Description Open a remote webm stream and record it. Auto sessions record while the source plays.
// @Tags sessions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateRequest true "Source url, output name and mode"
// @Success 201 {object} recorder.Stats "Created session"
// @Failure 400 {string} string "Invalid request"
// @Failure 429 {string} string "Too many sessions"
// @Router /sessions [post]
func (s *Controller) createSession(ctx fiber.Ctx) error {
	var req CreateRequest
	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.ErrBadRequest
	} else if req.Mode != "" && req.Mode != recorder.ModeAuto && req.Mode != recorder.ModeManual {
		return fiber.NewError(fiber.StatusBadRequest, "mode must be auto or manual")
	}
	session, err := s.service.Create(req.URL, req.Name, req.Mode)
	if err != nil {
		logger.Warnf("cannot create session for %q: %v", req.URL, err)
		return s.parseFiberError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(session.Stats())
}

// @Summary List recording sessions
// @Tags sessions
// @Security BearerAuth
// @Produce json
// @Success 200 {array} recorder.Stats "Sessions"
// @Router /sessions [get]
func (s *Controller) listSessions(ctx fiber.Ctx) error {
	return ctx.JSON(s.service.ListStats())
}

// @Summary Get a recording session
// @Tags sessions
// @Security BearerAuth
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} recorder.Stats "Session"
// @Failure 404 {string} string "Session not found"
// @Router /sessions/{id} [get]
func (s *Controller) getSession(ctx fiber.Ctx) error {
	stats, ok := s.service.GetStats(ctx.Params("id"))
	if !ok {
		return s.parseFiberError(recorder.ErrSessionNotFound)
	}
	return ctx.JSON(stats)
}

// @Summary Start recording
// @Description Ignored unless the session is bound and idle
// @Tags sessions
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 202 {object} recorder.Stats "Session"
// @Failure 404 {string} string "Session not found"
// @Router /sessions/{id}/start [post]
func (s *Controller) startRecording(ctx fiber.Ctx) error {
	return s.apply(ctx, s.service.Start)
}

// @Summary Stop recording
// @Description Ignored unless the session is recording. The recording is finalized in background.
// @Tags sessions
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 202 {object} recorder.Stats "Session"
// @Failure 404 {string} string "Session not found"
// @Router /sessions/{id}/stop [post]
func (s *Controller) stopRecording(ctx fiber.Ctx) error {
	return s.apply(ctx, s.service.Stop)
}

// @Summary Play the source
// @Tags sessions
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 202 {object} recorder.Stats "Session"
// @Failure 404 {string} string "Session not found"
// @Router /sessions/{id}/play [post]
func (s *Controller) playSource(ctx fiber.Ctx) error {
	return s.apply(ctx, s.service.Play)
}

// @Summary Pause the source
// @Tags sessions
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 202 {object} recorder.Stats "Session"
// @Failure 404 {string} string "Session not found"
// @Router /sessions/{id}/pause [post]
func (s *Controller) pauseSource(ctx fiber.Ctx) error {
	return s.apply(ctx, s.service.Pause)
}

// @Summary Dispose a session
// @Description A running recording is stopped and still delivered
// @Tags sessions
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 204 "No Content"
// @Failure 404 {string} string "Session not found"
// @Router /sessions/{id} [delete]
func (s *Controller) disposeSession(ctx fiber.Ctx) error {
	if err := s.service.Dispose(ctx.Params("id")); err != nil {
		return s.parseFiberError(err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// @Summary Repair engine status
// @Tags sessions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} EngineStatus "Engine status"
// @Router /engine [get]
func (s *Controller) getEngine(ctx fiber.Ctx) error {
	status := &EngineStatus{
		Initialized: s.engine.Initialized(),
		Loads:       s.engine.Loads(),
	}
	if ready := s.engine.Ready(); ready != nil {
		status.Loaded = ready.Loaded()
		status.Version = ready.Version()
		if err := ready.Err(); err != nil {
			status.Error = err.Error()
		}
	}
	return ctx.JSON(status)
}

func (s *Controller) apply(ctx fiber.Ctx, action func(id string) error) error {
	id := ctx.Params("id")
	if err := action(id); err != nil {
		return s.parseFiberError(err)
	}
	stats, ok := s.service.GetStats(id)
	if !ok {
		return s.parseFiberError(recorder.ErrSessionNotFound)
	}
	return ctx.Status(fiber.StatusAccepted).JSON(stats)
}

func (s *Controller) parseFiberError(err error) error {
	switch {
	case errors.Is(err, recorder.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, recorder.ErrMaxSessionsReached):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, recorder.ErrSourceNotControllable):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, source.ErrInvalidURL):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		logger.Errorf("unexpected error: %v", err)
		return fiber.ErrInternalServerError
	}
}
