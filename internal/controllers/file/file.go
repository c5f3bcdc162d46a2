package file

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/eric2788/webmrec/internal/modules/config"
	"github.com/eric2788/webmrec/internal/services/file"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("controller", "file")

const defaultPresignTTL = time.Hour

type Controller struct {
	fileSvc   *file.Service
	publicURL string
}

type PresignedURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

func NewController(app *fiber.App, fileSvc *file.Service, cfg *config.Config) *Controller {
	fc := &Controller{fileSvc: fileSvc, publicURL: cfg.PublicURL}
	files := app.Group("/files")

	files.Get("/", fc.listFiles)
	files.Get("/tempdownload", fc.presignedDownload)
	files.Get("/:name", fc.downloadFile)
	files.Post("/:name/presigned", fc.createPresignedURL)
	files.Delete("/:name", fc.deleteFile)

	return fc
}

// @Summary List recordings
// @Description List the webm recordings saved in the output directory, newest first
// @Tags files
// @Security BearerAuth
// @Produce json
// @Success 200 {array} file.Entry "Recordings"
// @Router /files [get]
func (c *Controller) listFiles(ctx fiber.Ctx) error {
	files, err := c.fileSvc.List()
	if err != nil {
		logger.Warnf("error listing recordings: %v", err)
		return c.parseFiberError(err)
	}
	return ctx.JSON(files)
}

// @Summary Download a recording
// @Tags files
// @Security BearerAuth
// @Produce video/webm
// @Param name path string true "File name"
// @Success 200 {file} binary "Recording"
// @Failure 403 {string} string "Forbidden"
// @Failure 404 {string} string "Not found"
// @Router /files/{name} [get]
func (c *Controller) downloadFile(ctx fiber.Ctx) error {
	fullPath, err := c.fileSvc.Resolve(ctx.Params("name"))
	if err != nil {
		logger.Warnf("error resolving %s: %v", ctx.Params("name"), err)
		return c.parseFiberError(err)
	}
	return c.send(ctx, fullPath)
}

// @Summary Presigned download
// @Description Download a recording using a presigned token (no auth required)
// @Tags files
// @Produce video/webm
// @Param presigned query string true "Presigned URL token"
// @Success 200 {file} binary "Recording"
// @Failure 400 {string} string "Bad request"
// @Failure 403 {string} string "Forbidden"
// @Router /files/tempdownload [get]
func (c *Controller) presignedDownload(ctx fiber.Ctx) error {
	token := ctx.Query("presigned", "")
	if token == "" {
		return fiber.ErrBadRequest
	}
	fullPath, err := c.fileSvc.ResolveToken(token)
	if err != nil {
		logger.Warnf("error resolving presigned token: %v", err)
		return c.parseFiberError(err)
	}
	return c.send(ctx, fullPath)
}

// @Summary Create presigned URL
// @Description Create a presigned URL for downloading a recording. Accepts optional "ttl" query in seconds (default 3600).
// @Tags files
// @Security BearerAuth
// @Produce json
// @Param name path string true "File name"
// @Param ttl query int false "TTL in seconds"
// @Success 201 {object} PresignedURLResponse "Presigned URL response"
// @Failure 400 {string} string "Bad request"
// @Failure 404 {string} string "Not found"
// @Router /files/{name}/presigned [post]
func (c *Controller) createPresignedURL(ctx fiber.Ctx) error {
	ttl := defaultPresignTTL
	if ttlStr := ctx.Query("ttl", ""); ttlStr != "" {
		n, err := strconv.ParseInt(ttlStr, 10, 64)
		if err != nil || n <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid ttl")
		}
		ttl = time.Duration(n) * time.Second
	}

	token, err := c.fileSvc.Presign(ctx.Params("name"), ttl)
	if err != nil {
		logger.Warnf("error creating presigned token for %s: %v", ctx.Params("name"), err)
		return c.parseFiberError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(&PresignedURLResponse{
		URL:       c.publicURL + "/files/tempdownload?presigned=" + token,
		ExpiresIn: int(ttl.Seconds()),
	})
}

// @Summary Delete a recording
// @Tags files
// @Security BearerAuth
// @Param name path string true "File name"
// @Success 204 "No Content"
// @Failure 404 {string} string "Not found"
// @Router /files/{name} [delete]
func (c *Controller) deleteFile(ctx fiber.Ctx) error {
	if err := c.fileSvc.Delete(ctx.Params("name")); err != nil {
		logger.Warnf("error deleting %s: %v", ctx.Params("name"), err)
		return c.parseFiberError(err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *Controller) send(ctx fiber.Ctx, fullPath string) error {
	ctx.Attachment(fullPath) // SendFile does not set the filename by itself
	return ctx.SendFile(fullPath, fiber.SendFile{
		ByteRange: true,
	})
}

func (c *Controller) parseFiberError(err error) error {
	switch {
	case errors.Is(err, file.ErrFileNotFound), os.IsNotExist(err):
		return fiber.NewError(fiber.StatusNotFound, "recording not found")
	case errors.Is(err, file.ErrAccessDenied), os.IsPermission(err):
		return fiber.NewError(fiber.StatusForbidden, "access to this path is denied")
	case errors.Is(err, file.ErrInvalidFilePath), errors.Is(err, file.ErrNotRecording):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, file.ErrIsDirectory):
		return fiber.NewError(fiber.StatusBadRequest, "path is a directory")
	default:
		return fiber.ErrInternalServerError
	}
}
