package download

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/eric2788/webmrec/internal/services/sink"
	"github.com/eric2788/webmrec/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("controller", "download")

type Controller struct {
	link *sink.Link
}

func NewController(app *fiber.App, link *sink.Link) *Controller {
	dc := &Controller{link: link}
	app.Get("/download", dc.download)
	return dc
}

// @Summary Download a recording
// @Description Download a recording delivered as a temporary link. The link works once.
// @Tags download
// @Produce video/webm
// @Param token query string true "Signed download token"
// @Success 200 {file} binary "Recording"
// @Failure 400 {string} string "Missing token"
// @Failure 403 {string} string "Invalid token"
// @Failure 404 {string} string "Link used or expired"
// @Router /download [get]
func (d *Controller) download(ctx fiber.Ctx) error {
	token := ctx.Query("token", "")
	if token == "" {
		return fiber.ErrBadRequest
	}
	blob, fileName, err := d.link.Take(token)
	if errors.Is(err, sink.ErrLinkNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	} else if err != nil {
		logger.Warnf("rejected download: %v", err)
		return fiber.ErrForbidden
	}
	ctx.Set(fiber.HeaderContentType, blob.Type)
	ctx.Set(fiber.HeaderContentDisposition, contentDisposition(fileName))
	logger.Infof("serving %s (%d bytes)", fileName, blob.Size())
	return ctx.Send(blob.Data)
}

func contentDisposition(fileName string) string {
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, utils.AsciiFallback(fileName), url.PathEscape(fileName))
}
