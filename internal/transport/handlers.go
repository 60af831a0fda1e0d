package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/ds124wfegd/memecaption/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CaptionHandler struct {
	service service.CaptionService
}

func NewCaptionHandler(service service.CaptionService) *CaptionHandler {
	return &CaptionHandler{service: service}
}

type ExportHandler struct {
	service service.ExportService
}

func NewExportHandler(service service.ExportService) *ExportHandler {
	return &ExportHandler{service: service}
}

func statusFor(err error) int {
	var decodeErr *entity.DecodeError
	var unsupported *entity.UnsupportedFormatError

	switch {
	case errors.Is(err, entity.ErrSessionNotFound), errors.Is(err, entity.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrNoImage), errors.Is(err, entity.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, entity.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &decodeErr), errors.As(err, &unsupported),
		errors.Is(err, entity.ErrInvalidStyle), errors.Is(err, entity.ErrInvalidQuality),
		errors.Is(err, entity.ErrInvalidSize), errors.Is(err, entity.ErrImageTooLarge),
		errors.Is(err, entity.ErrUnsupportedUpload):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Request error")
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
