package transport

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/gin-gonic/gin"
)

// exportsRequest is either a multi-size export (sizes) or a batch of formats (formats).
type exportsRequest struct {
	Format  string        `json:"format"`
	Quality *float64      `json:"quality"`
	Sizes   []entity.Size `json:"sizes"`
	Formats []string      `json:"formats"`
}

// Export streams one rendered file as a download.
func (h *ExportHandler) Export(c *gin.Context) {
	quality, err := optionalFloat(c, "quality")
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", entity.ErrInvalidQuality, err))
		return
	}
	size, err := optionalSize(c)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.service.Export(c.Request.Context(), c.Param("id"), c.Query("format"), quality, size)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.Filename))
	c.Data(http.StatusOK, res.Format.ContentType(), res.Data)
}

func (h *ExportHandler) Exports(c *gin.Context) {
	var req exportsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		results []entity.ExportResult
		err     error
	)
	if len(req.Formats) > 0 {
		results, err = h.service.ExportFormats(c.Request.Context(), c.Param("id"), entity.ExportFormatsRequest{
			Formats: req.Formats,
			Quality: req.Quality,
		})
	} else {
		results, err = h.service.ExportSizes(c.Request.Context(), c.Param("id"), entity.ExportSizesRequest{
			Format:  req.Format,
			Quality: req.Quality,
			Sizes:   req.Sizes,
		})
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *ExportHandler) EnqueueExport(c *gin.Context) {
	var req entity.ExportSizesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	resp, err := h.service.EnqueueExport(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *ExportHandler) History(c *gin.Context) {
	imageID := c.Query("image_id")
	if imageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_id is required"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	records, err := h.service.History(c.Request.Context(), imageID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exports": records})
}

func optionalFloat(c *gin.Context, key string) (*float64, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalSize(c *gin.Context) (*entity.Size, error) {
	w, h := c.Query("width"), c.Query("height")
	if w == "" && h == "" {
		return nil, nil
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil {
		return nil, fmt.Errorf("%w: width and height must both be integers", entity.ErrInvalidSize)
	}
	return &entity.Size{Width: width, Height: height}, nil
}
