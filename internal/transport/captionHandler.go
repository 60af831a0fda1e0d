package transport

import (
	"net/http"

	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/gin-gonic/gin"
)

func (h *CaptionHandler) CreateSession(c *gin.Context) {
	id, err := h.service.CreateSession()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entity.SessionResponse{SessionID: id})
}

func (h *CaptionHandler) DeleteSession(c *gin.Context) {
	if err := h.service.DeleteSession(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
}

func (h *CaptionHandler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}

	resp, err := h.service.UploadImage(c.Request.Context(), c.Param("id"), file)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CaptionHandler) RemoveImage(c *gin.Context) {
	if err := h.service.RemoveImage(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image removed"})
}

func (h *CaptionHandler) Thumbnail(c *gin.Context) {
	data, err := h.service.Thumbnail(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, entity.FormatJPEG.ContentType(), data)
}

func (h *CaptionHandler) SetStyle(c *gin.Context) {
	style := entity.DefaultTextStyle()
	if err := c.ShouldBindJSON(&style); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.SetStyle(c.Param("id"), style); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, style)
}

func (h *CaptionHandler) AddFilter(c *gin.Context) {
	var req entity.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied, err := h.service.AddFilter(c.Param("id"), req.Kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": req.Kind, "applied": applied})
}

func (h *CaptionHandler) ClearFilters(c *gin.Context) {
	if err := h.service.ClearFilters(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Filters cleared"})
}

func (h *CaptionHandler) SetFrame(c *gin.Context) {
	var frame entity.Frame
	if err := c.ShouldBindJSON(&frame); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.SetFrame(c.Param("id"), frame); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, frame)
}

func (h *CaptionHandler) Preview(c *gin.Context) {
	data, err := h.service.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, entity.FormatPNG.ContentType(), data)
}

func (h *CaptionHandler) GetImage(c *gin.Context) {
	image, err := h.service.GetImage(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response := entity.ImageResponse{
		ID:     image.ID,
		Status: image.Status,
		Width:  image.Width,
		Height: image.Height,
	}
	if image.Status == entity.StatusCompleted {
		response.Outputs = image.Outputs
	}
	c.JSON(http.StatusOK, response)
}
