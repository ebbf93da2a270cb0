package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"pottery-gallery-backend/internal/models"
	"pottery-gallery-backend/internal/services"
)

type GalleryHandler struct {
	service *services.GalleryService
}

func NewGalleryHandler(service *services.GalleryService) *GalleryHandler {
	return &GalleryHandler{
		service: service,
	}
}

// GetGallery godoc
// @Summary     List gallery images
// @Description Returns every stored image ordered for display: ranked images first by display order, unranked images last, newest first within ties. Read failures degrade to an empty gallery rather than an error page.
// @Tags        gallery
// @Accept      json
// @Produce     json
// @Success     200 {object} models.GalleryResponse
// @Router      / [get]
func (h *GalleryHandler) GetGallery(c *gin.Context) {
	files := h.service.List()

	fileResponses := make([]models.FileResponse, len(files))
	for i, file := range files {
		fileResponses[i] = models.NewFileResponse(file)
	}

	c.JSON(http.StatusOK, models.GalleryResponse{Files: fileResponses})
}
