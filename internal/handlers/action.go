package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"pottery-gallery-backend/internal/models"
	"pottery-gallery-backend/internal/services"
)

type ActionHandler struct {
	service        *services.GalleryService
	maxUploadBytes int64
}

func NewActionHandler(service *services.GalleryService, maxUploadBytes int64) *ActionHandler {
	return &ActionHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// HandleAction godoc
// @Summary     Admin gallery action
// @Description Multipart endpoint dispatched on the "intent" field: "upload" stores one or more image files, "delete" removes a record and its object, "reorder" persists a new display order. Any other intent is rejected.
// @Tags        admin
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       intent formData string true "One of: upload, delete, reorder"
// @Param       file formData file false "Image payload(s) for intent=upload"
// @Param       id formData string false "Record id for intent=delete"
// @Param       filename formData string false "Stored filename for intent=delete"
// @Param       order formData string false "JSON array of {id, order} for intent=reorder"
// @Success     200 {object} models.ActionResponse
// @Failure     400 {object} models.ActionResponse
// @Failure     413 {object} models.ActionResponse
// @Failure     500 {object} models.ActionResponse
// @Router      /upload [post]
func (h *ActionHandler) HandleAction(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		c.JSON(http.StatusBadRequest, models.ActionResponse{
			Success: false,
			Message: fmt.Sprintf("failed to parse form: %v", err),
		})
		return
	}

	switch c.PostForm("intent") {
	case "upload":
		h.upload(c)
	case "delete":
		h.delete(c)
	case "reorder":
		h.reorder(c)
	default:
		c.JSON(http.StatusBadRequest, models.ActionResponse{
			Success: false,
			Message: "Invalid action",
		})
	}
}

// upload runs the pipeline for every file part in the request. Each file is
// independent; the first failure is reported, earlier files stay stored.
func (h *ActionHandler) upload(c *gin.Context) {
	form := c.Request.MultipartForm
	var files []*multipart.FileHeader
	if form != nil {
		files = form.File["file"]
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, models.ActionResponse{
			Success: false,
			Message: "No file provided",
		})
		return
	}

	// Names claimed by earlier files in this request, so two identically
	// named parts in one batch get distinct stored names.
	claimed := make(map[string]bool)

	uploaded := 0
	for _, file := range files {
		// Reject on the declared part size before buffering the payload,
		// so an oversize body is never read into memory just to be refused.
		// The pipeline re-checks the actual byte count as a backstop.
		if file.Size > h.maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, models.ActionResponse{
				Success: false,
				Message: fmt.Sprintf("%s (%d bytes, limit %d)", services.ErrPayloadTooLarge, file.Size, h.maxUploadBytes),
			})
			return
		}

		payload, err := readFile(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ActionResponse{
				Success: false,
				Message: err.Error(),
			})
			return
		}

		if _, err := h.service.Upload(c.Request.Context(), file.Filename, payload, claimed); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, services.ErrPayloadTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			c.JSON(status, models.ActionResponse{
				Success: false,
				Message: err.Error(),
			})
			return
		}
		uploaded++
	}

	message := "File uploaded successfully"
	if uploaded > 1 {
		message = fmt.Sprintf("%d files uploaded successfully", uploaded)
	}
	c.JSON(http.StatusOK, models.ActionResponse{Success: true, Message: message})
}

func (h *ActionHandler) delete(c *gin.Context) {
	idStr := c.PostForm("id")
	filename := c.PostForm("filename")
	if idStr == "" || filename == "" {
		c.JSON(http.StatusBadRequest, models.ActionResponse{
			Success: false,
			Message: "Missing id or filename",
		})
		return
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ActionResponse{
			Success: false,
			Message: "Invalid id",
		})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, filename); err != nil {
		c.JSON(http.StatusInternalServerError, models.ActionResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.ActionResponse{Success: true, Message: "File deleted successfully"})
}

func (h *ActionHandler) reorder(c *gin.Context) {
	orderJSON := c.PostForm("order")
	if orderJSON == "" {
		c.JSON(http.StatusBadRequest, models.ActionResponse{
			Success: false,
			Message: "No order provided",
		})
		return
	}

	var entries []models.ReorderEntry
	if err := json.Unmarshal([]byte(orderJSON), &entries); err != nil {
		c.JSON(http.StatusBadRequest, models.ActionResponse{
			Success: false,
			Message: fmt.Sprintf("invalid order payload: %v", err),
		})
		return
	}
	if len(entries) == 0 {
		c.JSON(http.StatusBadRequest, models.ActionResponse{
			Success: false,
			Message: "No order provided",
		})
		return
	}

	if err := h.service.Reorder(entries); err != nil {
		c.JSON(http.StatusInternalServerError, models.ActionResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.ActionResponse{Success: true, Message: "Order updated successfully"})
}

func readFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	payload, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	return payload, nil
}
