package models

import "time"

// ActionResponse is the body returned by every admin action
// (upload, delete, reorder), success or failure.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type GalleryResponse struct {
	Files []FileResponse `json:"files"`
}

type FileResponse struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
	DisplayOrder *int64    `json:"display_order,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// NewFileResponse flattens a FileRecord's nullable columns for JSON.
func NewFileResponse(rec FileRecord) FileResponse {
	resp := FileResponse{
		ID:         rec.ID.String(),
		Filename:   rec.Filename,
		URL:        rec.URL,
		Size:       rec.Size,
		UploadedAt: rec.UploadedAt,
	}
	if rec.ContentType.Valid {
		resp.ContentType = rec.ContentType.String
	}
	if rec.DisplayOrder.Valid {
		order := rec.DisplayOrder.Int64
		resp.DisplayOrder = &order
	}
	return resp
}
