package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// FileRecord is one row in the files table: metadata for a single stored
// gallery image. display_order is nullable - rows without it sort last.
type FileRecord struct {
	ID           uuid.UUID
	Filename     string
	URL          string
	Size         int64
	ContentType  sql.NullString
	UploadedAt   time.Time
	DisplayOrder sql.NullInt64
}
