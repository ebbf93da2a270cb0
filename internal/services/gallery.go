package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"pottery-gallery-backend/internal/models"
	"pottery-gallery-backend/internal/realtime"
	"pottery-gallery-backend/internal/storage"
	"pottery-gallery-backend/internal/transcoder"
)

// ErrPayloadTooLarge marks uploads over the configured ceiling; handlers
// map it to 413.
var ErrPayloadTooLarge = errors.New("file exceeds the maximum upload size")

// MetadataStore is the subset of the database client the gallery needs.
type MetadataStore interface {
	ListFiles() ([]models.FileRecord, error)
	ListFilenames() ([]string, error)
	MaxDisplayOrder() (int64, error)
	InsertFile(*models.FileRecord) error
	UpdateDisplayOrder(id uuid.UUID, order int) error
	DeleteFile(id uuid.UUID) error
}

// GalleryService orchestrates transcoder, object store, and metadata store
// for the upload, delete, reorder, and list operations.
type GalleryService struct {
	store          MetadataStore
	objects        storage.Storage
	notifier       *realtime.Notifier
	maxUploadBytes int64
}

func NewGalleryService(store MetadataStore, objects storage.Storage, notifier *realtime.Notifier, maxUploadBytes int64) *GalleryService {
	return &GalleryService{
		store:          store,
		objects:        objects,
		notifier:       notifier,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload runs the full pipeline for one file: size check, transcode to
// JPEG, collision-safe filename derivation, object write, metadata insert.
// claimed carries the names already taken by earlier files of the same
// request batch and is extended with the name chosen here.
//
// The two writes are not transactional: if the metadata insert fails after
// the object write, the object is orphaned until the reconciler collects it.
func (s *GalleryService) Upload(ctx context.Context, originalFilename string, payload []byte, claimed map[string]bool) (*models.FileRecord, error) {
	if int64(len(payload)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w (%d bytes, limit %d)", ErrPayloadTooLarge, len(payload), s.maxUploadBytes)
	}

	existing, err := s.store.ListFilenames()
	if err != nil {
		return nil, fmt.Errorf("failed to check existing filenames: %w", err)
	}
	taken := make(map[string]bool, len(existing)+len(claimed))
	for _, name := range existing {
		taken[name] = true
	}
	for name := range claimed {
		taken[name] = true
	}

	result, err := transcoder.Transcode(payload)
	if err != nil {
		return nil, friendlyError(err)
	}

	filename := deriveFilename(originalFilename, taken, time.Now())
	claimed[filename] = true

	if err := s.objects.Upload(ctx, filename, result.Data, transcoder.ContentType); err != nil {
		return nil, friendlyError(err)
	}

	maxOrder, err := s.store.MaxDisplayOrder()
	if err != nil {
		return nil, err
	}

	record := &models.FileRecord{
		ID:           uuid.New(),
		Filename:     filename,
		URL:          s.objects.PublicURL(filename),
		Size:         int64(len(result.Data)),
		ContentType:  sql.NullString{String: transcoder.ContentType, Valid: true},
		UploadedAt:   time.Now().UTC(),
		DisplayOrder: sql.NullInt64{Int64: maxOrder + 1, Valid: true},
	}

	if err := s.store.InsertFile(record); err != nil {
		// The object is already written; this leaves an orphaned object
		// for the reconciler.
		return nil, fmt.Errorf("file stored but metadata insert failed: %w", err)
	}

	if err := s.notifier.GalleryUpdated("upload"); err != nil {
		log.Printf("Warning: failed to publish gallery update: %v", err)
	}

	return record, nil
}

// Delete removes the object first, then the row. Object-delete failure
// keeps the row; row-delete failure after a successful object delete leaves
// an orphaned row, surfaced later by the reconciler.
func (s *GalleryService) Delete(ctx context.Context, id uuid.UUID, filename string) error {
	if err := s.objects.Delete(ctx, filename); err != nil {
		return fmt.Errorf("failed to delete stored file: %w", err)
	}

	if err := s.store.DeleteFile(id); err != nil {
		return fmt.Errorf("file removed from storage but metadata delete failed: %w", err)
	}

	if err := s.notifier.GalleryUpdated("delete"); err != nil {
		log.Printf("Warning: failed to publish gallery update: %v", err)
	}

	return nil
}

// Reorder persists each submitted rank one row at a time. The first failure
// aborts and leaves earlier updates committed. Unknown or malformed ids
// update nothing and are not errors.
func (s *GalleryService) Reorder(entries []models.ReorderEntry) error {
	for _, entry := range entries {
		id, err := uuid.Parse(entry.ID)
		if err != nil {
			continue
		}
		if err := s.store.UpdateDisplayOrder(id, entry.Order); err != nil {
			return err
		}
	}

	if err := s.notifier.GalleryUpdated("reorder"); err != nil {
		log.Printf("Warning: failed to publish gallery update: %v", err)
	}

	return nil
}

// List returns the ordered gallery. Read failures degrade to an empty list
// so the page always renders.
func (s *GalleryService) List() []models.FileRecord {
	files, err := s.store.ListFiles()
	if err != nil {
		log.Printf("Warning: failed to read gallery: %v", err)
		return []models.FileRecord{}
	}
	if files == nil {
		files = []models.FileRecord{}
	}
	return files
}

// deriveFilename strips the original extension, appends .jpg, and on
// collision with a taken name inserts a millisecond timestamp before the
// extension, bumping the timestamp until the candidate is free so repeated
// collisions within one millisecond still get distinct names. The taken set
// comes from a plain read, so two concurrent uploads of the same name can
// still race; that window is accepted.
func deriveFilename(original string, taken map[string]bool, now time.Time) string {
	base := strings.TrimSuffix(original, filepath.Ext(original))
	if base == "" {
		base = "upload"
	}
	name := base + ".jpg"
	if !taken[name] {
		return name
	}
	for ms := now.UnixMilli(); ; ms++ {
		candidate := fmt.Sprintf("%s-%d.jpg", base, ms)
		if !taken[candidate] {
			return candidate
		}
	}
}

// friendlyError remaps allocation failures from oversized or decompression-
// bomb images to a message the admin page can show; other errors surface
// their own description.
func friendlyError(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "memory") {
		return errors.New("image is too large or complex to process")
	}
	return err
}
