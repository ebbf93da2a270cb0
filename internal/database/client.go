package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"pottery-gallery-backend/internal/models"
)

// displayOrderSentinel sorts rows with no display_order after every
// explicitly ranked row.
const displayOrderSentinel = 2147483647

type Client struct {
	db *sql.DB
}

func NewClient(connectionString string) (*Client, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db}, nil
}

// ListFiles returns every file record ordered for display: ranked rows first
// by display_order, unranked rows last, newest-first within ties. Deployments
// whose schema predates the display_order column fall back to upload time.
func (c *Client) ListFiles() ([]models.FileRecord, error) {
	files, err := c.queryFiles(fmt.Sprintf(`
		SELECT id, filename, url, size, content_type, uploaded_at, display_order
		FROM files
		ORDER BY COALESCE(display_order, %d) ASC, uploaded_at DESC
	`, displayOrderSentinel))
	if err == nil {
		return files, nil
	}
	if !IsUndefinedColumn(err) {
		return nil, err
	}

	return c.queryFilesWithoutOrder()
}

func (c *Client) queryFilesWithoutOrder() ([]models.FileRecord, error) {
	rows, err := c.db.Query(`
		SELECT id, filename, url, size, content_type, uploaded_at
		FROM files
		ORDER BY uploaded_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []models.FileRecord
	for rows.Next() {
		var file models.FileRecord
		if err := rows.Scan(
			&file.ID, &file.Filename, &file.URL, &file.Size,
			&file.ContentType, &file.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

func (c *Client) queryFiles(query string) ([]models.FileRecord, error) {
	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []models.FileRecord
	for rows.Next() {
		var file models.FileRecord
		if err := rows.Scan(
			&file.ID, &file.Filename, &file.URL, &file.Size,
			&file.ContentType, &file.UploadedAt, &file.DisplayOrder,
		); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

// ListFilenames returns the set of filenames currently recorded. The upload
// pipeline uses it for collision avoidance; the check is read-then-decide,
// not transactional against concurrent uploads.
func (c *Client) ListFilenames() ([]string, error) {
	rows, err := c.db.Query(`SELECT filename FROM files`)
	if err != nil {
		return nil, fmt.Errorf("failed to list filenames: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan filename: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// MaxDisplayOrder returns the highest rank currently assigned, 0 when no row
// is ranked or the column does not exist yet.
func (c *Client) MaxDisplayOrder() (int64, error) {
	var max sql.NullInt64
	err := c.db.QueryRow(`SELECT MAX(display_order) FROM files`).Scan(&max)
	if err != nil {
		if IsUndefinedColumn(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get max display order: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

func (c *Client) InsertFile(file *models.FileRecord) error {
	_, err := c.db.Exec(`
		INSERT INTO files (id, filename, url, size, content_type, uploaded_at, display_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, file.ID, file.Filename, file.URL, file.Size, file.ContentType,
		file.UploadedAt, file.DisplayOrder)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

// UpdateDisplayOrder sets one record's rank. Unknown ids update zero rows
// and are not an error.
func (c *Client) UpdateDisplayOrder(id uuid.UUID, order int) error {
	_, err := c.db.Exec(`
		UPDATE files
		SET display_order = $1
		WHERE id = $2
	`, order, id)
	if err != nil {
		return fmt.Errorf("failed to update display order: %w", err)
	}
	return nil
}

func (c *Client) DeleteFile(id uuid.UUID) error {
	_, err := c.db.Exec(`
		DELETE FROM files
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// IsUndefinedColumn reports whether err is Postgres "undefined_column"
// (42703), i.e. the schema predates the display_order migration.
func IsUndefinedColumn(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42703"
	}
	return false
}
