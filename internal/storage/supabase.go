package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"
)

// listPageSize is the page length used when walking the bucket; Supabase
// caps list responses, so List pages until a short page arrives.
const listPageSize = 1000

// supabaseAPI is the slice of the storage-go client used here, split out so
// tests can stand in for the remote API.
type supabaseAPI interface {
	UploadFile(bucketID, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	RemoveFile(bucketID string, paths []string) ([]storage_go.FileUploadResponse, error)
	ListFiles(bucketID, queryPath string, options storage_go.FileSearchOptions) ([]storage_go.FileObject, error)
}

type SupabaseStorage struct {
	client     supabaseAPI
	bucket     string
	publicBase string
}

func NewSupabaseStorage(supabaseURL, serviceKey, bucket, publicBase string) (*SupabaseStorage, error) {
	baseURL := strings.TrimRight(supabaseURL, "/")
	client := storage_go.NewClient(baseURL+"/storage/v1", serviceKey, nil)

	return &SupabaseStorage{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

func (s *SupabaseStorage) Upload(_ context.Context, key string, data []byte, contentType string) error {
	upsert := true
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

// Delete removes the object at key. An object the provider no longer has
// (e.g. removed manually from the bucket) already satisfies the contract,
// so its row can still be deleted.
func (s *SupabaseStorage) Delete(_ context.Context, key string) error {
	_, err := s.client.RemoveFile(s.bucket, []string{key})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *SupabaseStorage) List(_ context.Context) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for offset := 0; ; offset += listPageSize {
		page, err := s.client.ListFiles(s.bucket, "", storage_go.FileSearchOptions{
			Limit:  listPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}

		for _, file := range page {
			// Supabase reports timestamps as strings; an unparseable one is
			// treated as brand new so the reconciler never deletes it early.
			created, err := time.Parse(time.RFC3339, file.CreatedAt)
			if err != nil {
				created = time.Now()
			}
			objects = append(objects, ObjectInfo{Key: file.Name, LastModified: created})
		}

		if len(page) < listPageSize {
			return objects, nil
		}
	}
}

func (s *SupabaseStorage) PublicURL(key string) string {
	return s.publicBase + "/" + key
}

// isNotFound reports whether the provider rejected the call because the
// object does not exist.
func isNotFound(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
