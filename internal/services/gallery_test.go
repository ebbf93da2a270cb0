package services_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pottery-gallery-backend/internal/models"
	"pottery-gallery-backend/internal/realtime"
	"pottery-gallery-backend/internal/services"
	"pottery-gallery-backend/internal/storage"
)

// fakeStore is an in-memory MetadataStore.
type fakeStore struct {
	files     []models.FileRecord
	listErr   error
	insertErr error
	deleteErr error
	updateErr error

	updates []update
	deleted []uuid.UUID
	// failUpdateAt fails the Nth (1-based) UpdateDisplayOrder call.
	failUpdateAt int
}

type update struct {
	id    uuid.UUID
	order int
}

func (f *fakeStore) ListFiles() ([]models.FileRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files, nil
}

func (f *fakeStore) ListFilenames() ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	names := make([]string, 0, len(f.files))
	for _, file := range f.files {
		names = append(names, file.Filename)
	}
	return names, nil
}

func (f *fakeStore) MaxDisplayOrder() (int64, error) {
	var max int64
	for _, file := range f.files {
		if file.DisplayOrder.Valid && file.DisplayOrder.Int64 > max {
			max = file.DisplayOrder.Int64
		}
	}
	return max, nil
}

func (f *fakeStore) InsertFile(file *models.FileRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.files = append(f.files, *file)
	return nil
}

func (f *fakeStore) UpdateDisplayOrder(id uuid.UUID, order int) error {
	if f.failUpdateAt > 0 && len(f.updates)+1 == f.failUpdateAt {
		return errors.New("update failed")
	}
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, update{id: id, order: order})
	return nil
}

func (f *fakeStore) DeleteFile(id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeStorage is an in-memory object store.
type fakeStorage struct {
	objects   map[string][]byte
	modTimes  map[string]time.Time
	uploadErr error
	deleteErr error
	listErr   error
	removed   []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		objects:  make(map[string][]byte),
		modTimes: make(map[string]time.Time),
	}
}

func (f *fakeStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.objects[key] = data
	f.modTimes[key] = time.Now()
	return nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeStorage) List(_ context.Context) ([]storage.ObjectInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var infos []storage.ObjectInfo
	for key := range f.objects {
		infos = append(infos, storage.ObjectInfo{Key: key, LastModified: f.modTimes[key]})
	}
	return infos, nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return "https://img.example.com/" + key
}

func newService(store *fakeStore, objects *fakeStorage, maxBytes int64) *services.GalleryService {
	return services.NewGalleryService(store, objects, realtime.NewNotifier(nil), maxBytes)
}

func pngPayload(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		img.Set(0, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func existingRecord(filename string, order int64) models.FileRecord {
	rec := models.FileRecord{
		ID:         uuid.New(),
		Filename:   filename,
		URL:        "https://img.example.com/" + filename,
		Size:       100,
		UploadedAt: time.Now().UTC(),
	}
	if order > 0 {
		rec.DisplayOrder.Int64 = order
		rec.DisplayOrder.Valid = true
	}
	return rec
}

func TestUpload_StoresObjectAndRecord(t *testing.T) {
	store := &fakeStore{files: []models.FileRecord{existingRecord("bowl.jpg", 3)}}
	objects := newFakeStorage()
	svc := newService(store, objects, 25<<20)

	record, err := svc.Upload(context.Background(), "flower.png", pngPayload(t, 400, 300), map[string]bool{})
	require.NoError(t, err)

	assert.Equal(t, "flower.jpg", record.Filename)
	assert.Equal(t, "https://img.example.com/flower.jpg", record.URL)
	assert.Equal(t, "image/jpeg", record.ContentType.String)
	assert.EqualValues(t, 4, record.DisplayOrder.Int64)
	assert.EqualValues(t, len(objects.objects["flower.jpg"]), record.Size)

	require.Len(t, store.files, 2)
	assert.Equal(t, "flower.jpg", store.files[1].Filename)
}

func TestUpload_FirstRecordGetsOrderOne(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, newFakeStorage(), 25<<20)

	record, err := svc.Upload(context.Background(), "vase.png", pngPayload(t, 100, 100), map[string]bool{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, record.DisplayOrder.Int64)
}

func TestUpload_RejectsOversizePayloadWithoutSideEffects(t *testing.T) {
	store := &fakeStore{}
	objects := newFakeStorage()
	svc := newService(store, objects, 10)

	_, err := svc.Upload(context.Background(), "big.png", pngPayload(t, 100, 100), map[string]bool{})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrPayloadTooLarge)

	assert.Empty(t, objects.objects)
	assert.Empty(t, store.files)
}

func TestUpload_DecodeFailureWritesNothing(t *testing.T) {
	store := &fakeStore{}
	objects := newFakeStorage()
	svc := newService(store, objects, 25<<20)

	_, err := svc.Upload(context.Background(), "notes.txt", []byte("not an image"), map[string]bool{})
	require.Error(t, err)

	assert.Empty(t, objects.objects)
	assert.Empty(t, store.files)
}

func TestUpload_CollisionWithExistingNameGetsSuffix(t *testing.T) {
	store := &fakeStore{files: []models.FileRecord{existingRecord("flower.jpg", 1)}}
	objects := newFakeStorage()
	svc := newService(store, objects, 25<<20)

	record, err := svc.Upload(context.Background(), "flower.png", pngPayload(t, 100, 100), map[string]bool{})
	require.NoError(t, err)

	assert.NotEqual(t, "flower.jpg", record.Filename)
	assert.True(t, strings.HasPrefix(record.Filename, "flower-"))
	assert.True(t, strings.HasSuffix(record.Filename, ".jpg"))
}

func TestUpload_InBatchCollisionGetsDistinctNames(t *testing.T) {
	store := &fakeStore{}
	objects := newFakeStorage()
	svc := newService(store, objects, 25<<20)

	claimed := map[string]bool{}
	first, err := svc.Upload(context.Background(), "flower.png", pngPayload(t, 100, 100), claimed)
	require.NoError(t, err)
	second, err := svc.Upload(context.Background(), "flower.png", pngPayload(t, 100, 100), claimed)
	require.NoError(t, err)

	assert.Equal(t, "flower.jpg", first.Filename)
	assert.NotEqual(t, first.Filename, second.Filename)
	assert.True(t, strings.HasSuffix(second.Filename, ".jpg"))
}

func TestUpload_RepeatedBatchCollisionsStayDistinct(t *testing.T) {
	store := &fakeStore{}
	objects := newFakeStorage()
	svc := newService(store, objects, 25<<20)

	claimed := map[string]bool{}
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		record, err := svc.Upload(context.Background(), "flower.png", pngPayload(t, 100, 100), claimed)
		require.NoError(t, err)
		assert.False(t, seen[record.Filename], "name %q reused", record.Filename)
		seen[record.Filename] = true
	}

	// Three distinct objects, none overwritten.
	assert.Len(t, objects.objects, 3)
}

func TestUpload_InsertFailureLeavesOrphanedObject(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("insert failed")}
	objects := newFakeStorage()
	svc := newService(store, objects, 25<<20)

	_, err := svc.Upload(context.Background(), "flower.png", pngPayload(t, 100, 100), map[string]bool{})
	require.Error(t, err)

	// Object write happened before the failed insert; the reconciler owns it now.
	assert.Contains(t, objects.objects, "flower.jpg")
	assert.Empty(t, store.files)
}

func TestDelete_RemovesObjectThenRow(t *testing.T) {
	rec := existingRecord("bowl.jpg", 1)
	store := &fakeStore{files: []models.FileRecord{rec}}
	objects := newFakeStorage()
	objects.objects["bowl.jpg"] = []byte("data")
	svc := newService(store, objects, 25<<20)

	require.NoError(t, svc.Delete(context.Background(), rec.ID, "bowl.jpg"))

	assert.NotContains(t, objects.objects, "bowl.jpg")
	assert.Equal(t, []uuid.UUID{rec.ID}, store.deleted)
}

func TestDelete_MissingObjectStillRemovesRow(t *testing.T) {
	rec := existingRecord("bowl.jpg", 1)
	store := &fakeStore{files: []models.FileRecord{rec}}
	// Object already gone from storage; the backend treats that delete as a
	// success, so the orphaned row must still be removed.
	objects := newFakeStorage()
	svc := newService(store, objects, 25<<20)

	require.NoError(t, svc.Delete(context.Background(), rec.ID, "bowl.jpg"))
	assert.Equal(t, []uuid.UUID{rec.ID}, store.deleted)
}

func TestDelete_ObjectFailureRetainsRow(t *testing.T) {
	rec := existingRecord("bowl.jpg", 1)
	store := &fakeStore{files: []models.FileRecord{rec}}
	objects := newFakeStorage()
	objects.deleteErr = errors.New("storage unavailable")
	svc := newService(store, objects, 25<<20)

	err := svc.Delete(context.Background(), rec.ID, "bowl.jpg")
	require.Error(t, err)
	assert.Empty(t, store.deleted)
}

func TestDelete_RowFailureAfterObjectDelete(t *testing.T) {
	rec := existingRecord("bowl.jpg", 1)
	store := &fakeStore{files: []models.FileRecord{rec}, deleteErr: errors.New("db down")}
	objects := newFakeStorage()
	objects.objects["bowl.jpg"] = []byte("data")
	svc := newService(store, objects, 25<<20)

	err := svc.Delete(context.Background(), rec.ID, "bowl.jpg")
	require.Error(t, err)

	// Object is gone, row survives: the documented orphaned-row state.
	assert.NotContains(t, objects.objects, "bowl.jpg")
}

func TestReorder_AppliesEachEntry(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, newFakeStorage(), 25<<20)

	a, b := uuid.New(), uuid.New()
	err := svc.Reorder([]models.ReorderEntry{
		{ID: a.String(), Order: 2},
		{ID: b.String(), Order: 1},
	})
	require.NoError(t, err)

	require.Len(t, store.updates, 2)
	assert.Equal(t, update{id: a, order: 2}, store.updates[0])
	assert.Equal(t, update{id: b, order: 1}, store.updates[1])
}

func TestReorder_FirstFailureAbortsLeavingEarlierCommitted(t *testing.T) {
	store := &fakeStore{failUpdateAt: 2}
	svc := newService(store, newFakeStorage(), 25<<20)

	entries := []models.ReorderEntry{
		{ID: uuid.New().String(), Order: 1},
		{ID: uuid.New().String(), Order: 2},
		{ID: uuid.New().String(), Order: 3},
	}
	err := svc.Reorder(entries)
	require.Error(t, err)

	// Only the first update landed.
	assert.Len(t, store.updates, 1)
}

func TestReorder_MalformedIDIsNoOp(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, newFakeStorage(), 25<<20)

	valid := uuid.New()
	err := svc.Reorder([]models.ReorderEntry{
		{ID: "not-a-uuid", Order: 1},
		{ID: valid.String(), Order: 2},
	})
	require.NoError(t, err)

	require.Len(t, store.updates, 1)
	assert.Equal(t, valid, store.updates[0].id)
}

func TestList_ReadFailureDegradesToEmpty(t *testing.T) {
	store := &fakeStore{listErr: errors.New("db down")}
	svc := newService(store, newFakeStorage(), 25<<20)

	files := svc.List()
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestList_ReturnsStoreOrder(t *testing.T) {
	first := existingRecord("a.jpg", 1)
	second := existingRecord("b.jpg", 2)
	store := &fakeStore{files: []models.FileRecord{first, second}}
	svc := newService(store, newFakeStorage(), 25<<20)

	files := svc.List()
	require.Len(t, files, 2)
	assert.Equal(t, "a.jpg", files[0].Filename)
	assert.Equal(t, "b.jpg", files[1].Filename)
}
