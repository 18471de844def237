package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuvault-io/docuvault-api/internal/models"
	appErrors "github.com/docuvault-io/docuvault-api/pkg/errors"
	"github.com/docuvault-io/docuvault-api/pkg/jobs"
	"github.com/docuvault-io/docuvault-api/pkg/storage"
)

type fakeDocRepo struct {
	docs    map[string]*models.Document
	listErr error
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: make(map[string]*models.Document)}
}

func (f *fakeDocRepo) Create(ctx context.Context, doc *models.Document) error {
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *fakeDocRepo) FindByID(ctx context.Context, userID, id string) (*models.Document, error) {
	if doc, ok := f.docs[id]; ok && doc.UserID == userID {
		copied := *doc
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDocRepo) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	var out []models.Document
	for _, doc := range f.docs {
		if doc.UserID != filter.UserID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(doc.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *doc)
	}
	return out, len(out), nil
}

func (f *fakeDocRepo) Update(ctx context.Context, doc *models.Document) error {
	if existing, ok := f.docs[doc.ID]; ok && existing.UserID == doc.UserID {
		copied := *doc
		f.docs[doc.ID] = &copied
		return nil
	}
	return sql.ErrNoRows
}

func (f *fakeDocRepo) Delete(ctx context.Context, userID, id string) error {
	if doc, ok := f.docs[id]; ok && doc.UserID == userID {
		delete(f.docs, id)
		return nil
	}
	return sql.ErrNoRows
}

// memCache implements CacheRepository over a plain map with JSON copies.
type memCache struct {
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.Clone(appErrors.ErrCacheMiss, "")
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func (m *memCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

type recordedEvent struct {
	userID string
	event  string
}

type fakeBroadcaster struct {
	events []recordedEvent
}

func (f *fakeBroadcaster) TryBroadcastAll(event string, payload interface{}) bool {
	f.events = append(f.events, recordedEvent{event: event})
	return true
}

func (f *fakeBroadcaster) TryBroadcastToUser(userID, event string, payload interface{}) bool {
	f.events = append(f.events, recordedEvent{userID: userID, event: event})
	return true
}

func newTestDocumentService(t *testing.T, repo *fakeDocRepo, cacheRepo *memCache, b *fakeBroadcaster, queue *jobs.Queue) *DocumentService {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost:4050")
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, nil, cacheRepo != nil)
	return NewDocumentService(repo, store, signer, cacheSvc, b, queue, nil)
}

func TestUploadStoresFileAndAnnounces(t *testing.T) {
	repo := newFakeDocRepo()
	b := &fakeBroadcaster{}
	svc := newTestDocumentService(t, repo, newMemCache(), b, nil)

	doc, err := svc.Upload(context.Background(), "user-1", DocumentUpload{
		Name:        "Invoice",
		FileName:    "invoice.PDF",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-"),
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", doc.UserID)
	assert.Equal(t, int64(5), doc.FileSize)
	assert.Equal(t, ".pdf", path.Ext(doc.StorageKey), "extension is lower-cased")
	assert.NotEmpty(t, doc.StorageURL)
	require.Len(t, b.events, 1)
	assert.Equal(t, recordedEvent{userID: "user-1", event: EventDocumentUploaded}, b.events[0])
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	svc := newTestDocumentService(t, newFakeDocRepo(), newMemCache(), &fakeBroadcaster{}, nil)

	_, err := svc.Upload(context.Background(), "user-1", DocumentUpload{FileName: "a.txt"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestUploadFallsBackToFileName(t *testing.T) {
	svc := newTestDocumentService(t, newFakeDocRepo(), newMemCache(), &fakeBroadcaster{}, nil)

	doc, err := svc.Upload(context.Background(), "user-1", DocumentUpload{
		FileName:    "report.txt",
		ContentType: "text/plain",
		Data:        []byte("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, "report.txt", doc.Name)
}

func TestListCachesResults(t *testing.T) {
	repo := newFakeDocRepo()
	cacheRepo := newMemCache()
	svc := newTestDocumentService(t, repo, cacheRepo, &fakeBroadcaster{}, nil)

	_, err := svc.Upload(context.Background(), "user-1", DocumentUpload{
		FileName: "a.txt", ContentType: "text/plain", Data: []byte("x"),
	})
	require.NoError(t, err)

	docs, pagination, err := svc.List(context.Background(), models.DocumentFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, pagination.TotalCount)

	// Second call is served from cache even if the repo breaks.
	repo.listErr = errors.New("db down")
	docs, _, err = svc.List(context.Background(), models.DocumentFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestWritesInvalidateListCache(t *testing.T) {
	repo := newFakeDocRepo()
	cacheRepo := newMemCache()
	svc := newTestDocumentService(t, repo, cacheRepo, &fakeBroadcaster{}, nil)

	first, err := svc.Upload(context.Background(), "user-1", DocumentUpload{
		FileName: "a.txt", ContentType: "text/plain", Data: []byte("x"),
	})
	require.NoError(t, err)

	docs, _, err := svc.List(context.Background(), models.DocumentFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	_, err = svc.Upload(context.Background(), "user-1", DocumentUpload{
		FileName: "b.txt", ContentType: "text/plain", Data: []byte("y"),
	})
	require.NoError(t, err)

	docs, _, err = svc.List(context.Background(), models.DocumentFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, docs, 2, "upload invalidated the cached listing")

	require.NoError(t, svc.Delete(context.Background(), "user-1", first.ID))
	docs, _, err = svc.List(context.Background(), models.DocumentFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestGetEnforcesOwnershipAcrossCache(t *testing.T) {
	repo := newFakeDocRepo()
	svc := newTestDocumentService(t, repo, newMemCache(), &fakeBroadcaster{}, nil)

	doc, err := svc.Upload(context.Background(), "user-1", DocumentUpload{
		FileName: "a.txt", ContentType: "text/plain", Data: []byte("x"),
	})
	require.NoError(t, err)

	// Warm the cache as the owner, then probe as a different tenant.
	_, err = svc.Get(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "user-2", doc.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestUpdateUnknownDocument(t *testing.T) {
	svc := newTestDocumentService(t, newFakeDocRepo(), newMemCache(), &fakeBroadcaster{}, nil)

	name := "New name"
	_, err := svc.Update(context.Background(), "user-1", "ghost", DocumentUpdate{Name: &name})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestDownloadURLRoundTrip(t *testing.T) {
	svc := newTestDocumentService(t, newFakeDocRepo(), newMemCache(), &fakeBroadcaster{}, nil)

	doc, err := svc.Upload(context.Background(), "user-1", DocumentUpload{
		FileName: "a.txt", ContentType: "text/plain", Data: []byte("hello"),
	})
	require.NoError(t, err)

	token, expiresAt, err := svc.DownloadURL(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	f, err := svc.OpenByToken(token)
	require.NoError(t, err)
	f.Close()

	_, err = svc.OpenByToken("forged-token")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidToken))
}

func TestUploadQueuesNotification(t *testing.T) {
	got := make(chan jobs.Job, 1)
	queue := jobs.NewQueue("test", func(ctx context.Context, job jobs.Job) error {
		got <- job
		return nil
	}, jobs.QueueConfig{Workers: 1, BufferSize: 4})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()

	svc := newTestDocumentService(t, newFakeDocRepo(), newMemCache(), &fakeBroadcaster{}, queue)

	_, err := svc.Upload(context.Background(), "user-1", DocumentUpload{
		FileName: "a.txt", ContentType: "text/plain", Data: []byte("x"),
	})
	require.NoError(t, err)

	select {
	case job := <-got:
		assert.Equal(t, JobTypeNotification, job.Type)
		payload, ok := job.Payload.(NotificationPayload)
		require.True(t, ok)
		assert.Equal(t, "user-1", payload.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("notification job was not dispatched")
	}
}
