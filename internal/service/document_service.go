package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuvault-io/docuvault-api/internal/models"
	appErrors "github.com/docuvault-io/docuvault-api/pkg/errors"
	"github.com/docuvault-io/docuvault-api/pkg/jobs"
	"github.com/docuvault-io/docuvault-api/pkg/storage"
)

const (
	documentListTTL = 5 * time.Minute
	documentTTL     = 10 * time.Minute

	// JobTypeNotification labels queued notification dispatch work.
	JobTypeNotification = "notification:dispatch"
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, userID, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error)
	Update(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, userID, id string) error
}

// DocumentUpload carries the multipart upload payload into the service.
type DocumentUpload struct {
	Name        string
	Description *string
	CategoryID  *string
	FileName    string
	ContentType string
	Data        []byte
}

// DocumentUpdate carries the mutable metadata fields. Nil means unchanged.
type DocumentUpdate struct {
	Name        *string
	Description *string
	CategoryID  *string
}

// NotificationPayload is the job payload for async notification dispatch.
type NotificationPayload struct {
	UserID  string
	Type    string
	Title   string
	Message string
}

// DocumentService owns document metadata and the backing object storage.
// Reads go through the cache; every write invalidates the owner's cached
// listings and notifies connected clients best-effort.
type DocumentService struct {
	repo        documentRepository
	store       storage.ObjectStore
	signer      *storage.SignedURLSigner
	cache       *CacheService
	broadcaster Broadcaster
	queue       *jobs.Queue
	logger      *zap.Logger
}

// NewDocumentService constructs the document service.
func NewDocumentService(repo documentRepository, store storage.ObjectStore, signer *storage.SignedURLSigner, cache *CacheService, broadcaster Broadcaster, queue *jobs.Queue, logger *zap.Logger) *DocumentService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &DocumentService{repo: repo, store: store, signer: signer, cache: cache, broadcaster: broadcaster, queue: queue, logger: logger}
}

func documentCacheKey(id string) string {
	return "doc:" + id
}

func documentListCacheKey(f models.DocumentFilter) string {
	return fmt.Sprintf("docs:%s:%d:%d:%s:%s", f.UserID, f.Page, f.PageSize, f.Category, strings.ToLower(f.Search))
}

func documentListPattern(userID string) string {
	return "docs:" + userID + ":*"
}

// Upload persists the file bytes and the metadata row, then announces the
// new document to the owner's connected clients.
func (s *DocumentService) Upload(ctx context.Context, userID string, upload DocumentUpload) (*models.Document, error) {
	if len(upload.Data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "uploaded file is empty")
	}
	name := strings.TrimSpace(upload.Name)
	if name == "" {
		name = upload.FileName
	}
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document name is required")
	}

	id := uuid.NewString()
	key := userID + "/" + id + strings.ToLower(filepath.Ext(upload.FileName))
	url, err := s.store.Put(key, upload.Data, upload.ContentType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:          id,
		UserID:      userID,
		CategoryID:  upload.CategoryID,
		Name:        name,
		Description: upload.Description,
		StorageKey:  key,
		StorageURL:  url,
		FileSize:    int64(len(upload.Data)),
		FileType:    upload.ContentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		if delErr := s.store.Delete(key); delErr != nil && s.logger != nil {
			s.logger.Warn("orphaned upload cleanup failed", zap.String("key", key), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document")
	}

	s.cache.Invalidate(ctx, documentListPattern(userID))
	s.broadcaster.TryBroadcastToUser(userID, EventDocumentUploaded, doc)
	s.enqueueNotification(userID, "DOCUMENT_UPLOADED", "Document uploaded", fmt.Sprintf("%q was uploaded successfully", doc.Name))

	return doc, nil
}

// List returns the user's documents matching the filter, served from cache
// when possible.
func (s *DocumentService) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	type listPayload struct {
		Documents  []models.Document  `json:"documents"`
		Pagination *models.Pagination `json:"pagination"`
	}

	key := documentListCacheKey(filter)
	var cached listPayload
	if s.cache.Get(ctx, key, &cached) {
		return cached.Documents, cached.Pagination, nil
	}

	docs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}

	pagination := models.NewPagination(filter.Page, filter.PageSize, total)
	s.cache.Set(ctx, key, listPayload{Documents: docs, Pagination: pagination}, documentListTTL)
	return docs, pagination, nil
}

// Get returns a single document owned by the user.
func (s *DocumentService) Get(ctx context.Context, userID, id string) (*models.Document, error) {
	key := documentCacheKey(id)
	var cached models.Document
	if s.cache.Get(ctx, key, &cached) {
		// Cache entries are keyed by document id alone; re-check ownership.
		if cached.UserID == userID {
			return &cached, nil
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}

	doc, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	s.cache.Set(ctx, key, doc, documentTTL)
	return doc, nil
}

// Update applies metadata changes to an owned document.
func (s *DocumentService) Update(ctx context.Context, userID, id string, update DocumentUpdate) (*models.Document, error) {
	doc, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "document name cannot be empty")
		}
		doc.Name = name
	}
	if update.Description != nil {
		doc.Description = update.Description
	}
	if update.CategoryID != nil {
		if *update.CategoryID == "" {
			doc.CategoryID = nil
		} else {
			doc.CategoryID = update.CategoryID
		}
	}
	doc.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document")
	}

	s.cache.Delete(ctx, documentCacheKey(id))
	s.cache.Invalidate(ctx, documentListPattern(userID))
	s.broadcaster.TryBroadcastToUser(userID, EventDocumentUpdated, doc)

	return doc, nil
}

// Delete removes the metadata row and, best-effort, the stored bytes.
func (s *DocumentService) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}

	// The row is gone; a dangling blob is preferable to a dangling row.
	if err := s.store.Delete(doc.StorageKey); err != nil && s.logger != nil {
		s.logger.Warn("stored file delete failed", zap.String("key", doc.StorageKey), zap.Error(err))
	}

	s.cache.Delete(ctx, documentCacheKey(id))
	s.cache.Invalidate(ctx, documentListPattern(userID))
	s.broadcaster.TryBroadcastToUser(userID, EventDocumentDeleted, map[string]string{"id": id})

	return nil
}

// DownloadURL issues a short-lived signed token for fetching the raw file.
func (s *DocumentService) DownloadURL(ctx context.Context, userID, id string) (string, time.Time, error) {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err := s.signer.Generate(doc.ID, doc.StorageKey)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download URL")
	}
	return token, expiresAt, nil
}

// OpenByToken validates a signed download token and opens the stored file.
// The token itself is the authorization; no session is required.
func (s *DocumentService) OpenByToken(token string) (*os.File, error) {
	_, key, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "invalid or expired download token")
	}
	f, err := s.store.Open(key)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	return f, nil
}

func (s *DocumentService) enqueueNotification(userID, ntype, title, message string) {
	if s.queue == nil {
		return
	}
	ok := s.queue.TryEnqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: JobTypeNotification,
		Payload: NotificationPayload{
			UserID:  userID,
			Type:    ntype,
			Title:   title,
			Message: message,
		},
	})
	if !ok && s.logger != nil {
		s.logger.Warn("notification queue full, dropping dispatch", zap.String("user_id", userID))
	}
}
