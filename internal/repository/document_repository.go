package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/docuvault-io/docuvault-api/internal/models"
)

const documentColumns = `d.id, d.user_id, d.category_id, d.name, d.description, d.storage_key, d.storage_url, d.file_size, d.file_type, d.created_at, d.updated_at`

type documentRow struct {
	models.Document
	CategoryName  *string `db:"category_name"`
	CategoryColor *string `db:"category_color"`
}

// DocumentRepository provides database access for document metadata.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new instance of DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a document row.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	const query = `INSERT INTO documents (id, user_id, category_id, name, description, storage_key, storage_url, file_size, file_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`
	if _, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.UserID, doc.CategoryID, doc.Name, doc.Description,
		doc.StorageKey, doc.StorageURL, doc.FileSize, doc.FileType,
	); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// FindByID returns a document owned by the given user. Ownership is part of
// the lookup so one tenant can never address another tenant's rows.
func (r *DocumentRepository) FindByID(ctx context.Context, userID, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + `, c.name AS category_name, c.color AS category_color
		FROM documents d
		LEFT JOIN categories c ON c.id = d.category_id
		WHERE d.id = $1 AND d.user_id = $2 LIMIT 1`
	var row documentRow
	if err := r.db.GetContext(ctx, &row, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document by id: %w", err)
	}
	return hydrate(&row), nil
}

// List returns the user's documents with total count.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error) {
	baseQuery := `FROM documents d LEFT JOIN categories c ON c.id = d.category_id WHERE d.user_id = $1`
	args := []interface{}{filter.UserID}

	if filter.Category != "" {
		baseQuery += fmt.Sprintf(" AND (d.category_id = $%d OR LOWER(c.name) = LOWER($%d))", len(args)+1, len(args)+1)
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		baseQuery += fmt.Sprintf(" AND LOWER(d.name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize

	listQuery := `SELECT ` + documentColumns + `, c.name AS category_name, c.color AS category_color ` +
		baseQuery + fmt.Sprintf(" ORDER BY d.created_at DESC LIMIT %d OFFSET %d", pageSize, offset)

	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}

	countQuery := `SELECT COUNT(*) ` + baseQuery
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	docs := make([]models.Document, 0, len(rows))
	for i := range rows {
		docs = append(docs, *hydrate(&rows[i]))
	}
	return docs, total, nil
}

// Update persists mutable metadata fields.
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	const query = `UPDATE documents SET name = $3, description = $4, category_id = $5, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, doc.ID, doc.UserID, doc.Name, doc.Description, doc.CategoryID)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a document row for the given owner.
func (r *DocumentRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM documents WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func hydrate(row *documentRow) *models.Document {
	doc := row.Document
	if row.CategoryID != nil && row.CategoryName != nil {
		doc.Category = &models.Category{
			ID:    *row.CategoryID,
			Name:  *row.CategoryName,
			Color: row.CategoryColor,
		}
	}
	return &doc
}
