package models

import "time"

// Document is a stored file's metadata row. The bytes live in the object
// store under StorageKey; StorageURL is the stable public URL returned at
// upload time.
type Document struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	CategoryID  *string   `db:"category_id" json:"category_id,omitempty"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	StorageKey  string    `db:"storage_key" json:"-"`
	StorageURL  string    `db:"storage_url" json:"storage_url"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	FileType    string    `db:"file_type" json:"file_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	Category *Category `db:"-" json:"category,omitempty"`
}

// DocumentFilter captures listing criteria for a user's documents.
type DocumentFilter struct {
	UserID   string
	Category string
	Search   string
	Page     int
	PageSize int
}

// Category groups documents. The list is global across tenants.
type Category struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Color     *string   `db:"color" json:"color,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
