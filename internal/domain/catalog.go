package domain

import (
	"context"
	"time"
)

// CatalogFormat is the on-disk form of a library catalog.
type CatalogFormat string

const (
	CatalogFormatText   CatalogFormat = "text"
	CatalogFormatBinary CatalogFormat = "binary"
)

// CatalogRecord describes a catalog installed in the stitch library.
type CatalogRecord struct {
	ID          int64
	Name        string
	Folder      string // Folder under the library root
	FileName    string // Primary file inside Folder
	Format      CatalogFormat
	IsBuiltIn   bool
	IsMasterSet bool
	Version     int
	StitchCount int
	UpdatedAt   time.Time
}

// CatalogIndex tracks which catalogs are installed in the library.
type CatalogIndex interface {
	Upsert(ctx context.Context, record *CatalogRecord) error
	GetByName(ctx context.Context, name string) (*CatalogRecord, error)
	List(ctx context.Context) ([]CatalogRecord, error)
	Delete(ctx context.Context, name string) error
}
