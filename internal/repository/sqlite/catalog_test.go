package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/msomdec/stitchworks/internal/domain"
	"github.com/msomdec/stitchworks/internal/repository/sqlite"
)

var _ domain.CatalogIndex = (*sqlite.CatalogRepository)(nil)

func record(name, folder string) *domain.CatalogRecord {
	return &domain.CatalogRecord{
		Name:        name,
		Folder:      folder,
		FileName:    folder + ".yaml",
		Format:      domain.CatalogFormatText,
		Version:     100,
		StitchCount: 3,
	}
}

func TestCatalogRepository_UpsertAndGet(t *testing.T) {
	repo := newTestDB(t).Catalogs()
	ctx := context.Background()

	rec := record("Lace Stitches", "lace_stitches")
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("expected ID to be set")
	}
	if rec.UpdatedAt.IsZero() {
		t.Fatal("expected UpdatedAt to be set")
	}

	got, err := repo.GetByName(ctx, "Lace Stitches")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogRepository_UpsertUpdatesExisting(t *testing.T) {
	repo := newTestDB(t).Catalogs()
	ctx := context.Background()

	rec := record("Lace Stitches", "lace_stitches")
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	id := rec.ID

	rec.StitchCount = 12
	rec.Format = domain.CatalogFormatBinary
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if rec.ID != id {
		t.Fatalf("expected ID %d to be kept, got %d", id, rec.ID)
	}

	got, err := repo.GetByName(ctx, "Lace Stitches")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if got.StitchCount != 12 || got.Format != domain.CatalogFormatBinary {
		t.Fatalf("expected updated record, got %+v", got)
	}
}

func TestCatalogRepository_DuplicateFolder(t *testing.T) {
	repo := newTestDB(t).Catalogs()
	ctx := context.Background()

	if err := repo.Upsert(ctx, record("Lace", "lace")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	err := repo.Upsert(ctx, record("LACE", "lace"))
	if !errors.Is(err, domain.ErrDuplicateCatalog) {
		t.Fatalf("expected ErrDuplicateCatalog, got %v", err)
	}
}

func TestCatalogRepository_UpsertValidates(t *testing.T) {
	repo := newTestDB(t).Catalogs()
	err := repo.Upsert(context.Background(), &domain.CatalogRecord{Name: "No Folder"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCatalogRepository_SingleMasterSet(t *testing.T) {
	repo := newTestDB(t).Catalogs()
	ctx := context.Background()

	first := record("Mine", "mine")
	first.IsMasterSet = true
	second := record("Other", "other")
	second.IsMasterSet = true
	for _, rec := range []*domain.CatalogRecord{first, second} {
		if err := repo.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert %s: %v", rec.Name, err)
		}
	}

	got, err := repo.GetByName(ctx, "Mine")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if got.IsMasterSet {
		t.Fatal("expected previous master set to be cleared")
	}
}

func TestCatalogRepository_ListOrdersBuiltInFirst(t *testing.T) {
	repo := newTestDB(t).Catalogs()
	ctx := context.Background()

	builtIn := record("Basic Stitches", "basic_stitches")
	builtIn.IsBuiltIn = true
	for _, rec := range []*domain.CatalogRecord{record("Zigzag", "zigzag"), builtIn, record("Aran", "aran")} {
		if err := repo.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert %s: %v", rec.Name, err)
		}
	}

	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, rec := range records {
		names = append(names, rec.Name)
	}
	if diff := cmp.Diff([]string{"Basic Stitches", "Aran", "Zigzag"}, names); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogRepository_Delete(t *testing.T) {
	repo := newTestDB(t).Catalogs()
	ctx := context.Background()

	if err := repo.Upsert(ctx, record("Lace", "lace")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Delete(ctx, "Lace"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByName(ctx, "Lace"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "Lace"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
