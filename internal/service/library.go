package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/msomdec/stitchworks/internal/catalog"
	"github.com/msomdec/stitchworks/internal/domain"
	"github.com/msomdec/stitchworks/internal/icon"
)

const (
	// BuiltInName is the catalog of stitches shipped with the software.
	BuiltInName = "Built-in Stitches"
	// MasterSetName is the catalog created when the library has no master set.
	MasterSetName = "My Stitches"

	textExt   = ".yaml"
	binaryExt = ".set"
)

// LibraryService owns the stitch library: every installed catalog, laid out
// as <root>/<folder>/<folder>.yaml (or .set) and indexed in a CatalogIndex.
type LibraryService struct {
	fs       billy.Filesystem
	index    domain.CatalogIndex
	renderer icon.Renderer

	mu       sync.RWMutex
	colors   icon.ColorContext
	catalogs map[string]*catalog.Catalog
	master   *catalog.Catalog
}

// NewLibraryService creates a library rooted at fs. Nothing is read until Open.
func NewLibraryService(fs billy.Filesystem, index domain.CatalogIndex, renderer icon.Renderer, cc icon.ColorContext) *LibraryService {
	return &LibraryService{
		fs:       fs,
		index:    index,
		renderer: renderer,
		colors:   cc,
		catalogs: make(map[string]*catalog.Catalog),
	}
}

// Open seeds the built-in catalog, loads every indexed catalog and makes sure
// a master set exists. Catalogs that fail to load are logged and skipped.
func (s *LibraryService) Open(ctx context.Context) error {
	if err := s.SeedPredefined(ctx); err != nil {
		return err
	}

	records, err := s.index.List(ctx)
	if err != nil {
		return fmt.Errorf("list catalogs: %w", err)
	}

	for _, rec := range records {
		if _, err := s.Catalog(rec.Name); err == nil {
			continue
		}
		c, err := s.load(rec)
		if err != nil {
			slog.Warn("catalog unavailable", "catalog", rec.Name, "file", filepath.Join(rec.Folder, rec.FileName), "error", err)
			continue
		}
		s.register(c)
		if c.IsMasterSet {
			s.mu.Lock()
			s.master = c
			s.mu.Unlock()
		}
	}

	if s.MasterSet() == nil {
		if err := s.ensureMasterSet(ctx); err != nil {
			return err
		}
	}
	slog.Info("stitch library opened", "catalogs", len(s.Catalogs()), "master", s.MasterSet().Name)
	return nil
}

// SeedPredefined installs the built-in catalog. It is idempotent: existing
// stitches are kept and only missing ones are added.
func (s *LibraryService) SeedPredefined(ctx context.Context) error {
	folder := catalog.FileSafeName(BuiltInName)
	c := s.newCatalog(BuiltInName)
	c.FileName = filepath.Join(folder, folder+textExt)
	c.IsBuiltIn = true

	exists := false
	if _, err := s.fs.Stat(c.FileName); err == nil {
		if err := c.LoadText(c.FileName); err != nil {
			return fmt.Errorf("load built-in catalog: %w", err)
		}
		exists = true
	}

	added := 0
	for _, p := range predefinedStitches {
		if c.HasStitch(p.name) {
			continue
		}
		st := domain.NewStitch(p.name)
		st.Description = p.description
		st.Category = p.category
		st.WrongSide = p.wrongSide
		if err := c.AddStitch(st); err != nil {
			return fmt.Errorf("seed stitch %s: %w", p.name, err)
		}
		added++
	}

	if !exists || added > 0 {
		if err := c.SaveText("", true); err != nil {
			return fmt.Errorf("save built-in catalog: %w", err)
		}
	}
	// The built-in set has no user edits, so its reset point follows each release.
	if exists && added > 0 {
		if err := c.Snapshot(true); err != nil {
			return fmt.Errorf("snapshot built-in catalog: %w", err)
		}
	}
	if err := s.index.Upsert(ctx, record(c)); err != nil {
		return fmt.Errorf("index built-in catalog: %w", err)
	}

	s.mu.Lock()
	s.catalogs[c.Name] = c
	s.mu.Unlock()
	if added > 0 {
		slog.Info("predefined stitches seeded", "added", added)
	}
	return nil
}

func (s *LibraryService) ensureMasterSet(ctx context.Context) error {
	c, err := s.Catalog(MasterSetName)
	if errors.Is(err, domain.ErrNotFound) {
		c, err = s.Create(ctx, MasterSetName)
	}
	if err != nil {
		return fmt.Errorf("create master set: %w", err)
	}
	return s.SetMasterSet(ctx, c.Name)
}

// SetMasterSet makes name the catalog the user works with.
func (s *LibraryService) SetMasterSet(ctx context.Context, name string) error {
	c, err := s.Catalog(name)
	if err != nil {
		return err
	}
	if c.IsBuiltIn {
		return fmt.Errorf("%w: %q cannot be the master set", domain.ErrReadOnly, name)
	}

	s.mu.Lock()
	if s.master != nil {
		s.master.IsMasterSet = false
	}
	c.IsMasterSet = true
	s.master = c
	s.mu.Unlock()

	return s.index.Upsert(ctx, record(c))
}

// MasterSet returns the catalog the user works with, nil before Open.
func (s *LibraryService) MasterSet() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.master
}

// Catalogs returns every loaded catalog: the built-in one first, then by name.
func (s *LibraryService) Catalogs() []*catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*catalog.Catalog, 0, len(s.catalogs))
	for _, c := range s.catalogs {
		list = append(list, c)
	}
	slices.SortFunc(list, func(a, b *catalog.Catalog) int {
		if a.IsBuiltIn != b.IsBuiltIn {
			if a.IsBuiltIn {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return list
}

func (s *LibraryService) Catalog(name string) (*catalog.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.catalogs[name]
	if !ok {
		return nil, fmt.Errorf("catalog %q: %w", name, domain.ErrNotFound)
	}
	return c, nil
}

// FindStitch looks a stitch up in the master set, then the built-in catalog,
// then every other catalog in name order.
func (s *LibraryService) FindStitch(name string) (*domain.Stitch, *catalog.Catalog) {
	catalogs := s.Catalogs()
	if m := s.MasterSet(); m != nil {
		catalogs = append([]*catalog.Catalog{m}, catalogs...)
	}
	for _, c := range catalogs {
		if st := c.FindStitch(name); st != nil {
			return st, c
		}
	}
	return nil, nil
}

// AddToMasterSet copies a stitch from another catalog into the master set and
// saves it. The copy is independent of the original.
func (s *LibraryService) AddToMasterSet(ctx context.Context, from, stitch string) error {
	src, err := s.Catalog(from)
	if err != nil {
		return err
	}
	st := src.FindStitch(stitch)
	if st == nil {
		return fmt.Errorf("stitch %q in %q: %w", stitch, from, domain.ErrNotFound)
	}
	master := s.MasterSet()
	if master == nil {
		return fmt.Errorf("master set: %w", domain.ErrNotFound)
	}
	if master == src {
		return fmt.Errorf("%w: %q is already in the master set", domain.ErrDuplicateStitch, stitch)
	}

	if err := master.AddStitch(st.Clone()); err != nil {
		return err
	}
	if err := s.persist(ctx, master); err != nil {
		return err
	}
	slog.Info("stitch added to master set", "stitch", stitch, "from", from, "master", master.Name)
	return nil
}

// Create installs a new, empty catalog.
func (s *LibraryService) Create(ctx context.Context, name string) (*catalog.Catalog, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: catalog name is required", domain.ErrInvalidInput)
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("%w: catalog name must be 100 characters or fewer", domain.ErrInvalidInput)
	}

	folder, err := s.reserveFolder(name)
	if err != nil {
		return nil, err
	}
	c := s.newCatalog(name)
	c.FileName = filepath.Join(folder, folder+textExt)
	if err := s.persist(ctx, c); err != nil {
		return nil, err
	}
	s.register(c)
	slog.Info("catalog created", "catalog", name, "file", c.FileName)
	return c, nil
}

// Save writes a catalog to its backing file and refreshes its index entry.
// The built-in catalog is read-only.
func (s *LibraryService) Save(ctx context.Context, name string) error {
	c, err := s.Catalog(name)
	if err != nil {
		return err
	}
	if c.IsBuiltIn {
		return fmt.Errorf("%w: %q", domain.ErrReadOnly, name)
	}
	return s.persist(ctx, c)
}

// Remove uninstalls a catalog and deletes its folder.
func (s *LibraryService) Remove(ctx context.Context, name string) error {
	c, err := s.Catalog(name)
	if err != nil {
		return err
	}
	if c.IsBuiltIn {
		return fmt.Errorf("%w: %q", domain.ErrReadOnly, name)
	}

	if err := s.index.Delete(ctx, name); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("unindex catalog: %w", err)
	}
	if err := util.RemoveAll(s.fs, c.Folder()); err != nil {
		return fmt.Errorf("remove catalog folder: %w", err)
	}

	s.mu.Lock()
	delete(s.catalogs, name)
	if s.master == c {
		s.master = nil
	}
	s.mu.Unlock()
	slog.Info("catalog removed", "catalog", name)
	return nil
}

// Import installs the catalog stored at path on src. A ".set" file is copied
// in as a binary catalog with its icons extracted next to it; anything else is
// read as text and stored with its icons embedded.
func (s *LibraryService) Import(ctx context.Context, src billy.Filesystem, path string) (*catalog.Catalog, error) {
	binaryFile := strings.EqualFold(filepath.Ext(path), binaryExt)

	scratch := catalog.New(src, "")
	scratch.SetRenderer(icon.NewRasterRenderer(src))
	var err error
	if binaryFile {
		err = scratch.LoadBinary(path, "")
	} else {
		err = scratch.LoadText(path)
	}
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	if strings.TrimSpace(scratch.Name) == "" {
		return nil, fmt.Errorf("%w: %s has no catalog name", domain.ErrInvalidInput, path)
	}

	folder, err := s.reserveFolder(scratch.Name)
	if err != nil {
		return nil, err
	}

	c := s.newCatalog(scratch.Name)
	if binaryFile {
		c.FileName = filepath.Join(folder, folder+binaryExt)
		data, err := util.ReadFile(src, path)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", path, err)
		}
		if err := s.fs.MkdirAll(folder, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog folder: %w", err)
		}
		if err := util.WriteFile(s.fs, c.FileName, data, 0o644); err != nil {
			return nil, fmt.Errorf("copy %s: %w", path, err)
		}
		if err := c.LoadBinary(c.FileName, folder); err != nil {
			return nil, fmt.Errorf("import %s: %w", path, err)
		}
	} else {
		c.FileName = filepath.Join(folder, folder+textExt)
		if err := c.Populate(scratch.Manifest(true)); err != nil {
			return nil, fmt.Errorf("import %s: %w", path, err)
		}
	}

	if err := s.persist(ctx, c); err != nil {
		return nil, err
	}
	s.register(c)
	slog.Info("catalog imported", "catalog", c.Name, "from", path, "stitches", c.StitchCount())
	return c, nil
}

// ExportBinary writes a self-contained binary copy of a catalog to path on dst.
func (s *LibraryService) ExportBinary(name string, dst billy.Filesystem, path string) error {
	c, err := s.Catalog(name)
	if err != nil {
		return err
	}

	out := catalog.New(dst, c.Name)
	if err := out.Populate(c.Manifest(true)); err != nil {
		return fmt.Errorf("export %q: %w", name, err)
	}
	if err := out.SaveBinary(path); err != nil {
		return fmt.Errorf("export %q: %w", name, err)
	}
	slog.Info("catalog exported", "catalog", name, "to", path)
	return nil
}

// Reset discards unsaved edits. Text catalogs return to the snapshot taken
// when they were first saved; binary catalogs are re-read from disk.
func (s *LibraryService) Reset(ctx context.Context, name string) error {
	c, err := s.Catalog(name)
	if err != nil {
		return err
	}
	if formatOf(c.FileName) == domain.CatalogFormatBinary {
		err = c.LoadBinary(c.FileName, c.Folder())
	} else {
		err = c.Reset()
	}
	if err != nil {
		return err
	}
	return s.index.Upsert(ctx, record(c))
}

// SetColorContext redraws every icon in the library with cc.
func (s *LibraryService) SetColorContext(cc icon.ColorContext) error {
	s.mu.Lock()
	s.colors = cc
	s.mu.Unlock()

	var errs []error
	for _, c := range s.Catalogs() {
		if err := c.SetColorContext(cc); err != nil {
			errs = append(errs, fmt.Errorf("catalog %q: %w", c.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *LibraryService) newCatalog(name string) *catalog.Catalog {
	c := catalog.New(s.fs, name)
	c.SetRenderer(s.renderer)
	s.mu.RLock()
	cc := s.colors
	s.mu.RUnlock()
	// Nothing to redraw yet.
	_ = c.SetColorContext(cc)
	return c
}

func (s *LibraryService) load(rec domain.CatalogRecord) (*catalog.Catalog, error) {
	c := s.newCatalog(rec.Name)
	c.FileName = filepath.Join(rec.Folder, rec.FileName)
	c.IsBuiltIn = rec.IsBuiltIn
	c.IsMasterSet = rec.IsMasterSet

	var err error
	if rec.Format == domain.CatalogFormatBinary {
		err = c.LoadBinary(c.FileName, rec.Folder)
	} else {
		err = c.LoadText(c.FileName)
	}
	if err != nil {
		return nil, err
	}
	if c.Name != rec.Name {
		return nil, fmt.Errorf("%w: file names the catalog %q", catalog.ErrCorrupt, c.Name)
	}
	return c, nil
}

// reserveFolder checks that name and its folder are both free.
func (s *LibraryService) reserveFolder(name string) (string, error) {
	folder := catalog.FileSafeName(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.catalogs {
		if c.Name == name || c.Folder() == folder {
			return "", fmt.Errorf("%w: %q", domain.ErrDuplicateCatalog, name)
		}
	}
	return folder, nil
}

func (s *LibraryService) register(c *catalog.Catalog) {
	s.mu.Lock()
	s.catalogs[c.Name] = c
	s.mu.Unlock()
}

func (s *LibraryService) persist(ctx context.Context, c *catalog.Catalog) error {
	var err error
	if formatOf(c.FileName) == domain.CatalogFormatBinary {
		err = c.SaveBinary(c.FileName)
	} else {
		err = c.SaveText("", true)
	}
	if err != nil {
		return err
	}
	if err := s.index.Upsert(ctx, record(c)); err != nil {
		return fmt.Errorf("index catalog %q: %w", c.Name, err)
	}
	return nil
}

func record(c *catalog.Catalog) *domain.CatalogRecord {
	return &domain.CatalogRecord{
		Name:        c.Name,
		Folder:      c.Folder(),
		FileName:    filepath.Base(c.FileName),
		Format:      formatOf(c.FileName),
		IsBuiltIn:   c.IsBuiltIn,
		IsMasterSet: c.IsMasterSet,
		Version:     c.Version,
		StitchCount: c.StitchCount(),
	}
}

func formatOf(fileName string) domain.CatalogFormat {
	if strings.EqualFold(filepath.Ext(fileName), binaryExt) {
		return domain.CatalogFormatBinary
	}
	return domain.CatalogFormatText
}
