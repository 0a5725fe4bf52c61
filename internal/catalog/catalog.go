// Package catalog implements stitch catalogs: ordered, name-unique collections
// of stitch definitions with shared metadata, stored either as editable YAML
// or as a compact self-contained binary archive.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"

	"github.com/msomdec/stitchworks/internal/domain"
	"github.com/msomdec/stitchworks/internal/icon"
)

// Version100 is storage version "1.0.0", the only one this build reads and writes.
const Version100 = 100

// OrigSuffix names the immutable snapshot Reset restores from.
const OrigSuffix = ".orig"

var (
	ErrWrongFormat        = errors.New("not a stitch catalog of the expected format")
	ErrUnsupportedVersion = errors.New("unsupported catalog version")
	ErrCorrupt            = errors.New("corrupt catalog")
	ErrNoBackingFile      = errors.New("catalog has no backing file")
	ErrTemporary          = errors.New("temporary catalogs are not saved")
)

// RenameFunc observes stitch renames so structures that refer to stitches by
// name can follow along.
type RenameFunc func(catalogName, oldName, newName string)

// Catalog is an ordered collection of stitch definitions. Stitch names are
// unique and case-sensitive; insertion order is display order.
//
// Mutations are expected from a single control goroutine. Reads, including the
// tree projection, may run concurrently with it.
type Catalog struct {
	Name    string
	Author  string
	Email   string
	Org     string
	URL     string
	Version int

	// IsMasterSet marks the catalog the user works with, as opposed to a
	// display projection.
	IsMasterSet bool
	// IsBuiltIn marks the catalog shipped with the software.
	IsBuiltIn bool
	// IsTemporary catalogs are never persisted.
	IsTemporary bool
	// FileName is the canonical backing file used by SaveText("") and Reset.
	FileName string

	fs       billy.Filesystem
	renderer icon.Renderer
	colors   icon.ColorContext

	mu       sync.RWMutex
	stitches []*domain.Stitch
	selected map[*domain.Stitch]bool

	subMu     sync.Mutex
	nextSub   int
	listeners map[int]RenameFunc
}

// New creates an empty catalog whose files live on fs.
func New(fs billy.Filesystem, name string) *Catalog {
	return &Catalog{
		Name:      name,
		Version:   Version100,
		fs:        fs,
		colors:    icon.DefaultColorContext(),
		selected:  make(map[*domain.Stitch]bool),
		listeners: make(map[int]RenameFunc),
	}
}

// SetRenderer sets the renderer used for stitch icons.
func (c *Catalog) SetRenderer(r icon.Renderer) {
	c.renderer = r
}

func (c *Catalog) Renderer() icon.Renderer {
	return c.renderer
}

func (c *Catalog) ColorContext() icon.ColorContext {
	return c.colors
}

// SetColorContext changes the colors icons are drawn with and re-renders them.
func (c *Catalog) SetColorContext(cc icon.ColorContext) error {
	c.colors = cc
	return c.ReloadIcons()
}

// Folder returns the directory holding the catalog's backing file.
func (c *Catalog) Folder() string {
	if c.FileName == "" {
		return ""
	}
	return filepath.Dir(c.FileName)
}

// FindStitch returns the stitch with the exact name, or nil.
func (c *Catalog) FindStitch(name string) *domain.Stitch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(name); i >= 0 {
		return c.stitches[i]
	}
	return nil
}

func (c *Catalog) HasStitch(name string) bool {
	return c.FindStitch(name) != nil
}

// AddStitch appends s. It fails with domain.ErrDuplicateStitch, leaving the
// catalog unchanged, when the name is taken.
func (c *Catalog) AddStitch(s *domain.Stitch) error {
	if s == nil || s.Name == "" {
		return fmt.Errorf("%w: stitch name is required", domain.ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(s.Name) >= 0 {
		return fmt.Errorf("%w: %q in catalog %q", domain.ErrDuplicateStitch, s.Name, c.Name)
	}
	c.stitches = append(c.stitches, s)
	return nil
}

// CreateStitch adds an empty definition named name.
func (c *Catalog) CreateStitch(name string) (*domain.Stitch, error) {
	s := domain.NewStitch(name)
	if err := c.AddStitch(s); err != nil {
		return nil, err
	}
	return s, nil
}

// RemoveStitch takes the named stitch out of the catalog and returns it, or
// nil if absent. The definition itself is left to the caller.
func (c *Catalog) RemoveStitch(name string) *domain.Stitch {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(name)
	if i < 0 {
		return nil
	}
	s := c.stitches[i]
	c.stitches = append(c.stitches[:i], c.stitches[i+1:]...)
	delete(c.selected, s)
	return s
}

func (c *Catalog) StitchCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stitches)
}

// Stitches returns the definitions in display order.
func (c *Catalog) Stitches() []*domain.Stitch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Stitch, len(c.stitches))
	copy(out, c.stitches)
	return out
}

// ClearStitches empties the catalog without touching its files.
func (c *Catalog) ClearStitches() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stitches = nil
	clear(c.selected)
}

// RenameStitch renames a stitch and notifies rename subscribers once.
func (c *Catalog) RenameStitch(oldName, newName string) error {
	c.mu.Lock()
	err := c.renameLocked(oldName, newName)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notifyRenamed(oldName, newName)
	return nil
}

func (c *Catalog) renameLocked(oldName, newName string) error {
	if newName == "" {
		return fmt.Errorf("%w: stitch name is required", domain.ErrInvalidInput)
	}
	i := c.indexOf(oldName)
	if i < 0 {
		return fmt.Errorf("stitch %q: %w", oldName, domain.ErrNotFound)
	}
	if oldName == newName {
		return nil
	}
	if c.indexOf(newName) >= 0 {
		return fmt.Errorf("%w: %q in catalog %q", domain.ErrDuplicateStitch, newName, c.Name)
	}
	c.stitches[i].Name = newName
	return nil
}

// OnStitchRenamed subscribes fn to renames. The returned func unsubscribes.
func (c *Catalog) OnStitchRenamed(fn RenameFunc) (cancel func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Catalog) notifyRenamed(oldName, newName string) {
	if oldName == newName {
		return
	}
	c.subMu.Lock()
	fns := make([]RenameFunc, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	slog.Debug("stitch renamed", "catalog", c.Name, "old", oldName, "new", newName)
	for _, fn := range fns {
		fn(c.Name, oldName, newName)
	}
}

// Select marks a stitch as checked in views. It reports false if absent.
func (c *Catalog) Select(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(name)
	if i < 0 {
		return false
	}
	c.selected[c.stitches[i]] = true
	return true
}

func (c *Catalog) Deselect(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(name); i >= 0 {
		delete(c.selected, c.stitches[i])
	}
}

func (c *Catalog) IsSelected(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(name)
	return i >= 0 && c.selected[c.stitches[i]]
}

// Selected returns the checked stitches in display order.
func (c *Catalog) Selected() []*domain.Stitch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*domain.Stitch
	for _, s := range c.stitches {
		if c.selected[s] {
			out = append(out, s)
		}
	}
	return out
}

func (c *Catalog) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.selected)
}

// ReloadIcons drops every cached rendering and renders it again, e.g. after
// the color context changed. Stitches without any source art are skipped.
func (c *Catalog) ReloadIcons() error {
	var errs []error
	for _, s := range c.Stitches() {
		s.InvalidateIcon()
		if s.File == "" && len(s.EmbeddedIcon()) == 0 {
			continue
		}
		if _, err := s.Bitmap(c.renderer, c.colors); err != nil {
			errs = append(errs, fmt.Errorf("render %q: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Reset discards all in-memory edits and reloads the catalog from the
// snapshot taken when its backing file was first written.
func (c *Catalog) Reset() error {
	if c.FileName == "" {
		return ErrNoBackingFile
	}
	if err := c.LoadText(c.FileName + OrigSuffix); err != nil {
		return fmt.Errorf("reset catalog %q: %w", c.Name, err)
	}
	slog.Info("catalog reset", "catalog", c.Name, "file", c.FileName)
	return nil
}

// install swaps in a fully parsed catalog. Nothing changes unless every name
// is non-empty and unique.
func (c *Catalog) install(meta Manifest, stitches []*domain.Stitch) error {
	if err := validateStitches(stitches); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Name = meta.Name
	c.Author = meta.Author
	c.Email = meta.Email
	c.Org = meta.Org
	c.URL = meta.URL
	c.Version = meta.Version
	c.stitches = stitches
	clear(c.selected)
	return nil
}

func validateStitches(stitches []*domain.Stitch) error {
	seen := make(map[string]bool, len(stitches))
	for _, s := range stitches {
		if s.Name == "" {
			return fmt.Errorf("%w: stitch without a name", ErrCorrupt)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: %q", domain.ErrDuplicateStitch, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

func (c *Catalog) indexOf(name string) int {
	for i, s := range c.stitches {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func (c *Catalog) bitmap(s *domain.Stitch) []byte {
	if s.File == "" && len(s.EmbeddedIcon()) == 0 {
		return nil
	}
	b, err := s.Bitmap(c.renderer, c.colors)
	if err != nil {
		slog.Debug("icon unavailable, using embedded copy", "catalog", c.Name, "stitch", s.Name, "error", err)
		return s.EmbeddedIcon()
	}
	return b
}

// FileSafeName turns a catalog or stitch name into a portable file name.
func FileSafeName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}
