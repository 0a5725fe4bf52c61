// Package document persists pattern documents: the chart pages, the color
// palette, and the document's own custom stitches, stored together as one
// YAML stream that is replaced atomically on save.
package document

import (
	"sync"

	"github.com/go-git/go-billy/v5"
	"gopkg.in/yaml.v3"

	"github.com/msomdec/stitchworks/internal/catalog"
	"github.com/msomdec/stitchworks/internal/chart"
	"github.com/msomdec/stitchworks/internal/domain"
)

const (
	// FileType is the marker every document starts with.
	FileType = "stitchworks/pattern"
	// Version100 is document format "1.0.0".
	Version100 = 100
	// SoftwareFileVersion is the version this build writes.
	SoftwareFileVersion = Version100
)

// Page is one tab of a document. A page encodes itself as a single subtree of
// the document stream.
type Page interface {
	yaml.Marshaler
	yaml.Unmarshaler
}

// PageFactory creates an empty page for the loader to decode into.
type PageFactory func() Page

// DefaultPage creates chart pages.
func DefaultPage() Page {
	return &chart.Chart{}
}

// StitchRenamer is implemented by pages that refer to stitches by name.
type StitchRenamer interface {
	RenameStitch(oldName, newName string) int
}

// Document is an open pattern.
type Document struct {
	FileName string
	IsSaved  bool
	// CurrentFileVersion is the version the document was read as, or
	// SoftwareFileVersion for a new document.
	CurrentFileVersion int

	Pages    []Page
	Palette  domain.Palette
	Stitches *catalog.Catalog

	mu      sync.Mutex
	cancels []func()
}

// New creates an empty document whose custom stitches live on fs.
func New(fs billy.Filesystem, fileName string) *Document {
	d := &Document{
		FileName:           fileName,
		CurrentFileVersion: SoftwareFileVersion,
		Stitches:           catalog.New(fs, "Custom Stitches"),
	}
	d.Track(d.Stitches)
	return d
}

// AddPage appends a page and marks the document as modified.
func (d *Document) AddPage(p Page) {
	d.Pages = append(d.Pages, p)
	d.IsSaved = false
}

// Track makes the document's pages follow stitch renames in c.
func (d *Document) Track(c *catalog.Catalog) (cancel func()) {
	cancel = c.OnStitchRenamed(func(_, oldName, newName string) {
		d.RenameStitch(oldName, newName)
	})
	d.mu.Lock()
	d.cancels = append(d.cancels, cancel)
	d.mu.Unlock()
	return cancel
}

// RenameStitch rewrites references to oldName on every page and returns the
// number of cells changed.
func (d *Document) RenameStitch(oldName, newName string) int {
	n := 0
	for _, p := range d.Pages {
		if r, ok := p.(StitchRenamer); ok {
			n += r.RenameStitch(oldName, newName)
		}
	}
	if n > 0 {
		d.IsSaved = false
	}
	return n
}

// Close stops following every tracked catalog.
func (d *Document) Close() {
	d.mu.Lock()
	cancels := d.cancels
	d.cancels = nil
	d.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// IsOldFileVersion reports whether the document was read from a version older
// than the one this build writes, i.e. it was upgraded on load. Load rejects
// older versions that have no registered migration, so this can only be true
// once a migration is registered with the codec.
func (d *Document) IsOldFileVersion() bool {
	return d.CurrentFileVersion < SoftwareFileVersion
}
