package domain

import (
	"bytes"

	"github.com/msomdec/stitchworks/internal/icon"
)

// Stitch is one stitch symbol definition. It is owned by exactly one catalog;
// everything else refers to it by Name.
type Stitch struct {
	Name        string
	File        string // Source art: raster image or SVG
	Description string
	Category    string // "basic", "decrease", "increase", "post", "specialty", "action", ...
	WrongSide   string // Symbol used on reverse-facing rows
	Rotation    float64
	Angle       float64

	embedded     []byte
	baked        float64 // Rotation the embedded bitmap was rendered at
	renderedFile string  // File, while it still names an extracted rendering
	icon         icon.Entry
}

// NewStitch creates an empty definition with the given name.
func NewStitch(name string) *Stitch {
	return &Stitch{Name: name}
}

// IsVector reports whether the source art is an SVG file.
func (s *Stitch) IsVector() bool {
	return icon.Source{Path: s.File}.IsVector()
}

// Bitmap returns the rendered icon, rendering it on first use or whenever the
// source, rotation, or colors changed since the last rendering.
func (s *Stitch) Bitmap(r icon.Renderer, cc icon.ColorContext) ([]byte, error) {
	return s.icon.Get(s.iconKey(cc), func() ([]byte, error) {
		if r == nil {
			return nil, icon.ErrNoRenderer
		}
		return r.Render(icon.Source{
			Path:         s.File,
			Data:         s.embedded,
			PathRendered: s.FileIsRendering(),
			Baked:        s.baked,
		}, s.Rotation, cc)
	})
}

// SetEmbeddedIcon stores a bitmap shipped inside a catalog file, rendered at
// the stitch's current Rotation. It seeds the cache and remains the render
// fallback when File is unreadable. Later renderings from it only turn it by
// the change in Rotation.
func (s *Stitch) SetEmbeddedIcon(bitmap []byte, cc icon.ColorContext) {
	if len(bitmap) == 0 {
		return
	}
	s.embedded = bytes.Clone(bitmap)
	s.baked = s.Rotation
	s.icon.Preload(s.iconKey(cc), bitmap)
}

// SetRenderedFile points File at a bitmap that is already a rendering of this
// stitch at its current Rotation, such as an icon extracted from a binary
// catalog. Assigning File directly makes it source art again.
func (s *Stitch) SetRenderedFile(path string) {
	s.File = path
	s.renderedFile = path
	s.baked = s.Rotation
}

// FileIsRendering reports whether File names a rendering rather than source art.
func (s *Stitch) FileIsRendering() bool {
	return s.File != "" && s.File == s.renderedFile
}

// EmbeddedIcon returns the bitmap loaded from a catalog file, if any.
func (s *Stitch) EmbeddedIcon() []byte {
	return s.embedded
}

// InvalidateIcon drops the cached rendering.
func (s *Stitch) InvalidateIcon() {
	s.icon.Invalidate()
}

// Clone copies the attributes and embedded icon. The rendering cache is not shared.
func (s *Stitch) Clone() *Stitch {
	return &Stitch{
		Name:         s.Name,
		File:         s.File,
		Description:  s.Description,
		Category:     s.Category,
		WrongSide:    s.WrongSide,
		Rotation:     s.Rotation,
		Angle:        s.Angle,
		embedded:     bytes.Clone(s.embedded),
		baked:        s.baked,
		renderedFile: s.renderedFile,
	}
}

func (s *Stitch) iconKey(cc icon.ColorContext) icon.Key {
	return icon.Key{Source: s.File, Rotation: s.Rotation, Colors: cc}
}
