// Package icon renders stitch symbol art into bitmaps and caches the results.
package icon

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrNoSource          = errors.New("no icon source")
	ErrUnsupportedSource = errors.New("unsupported icon source")
	ErrNoRenderer        = errors.New("no icon renderer")
)

// ColorContext is the set of colors applied when rendering stitch art.
// Changing it invalidates every cached rendering.
type ColorContext struct {
	Foreground color.NRGBA
	Background color.NRGBA
}

// DefaultColorContext draws symbols in opaque black on a transparent background.
func DefaultColorContext() ColorContext {
	return ColorContext{Foreground: color.NRGBA{A: 0xff}}
}

// ParseHexColor parses "#rrggbb" or "#rrggbbaa".
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("parse color %q: want #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Source is what a Renderer draws from. Path names source art and Data is a
// bitmap already rendered at Baked degrees that stands in when Path can't be
// read. PathRendered marks Path itself as such a rendering, as with icons
// extracted from a binary catalog. Renderings are only turned by the
// difference to the requested rotation and are never recolored.
type Source struct {
	Path         string
	Data         []byte
	PathRendered bool
	Baked        float64
}

// IsVector reports whether the source art is an SVG file.
func (s Source) IsVector() bool {
	return strings.EqualFold(filepath.Ext(s.Path), ".svg")
}

// Renderer turns source art into encoded bitmap bytes.
// Implementations must be deterministic for a given (source, rotation, colors).
type Renderer interface {
	Render(src Source, rotation float64, cc ColorContext) ([]byte, error)
}

// Key identifies one rendering of a stitch symbol.
type Key struct {
	Source   string
	Rotation float64
	Colors   ColorContext
}
