package domain

import "strings"

// Color is one palette entry. Added is the order in which the color joined
// the palette.
type Color struct {
	Value string
	Name  string
	Added int
}

// Palette is the ordered set of colors used by a document.
type Palette struct {
	Colors []Color
}

// Add appends a color unless one with the same value (case-insensitive) exists.
// It reports whether the palette changed.
func (p *Palette) Add(value, name string) bool {
	if p.Has(value) {
		return false
	}
	p.Colors = append(p.Colors, Color{Value: value, Name: name, Added: len(p.Colors)})
	return true
}

func (p *Palette) Has(value string) bool {
	for _, c := range p.Colors {
		if strings.EqualFold(c.Value, value) {
			return true
		}
	}
	return false
}

func (p *Palette) Len() int {
	return len(p.Colors)
}
