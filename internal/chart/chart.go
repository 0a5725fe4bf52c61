// Package chart holds the chart pages of a pattern document: a grid of stitch
// cells plus free-floating indicators. Each chart encodes itself as one YAML
// subtree of the document stream.
package chart

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/msomdec/stitchworks/internal/domain"
)

type Style string

const (
	StyleRounds Style = "rounds"
	StyleRows   Style = "rows"
)

// Cell places a stitch on the chart grid. Stitch is a name resolved against
// the document's custom stitches and then the library.
type Cell struct {
	Row      int     `yaml:"row"`
	Column   int     `yaml:"column"`
	Stitch   string  `yaml:"stitch"`
	Color    string  `yaml:"color,omitempty"`
	Rotation float64 `yaml:"rotation,omitempty"`
	X        float64 `yaml:"x,omitempty"`
	Y        float64 `yaml:"y,omitempty"`
}

// Indicator is an annotation drawn on top of the chart.
type Indicator struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Text  string  `yaml:"text,omitempty"`
	Style string  `yaml:"style,omitempty"`
}

// Chart is one page (tab) of a document.
type Chart struct {
	Name       string      `yaml:"name"`
	Style      Style       `yaml:"style"`
	Cells      []Cell      `yaml:"cells,omitempty"`
	Indicators []Indicator `yaml:"indicators,omitempty"`
}

// New creates an empty chart.
func New(name string, style Style) *Chart {
	return &Chart{Name: name, Style: style}
}

// SetCell places a stitch, replacing whatever occupied (row, column).
func (c *Chart) SetCell(cell Cell) {
	for i := range c.Cells {
		if c.Cells[i].Row == cell.Row && c.Cells[i].Column == cell.Column {
			c.Cells[i] = cell
			return
		}
	}
	c.Cells = append(c.Cells, cell)
}

// RenameStitch points every cell using oldName at newName and returns how
// many cells changed.
func (c *Chart) RenameStitch(oldName, newName string) int {
	n := 0
	for i := range c.Cells {
		if c.Cells[i].Stitch == oldName {
			c.Cells[i].Stitch = newName
			n++
		}
	}
	return n
}

// StitchNames lists the distinct stitches used, sorted.
func (c *Chart) StitchNames() []string {
	var names []string
	for _, cell := range c.Cells {
		if !slices.Contains(names, cell.Stitch) {
			names = append(names, cell.Stitch)
		}
	}
	slices.Sort(names)
	return names
}

// Colors lists the distinct cell colors in order of first use.
func (c *Chart) Colors() []string {
	var colors []string
	for _, cell := range c.Cells {
		if cell.Color == "" {
			continue
		}
		if !slices.ContainsFunc(colors, func(s string) bool { return strings.EqualFold(s, cell.Color) }) {
			colors = append(colors, cell.Color)
		}
	}
	return colors
}

// chartFile avoids recursing into MarshalYAML/UnmarshalYAML.
type chartFile Chart

func (c *Chart) MarshalYAML() (any, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return (*chartFile)(c), nil
}

func (c *Chart) UnmarshalYAML(node *yaml.Node) error {
	var f chartFile
	if err := node.Decode(&f); err != nil {
		return err
	}
	decoded := Chart(f)
	if err := decoded.validate(); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = decoded
	return nil
}

func (c *Chart) validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: chart name is required", domain.ErrInvalidInput)
	}
	if c.Style != StyleRounds && c.Style != StyleRows {
		return fmt.Errorf("%w: chart %q style must be 'rounds' or 'rows'", domain.ErrInvalidInput, c.Name)
	}
	for i, cell := range c.Cells {
		if cell.Row < 0 || cell.Column < 0 {
			return fmt.Errorf("%w: chart %q cell %d has a negative position", domain.ErrInvalidInput, c.Name, i+1)
		}
		if cell.Stitch == "" {
			return fmt.Errorf("%w: chart %q cell %d has no stitch", domain.ErrInvalidInput, c.Name, i+1)
		}
	}
	return nil
}
