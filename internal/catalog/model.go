package catalog

import "github.com/msomdec/stitchworks/internal/domain"

// Role selects which facet of an item Data returns.
type Role int

const (
	DisplayRole Role = iota
	EditRole
	DecorationRole // icon bitmap bytes
	CheckStateRole // bool
	ToolTipRole
)

// Columns of the tree projection.
const (
	ColumnIcon = iota
	ColumnName
	ColumnDescription
	ColumnCategory
	ColumnWrongSide
	ColumnSelected
	columnCount
)

// ItemFlags describe what a view may do with an item.
type ItemFlags uint

const (
	ItemEnabled ItemFlags = 1 << iota
	ItemSelectable
	ItemEditable
	ItemCheckable
)

// Handle is an opaque reference to one cell of the tree projection. The zero
// Handle is the root. Handles follow their stitch, so they stay valid across
// inserts and removals of other stitches.
type Handle struct {
	column int
	stitch *domain.Stitch
}

func (h Handle) IsValid() bool {
	return h.stitch != nil
}

func (h Handle) Column() int {
	return h.column
}

// TreeModel is a flat list presented as a one-level tree so generic
// hierarchical views can bind to it.
type TreeModel interface {
	Index(row, column int, parent Handle) Handle
	Parent(h Handle) Handle
	Row(h Handle) int
	RowCount(parent Handle) int
	ColumnCount(parent Handle) int
	Data(h Handle, role Role) any
	HeaderData(section int, role Role) any
	Flags(h Handle) ItemFlags
	SetData(h Handle, value any, role Role) bool
}

var _ TreeModel = (*Catalog)(nil)

var headers = [columnCount]string{"Symbol", "Name", "Description", "Category", "Wrong Side", "Selected"}

// Index returns the handle for (row, column) under parent, or the root handle
// when out of range.
func (c *Catalog) Index(row, column int, parent Handle) Handle {
	if parent.IsValid() || column < 0 || column >= columnCount {
		return Handle{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if row < 0 || row >= len(c.stitches) {
		return Handle{}
	}
	return Handle{column: column, stitch: c.stitches[row]}
}

// Parent is always the root: the model has a single level.
func (c *Catalog) Parent(Handle) Handle {
	return Handle{}
}

// Row returns the current row of h, or -1 if its stitch left the catalog.
func (c *Catalog) Row(h Handle) int {
	if !h.IsValid() {
		return -1
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rowOf(h.stitch)
}

func (c *Catalog) RowCount(parent Handle) int {
	if parent.IsValid() {
		return 0
	}
	return c.StitchCount()
}

func (c *Catalog) ColumnCount(Handle) int {
	return columnCount
}

func (c *Catalog) Data(h Handle, role Role) any {
	if !h.IsValid() {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := h.stitch
	if c.rowOf(s) < 0 {
		return nil
	}

	switch role {
	case DisplayRole, EditRole:
		switch h.column {
		case ColumnName:
			return s.Name
		case ColumnDescription:
			return s.Description
		case ColumnCategory:
			return s.Category
		case ColumnWrongSide:
			return s.WrongSide
		}
	case DecorationRole:
		if h.column == ColumnIcon {
			if b := c.bitmap(s); len(b) > 0 {
				return b
			}
		}
	case CheckStateRole:
		if h.column == ColumnSelected {
			return c.selected[s]
		}
	case ToolTipRole:
		return s.Description
	}
	return nil
}

func (c *Catalog) HeaderData(section int, role Role) any {
	if role != DisplayRole || section < 0 || section >= columnCount {
		return nil
	}
	return headers[section]
}

// Flags reports the allowed interactions. Built-in catalogs are read-only by
// convention, so only their selection column stays interactive.
func (c *Catalog) Flags(h Handle) ItemFlags {
	if !h.IsValid() {
		return 0
	}
	f := ItemEnabled | ItemSelectable
	switch h.column {
	case ColumnName, ColumnDescription, ColumnCategory, ColumnWrongSide:
		if !c.IsBuiltIn {
			f |= ItemEditable
		}
	case ColumnSelected:
		f |= ItemCheckable
	}
	return f
}

// SetData edits the attribute behind h. Renames emit one rename notification.
// It reports whether anything changed.
func (c *Catalog) SetData(h Handle, value any, role Role) bool {
	flags := c.Flags(h)

	if h.column == ColumnSelected {
		checked, ok := value.(bool)
		if !ok || role != CheckStateRole || flags&ItemCheckable == 0 {
			return false
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.rowOf(h.stitch) < 0 || c.selected[h.stitch] == checked {
			return false
		}
		if checked {
			c.selected[h.stitch] = true
		} else {
			delete(c.selected, h.stitch)
		}
		return true
	}

	text, ok := value.(string)
	if !ok || role != EditRole || flags&ItemEditable == 0 {
		return false
	}

	c.mu.Lock()
	s := h.stitch
	if c.rowOf(s) < 0 {
		c.mu.Unlock()
		return false
	}

	var oldName string
	changed := true
	switch h.column {
	case ColumnName:
		oldName = s.Name
		if oldName == text || c.renameLocked(oldName, text) != nil {
			changed = false
		}
	case ColumnDescription:
		changed = s.Description != text
		s.Description = text
	case ColumnCategory:
		changed = s.Category != text
		s.Category = text
	case ColumnWrongSide:
		changed = s.WrongSide != text
		s.WrongSide = text
	default:
		changed = false
	}
	c.mu.Unlock()

	if changed && h.column == ColumnName {
		c.notifyRenamed(oldName, text)
	}
	return changed
}

func (c *Catalog) rowOf(s *domain.Stitch) int {
	for i, t := range c.stitches {
		if t == s {
			return i
		}
	}
	return -1
}
