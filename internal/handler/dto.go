package handler

import (
	"net/url"

	"github.com/msomdec/stitchworks/internal/catalog"
)

// CatalogDTO is the JSON representation of a library catalog.
type CatalogDTO struct {
	Name        string `json:"name"`
	Author      string `json:"author,omitempty"`
	URL         string `json:"url,omitempty"`
	Version     int    `json:"version"`
	IsBuiltIn   bool   `json:"isBuiltIn"`
	IsMasterSet bool   `json:"isMasterSet"`
	StitchCount int    `json:"stitchCount"`
}

func toCatalogDTO(c *catalog.Catalog) CatalogDTO {
	return CatalogDTO{
		Name:        c.Name,
		Author:      c.Author,
		URL:         c.URL,
		Version:     c.Version,
		IsBuiltIn:   c.IsBuiltIn,
		IsMasterSet: c.IsMasterSet,
		StitchCount: c.StitchCount(),
	}
}

// StitchDTO is one row of a catalog's tree projection.
type StitchDTO struct {
	Row         int    `json:"row"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	WrongSide   string `json:"wrongSide,omitempty"`
	Selected    bool   `json:"selected"`
	Editable    bool   `json:"editable"`
	IconURL     string `json:"iconUrl,omitempty"`
}

// stitchRows reads every row of the catalog through its tree projection.
func stitchRows(m catalog.TreeModel, catalogName string) []StitchDTO {
	root := catalog.Handle{}
	rows := m.RowCount(root)
	dtos := make([]StitchDTO, 0, rows)
	for row := 0; row < rows; row++ {
		name := m.Index(row, catalog.ColumnName, root)
		dto := StitchDTO{
			Row:         m.Row(name),
			Name:        text(m.Data(name, catalog.DisplayRole)),
			Description: text(m.Data(m.Index(row, catalog.ColumnDescription, root), catalog.DisplayRole)),
			Category:    text(m.Data(m.Index(row, catalog.ColumnCategory, root), catalog.DisplayRole)),
			WrongSide:   text(m.Data(m.Index(row, catalog.ColumnWrongSide, root), catalog.DisplayRole)),
			Editable:    m.Flags(name)&catalog.ItemEditable != 0,
		}
		dto.Selected, _ = m.Data(m.Index(row, catalog.ColumnSelected, root), catalog.CheckStateRole).(bool)
		if m.Data(m.Index(row, catalog.ColumnIcon, root), catalog.DecorationRole) != nil {
			dto.IconURL = "/catalogs/" + url.PathEscape(catalogName) + "/stitches/" + url.PathEscape(dto.Name) + "/icon"
		}
		dtos = append(dtos, dto)
	}
	return dtos
}

func text(v any) string {
	s, _ := v.(string)
	return s
}
