package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/msomdec/stitchworks/internal/catalog"
	"github.com/msomdec/stitchworks/internal/domain"
	"github.com/msomdec/stitchworks/internal/service"
)

// LibraryHandler serves a read-only view of the stitch library.
type LibraryHandler struct {
	lib *service.LibraryService
}

func NewLibraryHandler(lib *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{lib: lib}
}

// HandleListCatalogs lists every installed catalog.
func (h *LibraryHandler) HandleListCatalogs(w http.ResponseWriter, r *http.Request) {
	catalogs := h.lib.Catalogs()
	dtos := make([]CatalogDTO, len(catalogs))
	for i, c := range catalogs {
		dtos[i] = toCatalogDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// HandleListStitches lists a catalog's stitches in display order, optionally
// filtered by ?category=.
func (h *LibraryHandler) HandleListStitches(w http.ResponseWriter, r *http.Request) {
	c, ok := h.catalog(w, r)
	if !ok {
		return
	}

	rows := stitchRows(c, c.Name)
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if strings.EqualFold(row.Category, category) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleStitchIcon sends the rendered icon of one stitch as PNG.
func (h *LibraryHandler) HandleStitchIcon(w http.ResponseWriter, r *http.Request) {
	c, ok := h.catalog(w, r)
	if !ok {
		return
	}

	name := r.PathValue("stitch")
	root := catalog.Handle{}
	for row := 0; row < c.RowCount(root); row++ {
		if c.Data(c.Index(row, catalog.ColumnName, root), catalog.DisplayRole) != name {
			continue
		}
		b, _ := c.Data(c.Index(row, catalog.ColumnIcon, root), catalog.DecorationRole).([]byte)
		if len(b) == 0 {
			writeError(w, http.StatusNotFound, "stitch has no icon")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(b); err != nil {
			slog.Error("write icon", "catalog", c.Name, "stitch", name, "error", err)
		}
		return
	}
	writeError(w, http.StatusNotFound, "stitch not found")
}

func (h *LibraryHandler) catalog(w http.ResponseWriter, r *http.Request) (*catalog.Catalog, bool) {
	c, err := h.lib.Catalog(r.PathValue("name"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "catalog not found")
			return nil, false
		}
		slog.Error("get catalog", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return c, true
}
