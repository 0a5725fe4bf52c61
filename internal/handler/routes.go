package handler

import (
	"net/http"

	"github.com/msomdec/stitchworks/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux. Icon requests render
// bitmaps and go through limiter.
func RegisterRoutes(mux *http.ServeMux, lib *service.LibraryService, limiter *service.TokenBucket) {
	h := NewLibraryHandler(lib)

	mux.HandleFunc("GET /healthz", HandleHealthz(lib))
	mux.HandleFunc("GET /catalogs", h.HandleListCatalogs)
	mux.HandleFunc("GET /catalogs/{name}/stitches", h.HandleListStitches)
	mux.Handle("GET /catalogs/{name}/stitches/{stitch}/icon", RateLimit(limiter, http.HandlerFunc(h.HandleStitchIcon)))
}
