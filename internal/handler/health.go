package handler

import (
	"net/http"

	"github.com/msomdec/stitchworks/internal/service"
)

// HandleHealthz reports the server as healthy once the library has a master set.
func HandleHealthz(lib *service.LibraryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if lib.MasterSet() == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "library not open"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
