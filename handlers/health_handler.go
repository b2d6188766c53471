package handlers

import (
	"net/http"

	"kmz-server/middleware"
)

// Health reports liveness only; dependencies are not checked.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
