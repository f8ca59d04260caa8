package handlers

import "net/http"

// HandleHealth reports that the process is serving.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
