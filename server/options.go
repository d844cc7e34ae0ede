package server

import "net/http"

// handleOptions advertises the DAV compliance classes and the allowed methods.
func (h *CaldavHandler) handleOptions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(headerDAV, davCapabilities)
	w.Header().Set(headerAllow, allowedMethods)
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
}
