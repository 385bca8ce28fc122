package handler

import (
	"bytes"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crave-grocer/api/internal/ledger"
)

// AdminHandler exposes operator-only ledger access.
type AdminHandler struct {
	ledger ledger.Lister
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(l ledger.Lister) *AdminHandler {
	return &AdminHandler{ledger: l}
}

// RegisterRoutes registers admin endpoints. Expected to be mounted at /admin
// behind RequireRole(ADMIN).
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ledger", h.Ledger)
}

// Ledger handles GET /admin/ledger and returns the whole ledger document.
func (h *AdminHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := ledger.Export(r.Context(), h.ledger, &buf); err != nil {
		log.Printf("ERROR: export ledger: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
