package rest

import (
	"encoding/json"
	"net/http"

	"klv-monitor/internal/prefs"
)

type PrefsHandler struct {
	store *prefs.Store
}

func NewPrefsHandler(store *prefs.Store) *PrefsHandler {
	return &PrefsHandler{store: store}
}

func (h *PrefsHandler) Show(w http.ResponseWriter, r *http.Request) {
	JSONSuccess(w, http.StatusOK, APIResponse{Data: h.store.Current()})
}

// Update replaces the full preferences document. Missing fields fall back to
// the current values, so a client may send only what it changes.
func (h *PrefsHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := h.store.Current()
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if validationErrors := ValidateStruct(p); len(validationErrors) > 0 {
		JSONValidationError(w, validationErrors)
		return
	}

	if err := h.store.Save(p); err != nil {
		JSONError(w, http.StatusInternalServerError, "Failed to persist preferences")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "Preferences saved.",
		Data:    h.store.Current(),
	})
}
