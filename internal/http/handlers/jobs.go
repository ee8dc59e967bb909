package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetJob returns the queue state of a job for polling.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	view, err := a.Jobs.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, view)
}
