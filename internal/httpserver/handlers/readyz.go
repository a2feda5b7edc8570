package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Readyz answers 503 until the last store probe succeeded.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		st := d.StoreProbe.Status()
		if !st.OK {
			msg := st.Err
			if st.CheckedAt.IsZero() {
				msg = "store not probed yet"
			}
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false, Error: msg})
			return
		}

		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
