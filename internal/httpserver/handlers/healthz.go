package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
)

type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

type healthzResponse struct {
	Status        string    `json:"status"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	StoreDriver   string    `json:"store_driver"`
	Build         buildInfo `json:"build"`
}

// Healthz is liveness only: it answers 200 while the process serves HTTP,
// whatever the store is doing.
func Healthz(d deps.Deps) http.HandlerFunc {
	build := buildInfo{
		Version:   d.Version,
		Commit:    d.Commit,
		BuildDate: d.BuildDate,
		GoVersion: d.GoVersion,
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: time.Since(d.StartTime).Seconds(),
			StoreDriver:   d.StoreDriver,
			Build:         build,
		})
	}
}
