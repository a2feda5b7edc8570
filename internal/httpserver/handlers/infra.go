package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/relay/internal/relay"
)

type storeStatus struct {
	Driver              string `json:"driver"`
	OK                  bool   `json:"ok"`
	LastCheck           string `json:"last_check"`
	ConsecutiveFailures int    `json:"consecutive_failures,omitempty"`
	Error               string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode          string      `json:"mode"`
	UptimeSeconds float64     `json:"uptime_seconds"`
	Store         storeStatus `json:"store"`
	Relay         relay.Stats `json:"relay"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		probe := d.StoreProbe.Status()
		lastCheck := "never"
		if !probe.CheckedAt.IsZero() {
			lastCheck = probe.CheckedAt.UTC().Format(time.RFC3339)
		}

		resp := infraResponse{
			UptimeSeconds: time.Since(d.StartTime).Seconds(),
			Store: storeStatus{
				Driver:              d.StoreDriver,
				OK:                  probe.OK,
				LastCheck:           lastCheck,
				ConsecutiveFailures: probe.Failures,
				Error:               probe.Err,
			},
			Relay: d.Relay.Stats(),
		}
		resp.Mode = determineMode(resp)

		writeJSON(w, http.StatusOK, resp)
	}
}

// determineMode summarizes the components in one word.
func determineMode(resp infraResponse) string {
	if !resp.Store.OK {
		// relays still run, history is not being written
		return "degraded"
	}
	return "operational"
}
