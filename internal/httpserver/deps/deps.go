package deps

import (
	"time"

	"github.com/MrSnakeDoc/relay/internal/history"
	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/relay"
	"github.com/MrSnakeDoc/relay/internal/scheduler"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	AllowedCIDRS []string              // IPs allowed to access healthz/readyz/infra endpoints
	AllowedHosts []string              // Host values accepted on the same endpoints
	TrustProxy   bool                  // true if running behind a trusted reverse proxy (e.g., cloudflared)
	StoreDriver  string                // history backend name, reported by /infra
	Relay        *relay.Service        // outbound call + history write
	History      *history.Service      // list/show/delete over recorded attempts
	StoreProbe   *scheduler.StoreProbe // periodic store ping feeding readyz/infra
	MaxBodyBytes int64                 // inbound relay payload cap
}
