package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/utils"
)

// AllowOnlyCIDRS restricts a route group to the given IPs/CIDRs and answers
// 403 to everyone else. An empty list lets every caller through.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	list, rejected := utils.ParseAllowList(allowed)
	for _, entry := range rejected {
		log.Warn("ignoring invalid allow-list entry", logger.String("entry", entry))
	}
	if list.Empty() {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !list.Contains(ip) {
				log.Warn("ops endpoint denied",
					logger.String("ip", ip),
					logger.String("path", r.URL.Path),
					logger.Bool("trust_proxy", trustProxy))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
