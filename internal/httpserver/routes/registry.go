package routes

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type group struct {
	reg Registrar
	mws []Middleware
}

// groups is filled from init() in each routes file.
var groups = map[string]group{}

// Register adds a named route group. Each group may carry its own middlewares.
// Registering the same name twice is a programming error and panics.
func Register(name string, reg Registrar, mws ...Middleware) {
	if _, dup := groups[name]; dup {
		panic(fmt.Sprintf("routes: group %q registered twice", name))
	}
	groups[name] = group{reg: reg, mws: mws}
}

// Names lists registered groups in mount order.
func Names() []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterAll mounts every group on r, in name order so the router is
// built the same way on every start.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, name := range Names() {
		g := groups[name]
		if len(g.mws) == 0 {
			g.reg(r, d)
			continue
		}
		g.reg(r.With(g.mws...), d)
	}
}
