package router

import (
	"net/http"

	"go.uber.org/fx"

	"github.com/go-chi/chi/v5"
)

// Handler is one HTTP endpoint. Handlers mount themselves on the shared mux.
type Handler interface {
	RegisterRoute(r *chi.Mux)
	Handle(w http.ResponseWriter, r *http.Request)
}

// AsRoute annotates a handler constructor so it joins the "handlers" group.
func AsRoute(constructor any) any {
	return fx.Annotate(
		constructor,
		fx.As(new(Handler)),
		fx.ResultTags(`group:"handlers"`),
	)
}

// Mount registers every handler and returns the resulting route table as
// "METHOD /pattern" strings.
func Mount(r *chi.Mux, handlers []Handler) ([]string, error) {
	for _, h := range handlers {
		h.RegisterRoute(r)
	}

	var routes []string
	err := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	})
	return routes, err
}
