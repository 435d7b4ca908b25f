package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/sudokucon-relay/internal/hub"
	"github.com/DoyleJ11/sudokucon-relay/internal/relay"
)

func SetupRoutes(h *hub.Hub, viewURL ViewURLFunc, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	a := &api{hub: h, viewURL: viewURL, log: log.With(zap.String("component", "httpapi"))}

	r := chi.NewRouter()
	r.Get("/healthz", Healthz)

	r.Route("/relay", func(r chi.Router) {
		r.Post("/", a.ConnectRelay)
		r.Get("/", a.GetRelay)
		r.Delete("/", a.DeleteRelay)
		r.Patch("/settings", a.PatchSettings)
		// the private view has (re)loaded and needs the room's state
		r.Post("/ready", a.post(relay.Resync{}))
		r.Post("/mark", a.post(relay.MarkSelections{}))
	})
	return r
}
