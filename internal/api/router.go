package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// Inventory is the item store the handlers call into.
type Inventory interface {
	Register(ctx context.Context, name, description string, photo []byte) (model.Item, error)
	Get(ctx context.Context, id int64) (model.Item, error)
	List(ctx context.Context) []model.Item
	Update(ctx context.Context, id int64, u model.ItemUpdate) (model.Item, error)
	Delete(ctx context.Context, id int64) (model.Mutation, error)
	SetPhoto(ctx context.Context, id int64, payload []byte) (model.Mutation, error)
	GetPhoto(ctx context.Context, id int64) ([]byte, error)
	Search(ctx context.Context, id int64) (model.ItemView, error)
	Stats() store.Stats
}

var _ Inventory = (*store.Inventory)(nil)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(inv Inventory, logger *zap.SugaredLogger, maxPhotoBytes int64) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	items := &ItemsHandler{Inventory: inv, Logger: logger, MaxPhotoBytes: maxPhotoBytes}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", items.Health)
		r.Get("/search", items.Search)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", items.List)
			r.Post("/", items.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", items.Get)
				r.Put("/", items.Update)
				r.Patch("/", items.Update)
				r.Delete("/", items.Delete)

				r.Put("/photo", items.UploadPhoto)
				r.Post("/photo", items.UploadPhoto)
				r.Get("/photo", items.GetPhoto)
				r.Get("/photo/thumbnail", items.GetThumbnail)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, logger, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, logger, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
