package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/model"
	webembed "github.com/erazemk/inventar/web"
)

// Inventory is the part of the item store the pages use.
type Inventory interface {
	Register(ctx context.Context, name, description string, photo []byte) (model.Item, error)
	List(ctx context.Context) []model.Item
	Delete(ctx context.Context, id int64) (model.Mutation, error)
	SetPhoto(ctx context.Context, id int64, payload []byte) (model.Mutation, error)
}

// Server holds all dependencies for page handlers.
type Server struct {
	Inventory     Inventory
	Templates     *Templates
	Logger        *zap.SugaredLogger
	MaxPhotoBytes int64
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(inv Inventory, logger *zap.SugaredLogger, maxPhotoBytes int64) (chi.Router, error) {
	templates, err := LoadTemplates(logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Inventory:     inv,
		Templates:     templates,
		Logger:        logger,
		MaxPhotoBytes: maxPhotoBytes,
	}

	r := chi.NewRouter()

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	r.Get("/", s.ItemsPage)
	r.Post("/items", s.ItemCreateSubmit)
	r.Post("/items/{id}/photo", s.ItemPhotoSubmit)
	r.Post("/items/{id}/delete", s.ItemDeleteSubmit)

	return r, nil
}
