// Package api exposes the two-factor login flow and the role-gated file
// operations over REST.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/sharedrop/challenge"
	"github.com/jmcleod/sharedrop/filestore"
	"github.com/jmcleod/sharedrop/identity"
	"github.com/jmcleod/sharedrop/token"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	users  *identity.Store
	codec  *token.Codec
	broker challenge.Broker
	files  filestore.Store
	events *eventLogger
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for security events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.events = newEventLogger(logger)
	}
}

// New creates a new API instance.
func New(users *identity.Store, codec *token.Codec, broker challenge.Broker, files filestore.Store, opts ...Option) *API {
	a := &API{
		users:  users,
		codec:  codec,
		broker: broker,
		files:  files,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.events == nil {
		a.events = newEventLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/openapi.yaml",
		Path:    "docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/openapi.yaml",
		Path:    "redoc",
	}, nil))

	r.Post("/login", a.Login)
	r.Post("/send-code", a.SendCode)
	r.Post("/verify-code", a.VerifyCode)

	// Listing and downloads are open to unauthenticated callers; the
	// original UI fetches the file list before login.
	r.Get("/files", a.ListFiles)
	r.Get("/uploads/{name}", a.Download)

	r.With(a.RequireAuth).Post("/upload", a.Upload)
	r.With(a.RequireAuth).Delete("/files", a.DeleteFile)
	r.With(a.RequireAuth).Post("/rename-file", a.RenameFile)

	return r
}
