package rest

import (
	"net/http"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/application/services"
	"github.com/gumnutdev/quick-notes/interfaces/http/rest/handlers"
	"github.com/gumnutdev/quick-notes/interfaces/http/rest/middleware"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
	"github.com/gumnutdev/quick-notes/pkg/observability"
)

// Options toggles the optional parts of the router.
type Options struct {
	EnableCORS     bool
	AllowedOrigins []string
	Debug          bool
}

// Router creates and configures the HTTP router
type Router struct {
	service *services.NoteService
	metrics *observability.Collector
	tracer  *observability.Tracer
	options Options
	logger  *zap.Logger
}

// NewRouter creates a new router instance. metrics and tracer may be nil.
func NewRouter(
	service *services.NoteService,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	options Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		service: service,
		metrics: metrics,
		tracer:  tracer,
		options: options,
		logger:  logger,
	}
}

// Setup returns the routes, wrapped in an X-Ray segment handler when
// tracing is enabled.
func (rt *Router) Setup() http.Handler {
	mux := rt.Routes()
	if rt.tracer.Enabled() {
		return xray.Handler(xray.NewFixedSegmentNamer(rt.tracer.ServiceName()), mux)
	}
	return mux
}

// Routes configures all routes and middleware. The Lambda adapter needs
// the bare mux; Lambda opens the trace segment itself.
func (rt *Router) Routes() *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.options.EnableCORS {
		origins := rt.options.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	errorHandler := pkgerrors.NewErrorHandler(rt.logger, rt.options.Debug)
	health := handlers.NewHealthHandler(rt.service, errorHandler, rt.logger)
	notes := handlers.NewNoteHandler(rt.service, errorHandler, rt.logger)
	graphs := handlers.NewGraphHandler(rt.service, errorHandler, rt.logger)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.HandleStatus(w, r, http.StatusNotFound, "Route not found")
	})

	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", health.Health)

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", notes.ListNotes)
			r.Post("/", notes.SaveNote)
			r.Get("/{id}", notes.GetNote)
			r.Put("/{id}", notes.UpdateNote)
			r.Delete("/{id}", notes.DeleteNote)
			r.Get("/{id}/links/candidates", notes.LinkCandidates)
			r.Post("/{id}/links", notes.AddLink)
			r.Delete("/{id}/links/{targetId}", notes.RemoveLink)
		})

		r.Route("/graph", func(r chi.Router) {
			r.Get("/", graphs.GetGraph)
			r.Post("/connect", graphs.Connect)
		})
	})

	return router
}
