// Package handlers exposes the catalog services over HTTP.
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"

	"product-service/internal/config"
	"product-service/internal/domain/catalog"
	"product-service/internal/observability"
	"product-service/internal/services"
)

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

type Handler struct {
	config     *config.Config
	categories catalog.CategoryService
	products   catalog.ProductService
	tags       catalog.TagService
	files      catalog.FileStorageService

	logger   *observability.Logger
	validate *validator.Validate
	tracer   trace.Tracer
	metrics  *observability.HTTPMetrics
	checks   map[string]ReadinessCheck
}

// Option customises a Handler
type Option func(*Handler)

// WithReadinessCheck adds a named check to /readyz
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(h *Handler) {
		h.checks[name] = check
	}
}

// WithTracing creates a server span per request
func WithTracing(tracer trace.Tracer) Option {
	return func(h *Handler) {
		h.tracer = tracer
	}
}

// WithMetrics records HTTP request metrics
func WithMetrics(metrics *observability.HTTPMetrics) Option {
	return func(h *Handler) {
		h.metrics = metrics
	}
}

func New(container *services.Container, logger *observability.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	h := &Handler{
		config:     container.Config(),
		categories: container.CategoryService(),
		products:   container.ProductService(),
		tags:       container.TagService(),
		files:      container.FileStorageService(),
		logger:     logger.With("http"),
		validate:   newValidator(),
		checks:     make(map[string]ReadinessCheck),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.AccessLogMiddleware(h.logger))
	r.Use(middleware.Recoverer)
	if h.tracer != nil {
		r.Use(observability.TracingMiddleware(h.tracer))
	}
	if h.metrics != nil {
		r.Use(observability.MetricsMiddleware(h.metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.config.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.healthzHandler)
	r.Get("/readyz", h.readyzHandler)

	r.Route("/category", func(r chi.Router) {
		r.Get("/", h.listCategoriesHandler)
		r.Post("/", h.createCategoryHandler)
		r.Get("/name/{name}", h.getCategoryHandler)
		r.Delete("/name/{name}", h.deleteCategoryHandler)
	})

	r.Route("/product", func(r chi.Router) {
		r.Get("/", h.listProductsHandler)
		r.Post("/", h.createProductHandler)
		r.Put("/", h.updateProductHandler)
		r.Delete("/", h.deleteProductHandler)

		r.Post("/search", h.searchProductsHandler)
		r.Get("/search/tags", h.searchByTagsHandler)
		r.Get("/search/tags/all", h.searchByAllTagsHandler)
		r.Get("/search/tag-pattern", h.searchByTagPatternHandler)
		r.Post("/inventory", h.inventoryHandler)
		r.Post("/inventoryManager", h.inventoryHandler)

		// Static segments above take precedence over the category name
		r.Get("/{category}", h.listProductsByCategoryHandler)

		r.Post("/{id}/tags", h.addProductTagsHandler)
		r.Delete("/{id}/tags", h.removeProductTagsHandler)

		r.Post("/{id}/image", h.uploadImageHandler)
		r.Get("/{id}/image/{fileName}", h.downloadImageHandler)
		r.Get("/{id}/images", h.listImagesHandler)
		r.Delete("/{id}/image/{imageId}", h.deleteImageHandler)
	})

	r.Route("/tag", func(r chi.Router) {
		r.Get("/", h.listTagsHandler)
		r.Post("/", h.createTagHandler)
		r.Get("/search", h.searchTagsHandler)
		r.Get("/name/{name}", h.getTagHandler)
		r.Delete("/{id}", h.deleteTagHandler)
	})

	return r
}
