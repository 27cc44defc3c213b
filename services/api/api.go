package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"feedswitch/pkg/bus"
)

const (
	usersCreatedTopic  = "feedswitch.users.created"
	tokensCreatedTopic = "feedswitch.tokens.created"
	tokensDeletedTopic = "feedswitch.tokens.deleted"
)

// Store holds external dependencies required by the API layer.
type Store struct {
	DB  *pgxpool.Pool
	ORM *gorm.DB
	Bus *bus.Bus
}

// API wires dependencies and configuration for HTTP handlers.
type API struct {
	store  *Store
	config Config
	logger *log.Logger
}

// New initialises the API layer with sane defaults applied to the provided
// configuration. The pgx pool and bus may be nil; user listing and event
// publishing degrade accordingly.
func New(store *Store, cfg Config, logger *log.Logger) (*API, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if store.ORM == nil {
		return nil, errors.New("store ORM is required")
	}
	if logger == nil {
		logger = log.Default()
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = defaultRateLimitMax
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = defaultRateLimitWindow
	}

	return &API{
		store:  store,
		config: cfg,
		logger: logger,
	}, nil
}

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(httprate.LimitByIP(a.config.RateLimitMax, a.config.RateLimitWindow))

	r.Get("/health", a.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", a.handleCreateOrGetUser)
		r.Get("/users", a.handleListUsers)
		r.Get("/tokens/{userId}", a.handleListTokens)
		r.Post("/tokens", a.handleCreateToken)
		r.Put("/tokens/{tokenId}", a.handleUpdateToken)
		r.Delete("/tokens/{tokenId}", a.handleDeleteToken)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": "Route not found"})
	})

	return r, nil
}

// recoverer turns handler panics into the generic 500 body instead of
// leaking a stack trace to the caller.
func (a *API) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				a.logger.Printf("ERROR panic in %s %s: %v", r.Method, r.URL.Path, rec)
				respondJSON(w, http.StatusInternalServerError, map[string]any{"error": "Something went wrong!"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
