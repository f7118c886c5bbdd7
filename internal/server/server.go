package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/user/moviebuddy-go/internal/store"
)

// Prometheus metrics
var (
	moviesTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "moviebuddy_movies_total",
		Help: "Total number of movies in database",
	})

	showtimesTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "moviebuddy_showtimes_total",
		Help: "Total number of showtimes in database",
	})

	ingestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moviebuddy_ingests_total",
		Help: "Total number of ingestion runs",
	}, []string{"status"})

	scrapeDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "moviebuddy_scrape_duration_seconds",
		Help:    "Duration of scrape runs in seconds",
		Buckets: prometheus.DefBuckets,
	})

	errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moviebuddy_errors_total",
		Help: "Total number of errors",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(moviesTotal)
	prometheus.MustRegister(showtimesTotal)
	prometheus.MustRegister(ingestsTotal)
	prometheus.MustRegister(scrapeDurationSeconds)
	prometheus.MustRegister(errorsTotal)
}

// ScrapeTrigger starts a scrape run if none is in progress.
type ScrapeTrigger interface {
	TryRun(ctx context.Context) bool
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

// Server exposes the query API, the admin endpoints and the ops endpoints.
type Server struct {
	store     store.Store
	trigger   ScrapeTrigger
	secret    string
	validate  *validator.Validate
	router    *http.ServeMux
	server    *http.Server
	startTime time.Time
}

// NewServer creates a new HTTP server instance. trigger may be nil when no
// scheduler is running.
func NewServer(st store.Store, trigger ScrapeTrigger, secret string) *Server {
	s := &Server{
		store:     st,
		trigger:   trigger,
		secret:    secret,
		validate:  validator.New(),
		router:    http.NewServeMux(),
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /api/movies", s.handleListMovies)
	s.router.HandleFunc("GET /api/movies/batch", s.handleMoviesBatch)
	s.router.HandleFunc("GET /api/movie/{sourceID}", s.handleGetMovie)

	s.router.HandleFunc("GET /api/theaters", s.handleListTheaters)
	s.router.HandleFunc("GET /api/theaters/batch", s.handleTheatersBatch)
	s.router.HandleFunc("GET /api/theater/{sourceID}", s.handleGetTheater)

	s.router.HandleFunc("GET /api/showtimes/movie/{sourceID}", s.handleShowtimesByMovie)
	s.router.HandleFunc("GET /api/showtimes/theater/{sourceID}", s.handleShowtimesByTheater)

	s.router.HandleFunc("GET /api/search", s.handleSearch)

	s.router.HandleFunc("POST /api/reviews", s.handleCreateReview)
	s.router.HandleFunc("GET /api/reviews/movie/{sourceID}", s.handleReviewsByMovie)

	s.router.HandleFunc("GET /api/movie-buddy-events", s.handleEventsBatch)
	s.router.HandleFunc("GET /api/movie-buddy-events/{id}", s.handleGetEvent)
	s.router.HandleFunc("GET /api/movie-buddy-events/movie/{sourceID}", s.handleEventsByMovie)
	s.router.HandleFunc("POST /api/movie-buddy-events", s.handleCreateEvent)

	s.router.HandleFunc("POST /api/admin/push-data", s.requireAuth(s.handlePushData))
	s.router.HandleFunc("POST /api/admin/scrape", s.requireAuth(s.handleTriggerScrape))
	s.router.HandleFunc("POST /api/admin/clear", s.requireAuth(s.handleClear))

	s.router.HandleFunc("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
}

// corsMiddleware allows cross-origin requests from any frontend origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth checks the bearer token against the configured secret.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.secret {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

// Start begins listening on the specified port
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      corsMiddleware(s.router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Int("port", port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth returns JSON with status, database connectivity, and uptime
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		dbStatus = fmt.Sprintf("unhealthy: %v", err)
	}

	status := "healthy"
	if dbStatus != "healthy" {
		status = "unhealthy"
	}

	response := HealthResponse{
		Status:   status,
		Database: dbStatus,
		Uptime:   time.Since(s.startTime).Round(time.Second).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode health response")
	}
}

// UpdateCatalogSize updates the catalog gauges after an ingestion run.
func UpdateCatalogSize(movies, showtimes int) {
	moviesTotal.Set(float64(movies))
	showtimesTotal.Set(float64(showtimes))
}

// RecordIngest records an ingestion run metric
func RecordIngest(status string) {
	ingestsTotal.WithLabelValues(status).Inc()
}

// RecordScrapeDuration records the duration of a scrape run
func RecordScrapeDuration(duration time.Duration) {
	scrapeDurationSeconds.Observe(duration.Seconds())
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}

// GetUptime returns the server uptime
func (s *Server) GetUptime() time.Duration {
	return time.Since(s.startTime)
}
