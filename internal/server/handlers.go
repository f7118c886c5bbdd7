package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/user/moviebuddy-go/internal/model"
	"github.com/user/moviebuddy-go/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// idsParam parses a comma-separated ids query parameter.
func idsParam(r *http.Request) []string {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := s.store.ListMovies(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list movies")
		RecordError("query")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, movies)
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	movie, err := s.store.GetMovie(r.Context(), r.PathValue("sourceID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		log.Error().Err(err).Msg("Failed to get movie")
		RecordError("query")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

func (s *Server) handleMoviesBatch(w http.ResponseWriter, r *http.Request) {
	movies, err := s.store.GetMovies(r.Context(), idsParam(r))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get movies")
		RecordError("query")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, movies)
}

func (s *Server) handleListTheaters(w http.ResponseWriter, r *http.Request) {
	theaters, err := s.store.ListTheaters(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list theaters")
		RecordError("query")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, theaters)
}

func (s *Server) handleGetTheater(w http.ResponseWriter, r *http.Request) {
	theater, err := s.store.GetTheater(r.Context(), r.PathValue("sourceID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		log.Error().Err(err).Msg("Failed to get theater")
		RecordError("query")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, theater)
}

func (s *Server) handleTheatersBatch(w http.ResponseWriter, r *http.Request) {
	theaters, err := s.store.GetTheaters(r.Context(), idsParam(r))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get theaters")
		RecordError("query")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, theaters)
}

func (s *Server) handleShowtimesByMovie(w http.ResponseWriter, r *http.Request) {
	showtimes, err := s.store.ShowtimesByMovie(r.Context(), r.PathValue("sourceID"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get showtimes by movie")
		RecordError("query")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, showtimes)
}

func (s *Server) handleShowtimesByTheater(w http.ResponseWriter, r *http.Request) {
	showtimes, err := s.store.ShowtimesByTheater(r.Context(), r.PathValue("sourceID"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get showtimes by theater")
		RecordError("query")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, showtimes)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	result, err := s.store.Search(r.Context(), query)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search")
		RecordError("query")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var review model.Review
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(&review); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreateReview(r.Context(), &review); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "movie not found")
			return
		}
		log.Error().Err(err).Msg("Failed to create review")
		RecordError("write")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, &review)
}

func (s *Server) handleReviewsByMovie(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.store.ReviewsByMovie(r.Context(), r.PathValue("sourceID"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get reviews")
		RecordError("query")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) handleEventsBatch(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.GetEvents(r.Context(), idsParam(r))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get events")
		RecordError("query")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.store.GetEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		log.Error().Err(err).Msg("Failed to get event")
		RecordError("query")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleEventsByMovie(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.EventsByMovie(r.Context(), r.PathValue("sourceID"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get events by movie")
		RecordError("query")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var event model.MovieBuddyEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(&event); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if event.Showtime.SourceID == "" {
		writeError(w, http.StatusBadRequest, "showtime id is required")
		return
	}

	created, err := s.store.CreateEvent(r.Context(), &event)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "movie, theater or showtime not found")
			return
		}
		log.Error().Err(err).Msg("Failed to create event")
		RecordError("write")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handlePushData accepts a scrape result from an external scraper and runs
// a full ingestion with it.
func (s *Server) handlePushData(w http.ResponseWriter, r *http.Request) {
	var result model.ScrapeResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	stats, err := s.store.Ingest(r.Context(), &result)
	if err != nil {
		log.Error().Err(err).Msg("Failed to ingest pushed data")
		RecordIngest("error")
		RecordError("ingest")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	log.Info().
		Int("movies", stats.Movies).
		Int("theaters", stats.Theaters).
		Int("showtimes", stats.Showtimes).
		Int("dropped", stats.Dropped).
		Msg("Ingested pushed data")
	RecordIngest("success")

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "data ingested",
		"stats":   stats,
	})
}

func (s *Server) handleTriggerScrape(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "scraper not enabled")
		return
	}
	if !s.trigger.TryRun(r.Context()) {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "already running"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to clear data")
		RecordError("write")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	log.Warn().Msg("All data cleared by admin request")
	writeJSON(w, http.StatusOK, map[string]string{"message": "all data cleared"})
}
