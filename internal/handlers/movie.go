package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/reelhub/apiserver/internal/services"
	"github.com/reelhub/apiserver/internal/store"
	"github.com/reelhub/apiserver/types"
)

const (
	maxPosterMemory = 8 << 20
	maxPosterBytes  = 8 << 20
	formFieldPoster = "poster"
)

// Release dates arrive as plain dates or full RFC 3339 timestamps.
var releaseDateLayouts = []string{"2006-01-02", time.RFC3339}

// MovieHandler provides HTTP handlers for the movie catalog, including
// rating submission and report filing.
type MovieHandler struct {
	movieService  *services.MovieService
	ratingService *services.RatingService
	reportService *services.ReportService
	validate      *validator.Validate
}

// NewMovieHandler constructs a handler with the provided services.
func NewMovieHandler(
	movieService *services.MovieService,
	ratingService *services.RatingService,
	reportService *services.ReportService,
) *MovieHandler {
	return &MovieHandler{
		movieService:  movieService,
		ratingService: ratingService,
		reportService: reportService,
		validate:      validator.New(),
	}
}

// MovieRouter registers movie routes on the given router. Every route
// requires authentication.
func MovieRouter(
	r chi.Router,
	movieService *services.MovieService,
	ratingService *services.RatingService,
	reportService *services.ReportService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewMovieHandler(movieService, ratingService, reportService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListMovies)
	r.Post("/", handler.CreateMovie)
	r.Route("/{movieID}", func(r chi.Router) {
		r.Get("/", handler.GetMovie)
		r.Put("/", handler.UpdateMovie)
		r.Delete("/", handler.DeleteMovie)
		r.Put("/poster", handler.UploadPoster)
		r.Get("/poster", handler.GetPoster)
		r.Post("/rate", handler.RateMovie)
		r.Post("/report", handler.ReportMovie)
	})
}

func (h *MovieHandler) ListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.movieService.List(r.Context())
	if err != nil {
		writeStoreError(w, "Error showing movies", err)
		return
	}
	writeJSON(w, http.StatusOK, MovieListResponse{Message: "All movies", Movies: movies})
}

func (h *MovieHandler) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := parseMovieID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid movie id")
		return
	}

	movie, err := h.movieService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Movie not found")
			return
		}
		writeStoreError(w, "Error showing movie", err)
		return
	}
	writeJSON(w, http.StatusOK, MovieResponse{Message: "Movie found", Movie: movie})
}

func (h *MovieHandler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
		return
	}

	var req CreateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	releasedAt, err := parseReleaseDate(req.ReleasedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid released_at date")
		return
	}

	movie, err := h.movieService.Create(r.Context(), identity.UserID, types.Movie{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		ReleasedAt:  releasedAt,
		Duration:    req.Duration,
		Genre:       req.Genre,
		Language:    req.Language,
	})
	if err != nil {
		writeStoreError(w, "Error creating movie", err)
		return
	}

	writeJSON(w, http.StatusCreated, MovieResponse{Message: "Movie created", Movie: movie})
}

func (h *MovieHandler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
		return
	}

	id, err := parseMovieID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid movie id")
		return
	}

	var req UpdateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	update := services.MovieUpdate{
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		Genre:       req.Genre,
		Language:    req.Language,
	}
	if req.ReleasedAt != nil {
		releasedAt, err := parseReleaseDate(*req.ReleasedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid released_at date")
			return
		}
		update.ReleasedAt = &releasedAt
	}

	movie, err := h.movieService.Update(r.Context(), id, identity.UserID, update)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Movie not found")
		case errors.Is(err, services.ErrNotOwner):
			writeError(w, http.StatusForbidden, "You are not allowed to update this movie")
		default:
			writeStoreError(w, "Error updating movie", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, MovieResponse{Message: "Movie updated successfully", Movie: movie})
}

func (h *MovieHandler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
		return
	}

	id, err := parseMovieID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid movie id")
		return
	}

	if err := h.movieService.Delete(r.Context(), id, identity.UserID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Movie not found")
		case errors.Is(err, services.ErrNotOwner):
			writeError(w, http.StatusForbidden, "You are not allowed to delete this movie")
		default:
			writeStoreError(w, "Error deleting movie", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Movie deleted"})
}

func (h *MovieHandler) RateMovie(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
		return
	}

	id, err := parseMovieID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid movie id")
		return
	}

	var req RateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.ratingService.Rate(r.Context(), id, identity.UserID, req.Score)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrScoreOutOfRange):
			writeError(w, http.StatusBadRequest, "Score must be between 1 and 5")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Movie not found")
		default:
			writeStoreError(w, "Error rating movie", err)
		}
		return
	}

	if result.Created {
		writeJSON(w, http.StatusCreated, RatingResponse{Message: "Rating created", Rating: result.Rating})
		return
	}
	writeJSON(w, http.StatusOK, RatingResponse{Message: "Rating updated", Rating: result.Rating})
}

func (h *MovieHandler) ReportMovie(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
		return
	}

	id, err := parseMovieID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid movie id")
		return
	}

	var req ReportMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	report, err := h.reportService.Create(r.Context(), id, identity.UserID, strings.TrimSpace(req.Reason))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Movie not found")
			return
		}
		writeStoreError(w, "Error reporting movie", err)
		return
	}

	writeJSON(w, http.StatusCreated, ReportResponse{Message: "Report submitted", Report: report})
}

func (h *MovieHandler) UploadPoster(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
		return
	}

	id, err := parseMovieID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid movie id")
		return
	}

	filename, data, err := parsePosterFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	poster, err := h.movieService.UploadPoster(r.Context(), id, identity.UserID, filename, data)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Movie not found")
		case errors.Is(err, services.ErrNotOwner):
			writeError(w, http.StatusForbidden, "You are not allowed to update this movie")
		case errors.Is(err, services.ErrUnsupportedPoster):
			writeError(w, http.StatusBadRequest, "Poster must be a JPEG, PNG, or WebP image")
		case errors.Is(err, services.ErrStorageDisabled):
			writeError(w, http.StatusServiceUnavailable, "Poster storage is not configured")
		default:
			writeStoreError(w, "Error uploading poster", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, PosterResponse{Message: "Poster uploaded", Poster: poster})
}

func (h *MovieHandler) GetPoster(w http.ResponseWriter, r *http.Request) {
	id, err := parseMovieID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid movie id")
		return
	}

	reader, poster, err := h.movieService.GetPoster(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Movie not found")
		case errors.Is(err, services.ErrNoPoster):
			writeError(w, http.StatusNotFound, "Movie has no poster")
		case errors.Is(err, services.ErrStorageDisabled):
			writeError(w, http.StatusServiceUnavailable, "Poster storage is not configured")
		default:
			writeStoreError(w, "Error fetching poster", err)
		}
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", poster.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

type CreateMovieRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"required"`
	ReleasedAt  string `json:"released_at" validate:"required"`
	Duration    int    `json:"duration" validate:"required,gt=0"`
	Genre       string `json:"genre" validate:"required"`
	Language    string `json:"language" validate:"required"`
}

// UpdateMovieRequest uses pointer fields so an absent field is
// distinguishable from an explicit zero value.
type UpdateMovieRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	ReleasedAt  *string `json:"released_at,omitempty"`
	Duration    *int    `json:"duration,omitempty" validate:"omitempty,gte=0"`
	Genre       *string `json:"genre,omitempty"`
	Language    *string `json:"language,omitempty"`
}

type RateMovieRequest struct {
	Score int `json:"score"`
}

type ReportMovieRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=1000"`
}

type MovieListResponse struct {
	Message string        `json:"message"`
	Movies  []types.Movie `json:"movies"`
}

type MovieResponse struct {
	Message string      `json:"message"`
	Movie   types.Movie `json:"movie"`
}

type RatingResponse struct {
	Message string       `json:"message"`
	Rating  types.Rating `json:"rating"`
}

type PosterResponse struct {
	Message string            `json:"message"`
	Poster  types.PosterImage `json:"poster"`
}

func parseMovieID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "movieID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid movie id")
	}
	return id, nil
}

func parseReleaseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range releaseDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("unparseable release date")
}

func parsePosterFile(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxPosterMemory); err != nil {
		return "", nil, errors.New("Invalid multipart form")
	}
	if r.MultipartForm == nil {
		return "", nil, errors.New("Missing form data")
	}

	files := r.MultipartForm.File[formFieldPoster]
	if len(files) == 0 {
		return "", nil, errors.New("Poster file is required")
	}
	if len(files) > 1 {
		return "", nil, errors.New("Only one poster file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return "", nil, errors.New("Failed to read poster file")
	}
	defer file.Close()

	limited := io.LimitReader(file, maxPosterBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return "", nil, errors.New("Failed to read poster file")
	}
	if int64(len(data)) > maxPosterBytes {
		return "", nil, errors.New("Poster file too large")
	}

	return fileHeader.Filename, data, nil
}
