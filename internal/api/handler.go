// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"repository-sync/internal/database"
	custom_errors "repository-sync/internal/errors"
	"repository-sync/internal/syncer"
	"repository-sync/internal/worker"
)

// Handler is the container for API dependencies.
type Handler struct {
	db          database.Querier
	syncer      *syncer.Syncer
	distributor *worker.Distributor
	logger      *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(db database.Querier, s *syncer.Syncer, d *worker.Distributor, logger *slog.Logger) http.Handler {
	h := &Handler{
		db:          db,
		syncer:      s,
		distributor: d,
		logger:      logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/connectors", h.listConnectors)
		r.Post("/validate", h.validate)
		r.Post("/sync", h.syncAll)
		r.Get("/stats/issues", h.issueStats)
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/repositories", h.listRepositories)
			r.Put("/urls", h.setURLs)
			r.Post("/sync", h.syncUser)
		})
	})

	return r
}

type connectorResponse struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	HelpText string `json:"help_text"`
}

type validateRequest struct {
	OwnerID int64    `json:"owner_id"`
	URLs    []string `json:"urls"`
}

type validateResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

type urlsRequest struct {
	URLs []string `json:"urls"`
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listConnectors returns the enabled connectors and the combined help text.
// GET /v1/connectors
func (h *Handler) listConnectors(w http.ResponseWriter, r *http.Request) {
	connectors := h.syncer.Connectors()
	out := make([]connectorResponse, 0, len(connectors))
	for _, c := range connectors {
		out = append(out, connectorResponse{ID: c.ID(), Label: c.Label(), HelpText: c.ValidateHelpText()})
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"connectors": out,
		"help_text":  h.syncer.ValidatorHelpText(),
	})
}

// validate checks URLs for an owner without storing anything.
// POST /v1/validate
func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg, err := h.syncer.ValidateRepositoryURLs(r.Context(), req.URLs, req.OwnerID)
	if err != nil {
		h.logger.Error("Failed to validate urls", "owner_id", req.OwnerID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, validateResponse{Valid: msg == "", Message: msg})
}

// listRepositories returns the stored records of a user.
// GET /v1/users/{id}/repositories
func (h *Handler) listRepositories(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	records, err := h.syncer.Records(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list repositories", "owner_id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, records)
}

// setURLs replaces the URLs a user declares, if they all validate.
// PUT /v1/users/{id}/urls
func (h *Handler) setURLs(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req urlsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg, err := h.syncer.SetRepositoryURLs(r.Context(), id, req.URLs)
	switch {
	case errors.Is(err, custom_errors.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "User not found")
	case err != nil:
		h.logger.Error("Failed to store urls", "owner_id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	case msg != "":
		respondWithError(w, http.StatusUnprocessableEntity, msg)
	default:
		stored, err := h.db.ListUserRepositoryURLs(r.Context(), id)
		if err != nil {
			h.logger.Error("Failed to list urls", "owner_id", id, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if stored == nil {
			stored = []string{}
		}
		respondWithJSON(w, http.StatusOK, urlsRequest{URLs: stored})
	}
}

// syncUser reconciles one user synchronously.
// POST /v1/users/{id}/sync?dry_run=true
func (h *Handler) syncUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	s := h.syncer
	if v := r.URL.Query().Get("dry_run"); v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'dry_run' parameter.")
			return
		}
		if dryRun {
			s = s.DryRun()
		}
	}

	summary, err := s.UpdateRepositoriesForUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, custom_errors.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("Failed to update repositories", "owner_id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"summary": summary,
		"changed": summary.Changed(),
	})
}

// syncAll queues an update for every eligible user.
// POST /v1/sync
func (h *Handler) syncAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.distributor.CreateQueueItems(r.Context())
	if err != nil {
		h.logger.Error("Failed to queue updates", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]int{"queued": n})
}

// issueStats sums open issues, over all records or one owner's.
// GET /v1/stats/issues?owner=N
func (h *Handler) issueStats(w http.ResponseWriter, r *http.Request) {
	var (
		total int64
		err   error
	)
	if v := r.URL.Query().Get("owner"); v != "" {
		owner, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil || owner <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid 'owner' parameter. Must be a positive integer.")
			return
		}
		total, err = h.db.SumOpenIssuesByOwner(r.Context(), owner)
	} else {
		total, err = h.db.SumOpenIssues(r.Context())
	}
	if err != nil {
		h.logger.Error("Failed to sum open issues", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"num_open_issues": total})
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid user id. Must be a positive integer.")
		return 0, false
	}
	return id, true
}
