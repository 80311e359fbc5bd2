package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/studio-api/internal/api/shared"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/platform/logger"
	"github.com/phrazzld/studio-api/internal/studio"
)

// DefaultMaxBodyBytes bounds JSON request bodies, which carry base64 images.
const DefaultMaxBodyBytes = 48 << 20

// StudioService is the part of studio.Service the handlers use.
type StudioService interface {
	Analyze(ctx context.Context, userID uuid.UUID, in studio.AnalyzeInput) (*domain.Plan, error)
	CreateGeneration(ctx context.Context, userID uuid.UUID, in studio.CreateInput) (*domain.Generation, error)
	GetGeneration(ctx context.Context, userID, generationID uuid.UUID) (*studio.GenerationView, error)
	GetArtifact(ctx context.Context, userID, generationID uuid.UUID, index int) (*domain.Artifact, error)
	ListGenerations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Generation, error)
	DeleteGeneration(ctx context.Context, userID, generationID uuid.UUID) error
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	ClaimDailyBonus(ctx context.Context, userID uuid.UUID) (*studio.BonusClaim, error)
}

var _ StudioService = (*studio.Service)(nil)

// StudioHandler handles analysis, generation and credit requests.
type StudioHandler struct {
	service      StudioService
	maxBodyBytes int64
}

// NewStudioHandler creates a StudioHandler. A maxBodyBytes of zero or less
// selects DefaultMaxBodyBytes.
func NewStudioHandler(service StudioService, maxBodyBytes int64) *StudioHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &StudioHandler{
		service:      service,
		maxBodyBytes: maxBodyBytes,
	}
}

// decode reads and validates a JSON body, writing the error response on failure.
func (h *StudioHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := shared.DecodeJSON(w, r, v, h.maxBodyBytes); err != nil {
		switch MapErrorToStatusCode(err) {
		case http.StatusInternalServerError:
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		default:
			HandleAPIError(w, r, err, "")
		}
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		HandleAPIError(w, r, err, "")
		return false
	}
	return true
}

// Analyze handles POST /api/analyses requests.
func (h *StudioHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req AnalyzeRequest
	if !h.decode(w, r, &req) {
		return
	}

	plan, err := h.service.Analyze(r.Context(), userID, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to analyze images")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, plan)
}

// CreateGeneration handles POST /api/generations requests. The images are
// rendered in the background, so the response is 202 with a pending generation.
func (h *StudioHandler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req CreateGenerationRequest
	if !h.decode(w, r, &req) {
		return
	}

	g, err := h.service.CreateGeneration(r.Context(), userID, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create generation")
		return
	}

	logger.FromContext(r.Context()).Info("generation accepted",
		"generation_id", g.ID,
		"cost", g.Cost)

	w.Header().Set("Location", "/api/generations/"+g.ID.String())
	shared.RespondWithJSON(w, r, http.StatusAccepted, generationToResponse(g, nil))
}

// GetGeneration handles GET /api/generations/{id} requests.
func (h *StudioHandler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	userID, generationID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.service.GetGeneration(r.Context(), userID, generationID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, generationToResponse(view.Generation, view.Artifacts))
}

// ListGenerations handles GET /api/generations requests. The optional limit
// and offset query parameters page through the history, newest first.
func (h *StudioHandler) ListGenerations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit, err := getQueryInt(r, "limit", studio.DefaultPageSize)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if limit == 0 || limit > studio.MaxPageSize {
		limit = studio.DefaultPageSize
	}
	offset, err := getQueryInt(r, "offset", 0)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	generations, err := h.service.ListGenerations(r.Context(), userID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list generations")
		return
	}

	resp := GenerationListResponse{
		Generations: make([]GenerationResponse, 0, len(generations)),
		Limit:       limit,
		Offset:      offset,
	}
	for _, g := range generations {
		resp.Generations = append(resp.Generations, generationSummary(g))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// DeleteGeneration handles DELETE /api/generations/{id} requests.
func (h *StudioHandler) DeleteGeneration(w http.ResponseWriter, r *http.Request) {
	userID, generationID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteGeneration(r.Context(), userID, generationID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete generation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetArtifact handles GET /api/generations/{id}/artifacts/{index} requests
// and responds with the raw image.
func (h *StudioHandler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	userID, generationID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	index, err := getPathIndex(r, "index")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	a, err := h.service.GetArtifact(r.Context(), userID, generationID, index)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get image")
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	shared.RespondWithBytes(w, r, http.StatusOK, a.MIMEType, a.Data)
}

// GetCredits handles GET /api/credits requests.
func (h *StudioHandler) GetCredits(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	balance, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get credit balance")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CreditsResponse{Balance: balance})
}

// ClaimDailyBonus handles POST /api/credits/daily-bonus requests. A second
// claim on the same day succeeds with granted set to false.
func (h *StudioHandler) ClaimDailyBonus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	claim, err := h.service.ClaimDailyBonus(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to claim daily bonus")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, DailyBonusResponse{
		Granted: claim.Granted,
		Amount:  claim.Amount,
		Balance: claim.Balance,
	})
}
