package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/score-tracker/internal/domain/match"
	"github.com/riskibarqy/score-tracker/internal/platform/logging"
	"github.com/riskibarqy/score-tracker/internal/usecase"
)

const maxRequestBody = 64 << 10

type Handler struct {
	matchService *usecase.MatchService
	logger       *logging.Logger
	validator    *validator.Validate
}

func NewHandler(matchService *usecase.MatchService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		matchService: matchService,
		logger:       logger,
		validator:    validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatches")
	defer span.End()

	filter, err := parseListFilter(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.matchService.List(ctx, filter)
	if err != nil {
		h.logger.WarnContext(ctx, "list matches failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]matchDTO, 0, len(items))
	for _, item := range items {
		out = append(out, matchToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatch", matchIDAttr(r))
	defer span.End()

	matchID := r.PathValue("matchID")
	m, err := h.matchService.Get(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(m))
}

func (h *Handler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateMatch")
	defer span.End()

	var req createMatchRequest
	if err := h.decodeRequest(ctx, w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	m, err := h.matchService.Create(ctx, usecase.CreateMatchInput{
		ExternalID: req.ExternalID,
		HomeTeam:   req.HomeTeam,
		AwayTeam:   req.AwayTeam,
		Source:     req.Source,
		Locator:    req.Locator,
		KickoffAt:  req.KickoffAt,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create match failed", "source", req.Source, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, matchToDTO(m))
}

func (h *Handler) ListMatchEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatchEvents", matchIDAttr(r))
	defer span.End()

	matchID := r.PathValue("matchID")
	limit, err := parseQueryInt(r, "limit", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.matchService.ListEvents(ctx, matchID, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list match events failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]eventDTO, 0, len(items))
	for _, item := range items {
		out = append(out, eventToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) ManualUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ManualUpdate", matchIDAttr(r))
	defer span.End()

	matchID := r.PathValue("matchID")
	var req manualUpdateRequest
	if err := h.decodeRequest(ctx, w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	m, err := h.matchService.ManualUpdate(ctx, usecase.ManualUpdateInput{
		MatchID:     matchID,
		Status:      req.Status,
		ScoreHome:   req.ScoreHome,
		ScoreAway:   req.ScoreAway,
		PenaltyHome: req.PenaltyHome,
		PenaltyAway: req.PenaltyAway,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "manual update failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(m))
}

func (h *Handler) EnableTracking(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.EnableTracking", matchIDAttr(r))
	defer span.End()

	h.writeMatchResult(ctx, w, "enable tracking", r.PathValue("matchID"), h.matchService.EnableTracking)
}

func (h *Handler) DisableTracking(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DisableTracking", matchIDAttr(r))
	defer span.End()

	h.writeMatchResult(ctx, w, "disable tracking", r.PathValue("matchID"), h.matchService.DisableTracking)
}

func (h *Handler) RefreshMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshMatch", matchIDAttr(r))
	defer span.End()

	h.writeMatchResult(ctx, w, "refresh match", r.PathValue("matchID"), h.matchService.Refresh)
}

func (h *Handler) DeleteFinishedMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteFinishedMatches")
	defer span.End()

	deleted, err := h.matchService.DeleteFinished(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "delete finished matches failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, deleteFinishedDTO{Deleted: deleted})
}

func (h *Handler) writeMatchResult(
	ctx context.Context,
	w http.ResponseWriter,
	action string,
	matchID string,
	run func(ctx context.Context, matchID string) (match.Match, error),
) {
	m, err := run(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, action+" failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, matchToDTO(m))
}

func (h *Handler) decodeRequest(ctx context.Context, w http.ResponseWriter, r *http.Request, payload any) error {
	decoder := jsoniter.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(payload); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return h.validateRequest(ctx, payload)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func parseListFilter(r *http.Request) (match.ListFilter, error) {
	query := r.URL.Query()
	filter := match.ListFilter{}

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := match.ParseStatus(raw)
		if err != nil {
			return match.ListFilter{}, fmt.Errorf("%w: unknown status %q", usecase.ErrInvalidInput, raw)
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(query.Get("tracking")); raw != "" {
		tracking, err := strconv.ParseBool(raw)
		if err != nil {
			return match.ListFilter{}, fmt.Errorf("%w: tracking must be a boolean", usecase.ErrInvalidInput)
		}
		filter.Tracking = &tracking
	}

	var err error
	if filter.Limit, err = parseQueryInt(r, "limit", 0); err != nil {
		return match.ListFilter{}, err
	}
	if filter.Offset, err = parseQueryInt(r, "offset", 0); err != nil {
		return match.ListFilter{}, err
	}
	return filter, nil
}

func parseQueryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", usecase.ErrInvalidInput, key)
	}
	return value, nil
}

type createMatchRequest struct {
	ExternalID string    `json:"external_id" validate:"omitempty,max=128"`
	HomeTeam   string    `json:"home_team" validate:"required,max=120"`
	AwayTeam   string    `json:"away_team" validate:"required,max=120"`
	Source     string    `json:"source" validate:"required"`
	Locator    string    `json:"locator" validate:"required,max=2048"`
	KickoffAt  time.Time `json:"kickoff_at"`
}

type manualUpdateRequest struct {
	Status      string `json:"status" validate:"required,oneof=SCHEDULED IN_PLAY PAUSED FINISHED"`
	ScoreHome   *int   `json:"score_home" validate:"omitempty,min=0"`
	ScoreAway   *int   `json:"score_away" validate:"omitempty,min=0"`
	PenaltyHome *int   `json:"penalty_home" validate:"omitempty,min=0"`
	PenaltyAway *int   `json:"penalty_away" validate:"omitempty,min=0"`
}
