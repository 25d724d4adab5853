// AngelaMos | 2026
// handler.go

package strategy

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/planvix/planvix-api/internal/core"
	"github.com/planvix/planvix-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/strategy", h.Generate)
		r.Get("/history", h.History)
		r.Get("/history/{strategyID}", h.Get)
		r.Delete("/history/{strategyID}", h.Delete)
		r.Get("/usage", h.Usage)
	})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tier := middleware.GetUserTier(r.Context())

	var req GenerateStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Generate(r.Context(), userID, tier, &req)
	if err != nil {
		h.handleGenerateError(w, err)
		return
	}

	core.OK(w, resp)
}

// handleGenerateError maps pipeline failures to the wire. Quota
// rejections carry the full decision; generation failures collapse to
// a generic internal error, with detail kept in the logs.
func (h *Handler) handleGenerateError(w http.ResponseWriter, err error) {
	var quotaErr *QuotaExceededError
	if errors.As(err, &quotaErr) {
		core.TooManyRequests(w, quotaErr.Decision.Message, quotaErr.Decision)
		return
	}
	core.InternalServerError(w, err)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	resp, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	strategyID := chi.URLParam(r, "strategyID")

	resp, err := h.service.Get(r.Context(), strategyID, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "strategy")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	strategyID := chi.URLParam(r, "strategyID")

	resp, err := h.service.Delete(r.Context(), strategyID, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "strategy")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tier := middleware.GetUserTier(r.Context())

	resp, err := h.service.Usage(r.Context(), userID, tier)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}
