package application

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"residency/internal/platform/middleware"
	"residency/internal/transport/http/shared"
	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
	"residency/pkg/requestcontext"
)

// Handler exposes application submission and review over HTTP.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	reviewer middleware.ReviewerValidator
}

func NewHandler(service *Service, logger *slog.Logger, reviewer middleware.ReviewerValidator) *Handler {
	return &Handler{service: service, logger: logger, reviewer: reviewer}
}

// Register wires the application routes. Review transitions sit behind
// reviewer auth; submission and listing are applicant-facing.
func (h *Handler) Register(r chi.Router) {
	r.Post("/applications", h.handleSubmit)
	r.Get("/applications", h.handleList)
	r.Get("/applications/{applicationID}", h.handleGet)
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireReviewer(h.reviewer, h.logger))
		pr.Post("/applications/{applicationID}/review", h.handleBeginReview)
		pr.Post("/applications/{applicationID}/decision", h.handleDecision)
		pr.Post("/applications/{applicationID}/documents/{documentID}", h.handleAttach)
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SubmitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	appType, err := id.ParseApplicationType(req.Type)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	a, err := h.service.Submit(ctx, userID, appType)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "submit application failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"applicationId": a.ID,
		"status":        a.Status,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(r.URL.Query().Get("user"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	apps, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	responses := make([]Response, 0, len(apps))
	for _, a := range apps {
		responses = append(responses, a.ToResponse())
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"applications": responses})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	a, err := h.service.Get(r.Context(), appID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, a.ToResponse())
}

func (h *Handler) handleBeginReview(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	a, err := h.service.BeginReview(r.Context(), appID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, a.ToResponse())
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req DecisionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	decision, err := ParseReviewDecision(req.Decision)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	a, err := h.service.Decide(r.Context(), appID, decision, req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, a.ToResponse())
}

func (h *Handler) handleAttach(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.AttachDocument(r.Context(), appID, docID); err != nil {
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
