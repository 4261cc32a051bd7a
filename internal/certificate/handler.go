package certificate

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"residency/internal/transport/http/shared"
	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
	"residency/pkg/requestcontext"
)

// Handler exposes certificate generation over HTTP.
type Handler struct {
	generator *Generator
	logger    *slog.Logger
}

func NewHandler(generator *Generator, logger *slog.Logger) *Handler {
	return &Handler{generator: generator, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/certificates", h.handleGenerate)
}

type generateRequest struct {
	ApplicationID string  `json:"applicationId"`
	Persist       bool    `json:"persist"`
	Options       Options `json:"options"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req generateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	appID, err := id.ParseApplicationID(req.ApplicationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if req.Persist {
		ref, err := h.generator.Persist(ctx, appID, req.Options)
		if err != nil {
			h.logFailure(r, err)
			shared.WriteError(w, err)
			return
		}
		shared.WriteJSON(w, http.StatusCreated, map[string]any{
			"url":     ref.URL,
			"content": h.generator.VerificationURL(appID),
		})
		return
	}

	png, err := h.generator.Generate(ctx, appID, req.Options)
	if err != nil {
		h.logFailure(r, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"contentType": "image/png",
		"image":       base64.StdEncoding.EncodeToString(png),
		"content":     h.generator.VerificationURL(appID),
	})
}

func (h *Handler) logFailure(r *http.Request, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInvalidInput || dErrors.CodeOf(err) == dErrors.CodeNotFound {
		return
	}
	h.logger.ErrorContext(r.Context(), "certificate generation failed",
		"error", err,
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
