package verify

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"residency/internal/transport/http/shared"
	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
)

// Handler exposes the public verification endpoint.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/verify/{applicationID}", h.handleVerify)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		// A malformed id gets the same answer as an unknown one.
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "not found"))
		return
	}

	p, err := h.service.Lookup(r.Context(), appID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, p)
}
