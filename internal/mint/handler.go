package mint

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"residency/internal/transport/http/shared"
	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
	"residency/pkg/requestcontext"
)

// Handler exposes minting and mint status over HTTP.
type Handler struct {
	coordinator *Coordinator
	status      *StatusReader
	logger      *slog.Logger
}

func NewHandler(coordinator *Coordinator, status *StatusReader, logger *slog.Logger) *Handler {
	return &Handler{coordinator: coordinator, status: status, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/residency/mint", h.handleMint)
	r.Get("/residency/status/{userID}", h.handleStatus)
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req Request
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.coordinator.Mint(ctx, userID, req.WalletAddress)
	if err != nil {
		code := dErrors.CodeOf(err)
		if code == dErrors.CodeInternal || code == dErrors.CodeExternalService {
			h.logger.ErrorContext(ctx, "mint failed",
				"error", err,
				"user_id", userID,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, Response{
		Success:         true,
		TokenID:         record.TokenID,
		TransactionHash: record.TransactionHash,
		ContractAddress: record.ContractAddress,
	})
}

// handleStatus always answers 200; not having minted is data, not an error.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	status, err := h.status.Status(r.Context(), userID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, status)
}
