package document

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

// Handler exposes document upload and review over HTTP.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	reviewer middleware.ReviewerValidator
}

func NewHandler(service *Service, logger *slog.Logger, reviewer middleware.ReviewerValidator) *Handler {
	return &Handler{service: service, logger: logger, reviewer: reviewer}
}

// Register wires the document routes. The decision route sits behind
// reviewer auth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/documents", h.handleUpload)
	r.Get("/documents", h.handleList)
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireReviewer(h.reviewer, h.logger))
		pr.Post("/documents/{documentID}/decision", h.handleDecision)
	})
}

// handleUpload ingests a multipart batch: form field "documents" carries the
// files, "type" the declared document type, "userId" the owner.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 1 MiB of form metadata in memory; file parts spill to temp files.
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid multipart request"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	userID, err := id.ParseUserID(r.FormValue("userId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	docType, err := id.ParseDocumentType(r.FormValue("type"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	fileHeaders := r.MultipartForm.File[uploadFieldName]
	uploads := make([]Upload, 0, len(fileHeaders))
	opened := make([]interface{ Close() error }, 0, len(fileHeaders))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeStorageIO, "failed to read upload"))
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, Upload{
			Filename: fh.Filename,
			MIMEType: fh.Header.Get("Content-Type"),
			Size:     fh.Size,
			Content:  f,
		})
	}

	docs, err := h.service.Ingest(ctx, userID, docType, uploads)
	if err != nil {
		if dErrors.CodeOf(err) != dErrors.CodeInvalidInput {
			h.logger.ErrorContext(ctx, "document ingestion failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		shared.WriteError(w, err)
		return
	}

	responses := make([]Response, 0, len(docs))
	for _, d := range docs {
		responses = append(responses, d.ToResponse())
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{"documents": responses})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(r.URL.Query().Get("user"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	docs, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	responses := make([]Response, 0, len(docs))
	for _, d := range docs {
		responses = append(responses, d.ToResponse())
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"documents": responses})
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req struct {
		Decision string `json:"decision"`
	}
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	decision, err := ParseDecision(req.Decision)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	doc, err := h.service.Decide(ctx, docID, decision)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, doc.ToResponse())
}
