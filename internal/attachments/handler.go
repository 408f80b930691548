package attachments

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opsdesk/incident-desk/internal/domain"
	"github.com/opsdesk/incident-desk/internal/pkg/httputil"
)

// Default upload limit.
const maxUploadBytes = 10 << 20 // 10 MiB

// Handler handles attachment upload and download.
type Handler struct {
	blobs    BlobStore
	maxBytes int64
}

// NewHandler creates a new attachments handler.
func NewHandler(blobs BlobStore) *Handler {
	return &Handler{
		blobs:    blobs,
		maxBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers attachment routes (authenticated).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/attachments", h.Upload)
	r.Get("/attachments/{ref}", h.Download)
}

// Upload handles POST /attachments. Expects a multipart form with a "file"
// field and responds with the attachment metadata to embed in a team
// assignment.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ref := uuid.New().String()
	if err := h.blobs.Put(r.Context(), ref, contentType, file, header.Size); err != nil {
		slog.Error("attachment upload failed", "ref", ref, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "upload failed")
		return
	}

	attachment := domain.FileAttachment{
		ID:          ref,
		Name:        header.Filename,
		ContentType: contentType,
		BlobRef:     ref,
		UploadedAt:  time.Now(),
		UploadedBy:  httputil.GetUsername(r.Context()),
	}

	httputil.Success(w, http.StatusCreated, attachment)
}

// Download handles GET /attachments/{ref}.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	blob, contentType, err := h.blobs.Get(r.Context(), ref)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			httputil.Error(w, http.StatusNotFound, "attachment not found")
			return
		}
		slog.Error("attachment download failed", "ref", ref, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "download failed")
		return
	}
	defer func() { _ = blob.Close() }()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	if _, err := io.Copy(w, blob); err != nil {
		slog.Error("attachment stream failed", "ref", ref, "error", err)
	}
}
