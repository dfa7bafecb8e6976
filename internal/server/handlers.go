package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/supplierstudio/studio-api/internal/pipeline"
	"github.com/supplierstudio/studio-api/internal/product"
	"github.com/supplierstudio/studio-api/internal/vision"
)

// maxPhotoBytes caps the size of an uploaded product photo.
const maxPhotoBytes = 20 << 20 // 20 MiB

// allowedImageTypes are the photo content types accepted for upload.
var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"image/avif": {},
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	repo               product.Repository
	runner             *pipeline.Runner
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateProduct only creates the record and returns
// immediately without starting the generation pipeline. Reads also stop
// triggering reel re-polls.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(repo product.Repository, runner *pipeline.Runner, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		repo:               repo,
		runner:             runner,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true, // Default to enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateProduct handles POST /products requests. The body is a multipart
// form with a "file" photo part plus "title", "price", and optional
// "description" fields. The response is returned as soon as the record is
// persisted; generation continues in the background.
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		h.logger.Warn("failed to parse multipart form",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid multipart body", "INVALID_MULTIPART")
		return
	}

	req, err := parseProductForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_FORM")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	img, err := readPhoto(r)
	if err != nil {
		h.logger.Warn("photo rejected",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_PHOTO")
		return
	}

	rec := product.New(req.Title, req.Price, req.Description)
	if err := h.repo.Create(r.Context(), rec); err != nil {
		h.logger.Error("failed to create product record",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create product", "PRODUCT_CREATION_FAILED")
		return
	}

	// Start processing in background with a detached context
	// Use context.WithoutCancel to prevent cancellation when the request ends
	if h.enableAsyncProcess {
		go h.runner.Process(context.WithoutCancel(r.Context()), rec, img)
	}

	h.logger.Info("product accepted",
		slog.String("record_id", rec.ID),
		slog.String("title", rec.Title),
		slog.Int("photo_bytes", len(img.Data)),
	)

	writeJSON(w, http.StatusAccepted, CreateProductResponse{
		ID:               rec.ID,
		ProcessingStatus: string(rec.ProcessingStatus),
	})
}

// GetProduct handles GET /products/{id} requests. When the record's reel
// is still pending, the read also kicks off a background re-poll so the
// record eventually converges without any client-side retry protocol.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("id")
	if recordID == "" {
		writeError(w, http.StatusBadRequest, "product ID is required", "MISSING_PRODUCT_ID")
		return
	}

	rec, err := h.repo.FindByID(r.Context(), recordID)
	if err != nil {
		if errors.Is(err, product.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "product not found", "PRODUCT_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get product",
			slog.String("record_id", recordID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get product", "PRODUCT_FETCH_FAILED")
		return
	}

	if h.enableAsyncProcess {
		h.runner.EnsureReel(context.WithoutCancel(r.Context()), rec)
	}

	writeJSON(w, http.StatusOK, productResponse(rec))
}

// parseProductForm extracts and converts the non-file form fields.
func parseProductForm(r *http.Request) (CreateProductRequest, error) {
	var req CreateProductRequest

	req.Title = strings.TrimSpace(r.FormValue("title"))
	req.Description = strings.TrimSpace(r.FormValue("description"))

	rawPrice := strings.TrimSpace(r.FormValue("price"))
	if rawPrice == "" {
		return req, errors.New("price is required")
	}
	price, err := strconv.Atoi(rawPrice)
	if err != nil {
		return req, errors.New("price must be a whole number")
	}
	req.Price = price

	return req, nil
}

// readPhoto pulls the "file" part out of the multipart form and checks
// its declared content type against the allowed image types.
func readPhoto(r *http.Request) (vision.Image, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return vision.Image{}, errors.New("photo file is required")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if _, ok := allowedImageTypes[contentType]; !ok {
		return vision.Image{}, errors.New("unsupported photo type: " + contentType)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return vision.Image{}, errors.New("failed to read photo")
	}
	if len(data) == 0 {
		return vision.Image{}, errors.New("photo file is empty")
	}

	// The declared header is client-controlled; sniff the actual bytes.
	// DetectContentType does not know AVIF, so an octet-stream sniff is
	// accepted when the declared type is image/avif.
	sniffed := http.DetectContentType(data)
	if _, ok := allowedImageTypes[sniffed]; !ok {
		if sniffed != "application/octet-stream" || contentType != "image/avif" {
			return vision.Image{}, errors.New("file content is not a supported image")
		}
	}

	return vision.Image{Data: data, MIME: contentType}, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
