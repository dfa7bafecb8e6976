package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplierstudio/studio-api/internal/product"
)

// productForm builds a multipart upload body. An empty value skips the
// field; contentType applies to the photo part.
type productForm struct {
	title       string
	price       string
	description string
	photo       []byte
	contentType string
}

func (f productForm) encode(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if f.title != "" {
		require.NoError(t, writer.WriteField("title", f.title))
	}
	if f.price != "" {
		require.NoError(t, writer.WriteField("price", f.price))
	}
	if f.description != "" {
		require.NoError(t, writer.WriteField("description", f.description))
	}
	if f.photo != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="photo.jpg"`)
		header.Set("Content-Type", f.contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(f.photo)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func validForm() productForm {
	return productForm{
		title:       "Summer Dress",
		price:       "1299",
		description: "Lightweight cotton",
		photo:       []byte{0xff, 0xd8, 0xff, 0xe0},
		contentType: "image/jpeg",
	}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestHandlers wires handlers against an in-memory store with the
// background pipeline disabled; the pipeline has its own tests.
func newTestHandlers(t *testing.T) (*Handlers, *product.MemoryRepository) {
	t.Helper()
	repo := product.NewMemoryRepository()
	h := NewHandlers(repo, nil, nil, WithAsyncProcessing(false))
	return h, repo
}

func doRequest(t *testing.T, h *Handlers, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	router := NewRouter(h, newTestLogger(), DefaultConfig())
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := doRequest(t, h, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateProduct_Success(t *testing.T) {
	h, repo := newTestHandlers(t)

	body, contentType := validForm().encode(t)
	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", contentType)

	rr := doRequest(t, h, req)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp CreateProductResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, string(product.StatusProcessing), resp.ProcessingStatus)

	// The record must be readable immediately after the 202.
	rec, err := repo.FindByID(req.Context(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summer Dress", rec.Title)
	assert.Equal(t, 1299, rec.Price)
}

func TestCreateProduct_MissingPhoto(t *testing.T) {
	h, _ := newTestHandlers(t)

	form := validForm()
	form.photo = nil
	body, contentType := form.encode(t)
	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", contentType)

	rr := doRequest(t, h, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_PHOTO", decodeError(t, rr).Code)
}

func TestCreateProduct_UnsupportedPhotoType(t *testing.T) {
	h, _ := newTestHandlers(t)

	form := validForm()
	form.contentType = "application/pdf"
	body, contentType := form.encode(t)
	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", contentType)

	rr := doRequest(t, h, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_PHOTO", decodeError(t, rr).Code)
}

func TestCreateProduct_PhotoBytesSniffed(t *testing.T) {
	tests := []struct {
		name        string
		photo       []byte
		contentType string
		wantStatus  int
	}{
		{
			"declared jpeg with pdf bytes rejected",
			[]byte("%PDF-1.7 not an image"),
			"image/jpeg",
			http.StatusBadRequest,
		},
		{
			"declared png with plain text rejected",
			[]byte("just some text pretending to be a photo"),
			"image/png",
			http.StatusBadRequest,
		},
		{
			"real png bytes accepted",
			[]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00},
			"image/png",
			http.StatusAccepted,
		},
		{
			"real gif bytes accepted",
			[]byte("GIF89a trailer"),
			"image/gif",
			http.StatusAccepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandlers(t)

			form := validForm()
			form.photo = tt.photo
			form.contentType = tt.contentType
			body, contentType := form.encode(t)
			req := httptest.NewRequest(http.MethodPost, "/products", body)
			req.Header.Set("Content-Type", contentType)

			rr := doRequest(t, h, req)
			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusBadRequest {
				assert.Equal(t, "INVALID_PHOTO", decodeError(t, rr).Code)
			}
		})
	}
}

func TestCreateProduct_PriceValidation(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		wantCode string
	}{
		{"missing", "", "INVALID_FORM"},
		{"not a number", "twelve", "INVALID_FORM"},
		{"fractional", "12.99", "INVALID_FORM"},
		{"zero", "0", "VALIDATION_ERROR"},
		{"negative", "-5", "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandlers(t)

			form := validForm()
			form.price = tt.price
			body, contentType := form.encode(t)
			req := httptest.NewRequest(http.MethodPost, "/products", body)
			req.Header.Set("Content-Type", contentType)

			rr := doRequest(t, h, req)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rr).Code)
		})
	}
}

func TestCreateProduct_MissingTitle(t *testing.T) {
	h, _ := newTestHandlers(t)

	form := validForm()
	form.title = ""
	body, contentType := form.encode(t)
	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", contentType)

	rr := doRequest(t, h, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rr).Code)
}

func TestCreateProduct_NotMultipart(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := doRequest(t, h, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_MULTIPART", decodeError(t, rr).Code)
}

func TestGetProduct_Success(t *testing.T) {
	h, repo := newTestHandlers(t)

	ctx := context.Background()
	rec := product.New("Summer Dress", 1299, "Lightweight cotton")
	require.NoError(t, repo.Create(ctx, rec))

	url := "https://storage.cloud.google.com/b/v.mp4"
	require.NoError(t, repo.SetOperationName(ctx, rec.ID, "projects/p/operations/abc"))
	require.NoError(t, repo.SetReelURL(ctx, rec.ID, &url))

	req := httptest.NewRequest(http.MethodGet, "/products/"+rec.ID, nil)
	rr := doRequest(t, h, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp ProductResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, rec.ID, resp.ID)
	assert.Equal(t, "Summer Dress", resp.Title)
	assert.Equal(t, 1299, resp.Price)
	assert.Equal(t, string(product.ReelReady), resp.ReelState)
	assert.Equal(t, url, resp.ReelURL)
}

func TestGetProduct_NotFound(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/products/nonexistent", nil)
	rr := doRequest(t, h, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", decodeError(t, rr).Code)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodOptions, "/products", nil)
	req.Header.Set("Origin", "https://studio.example.com")

	rr := doRequest(t, h, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://studio.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
