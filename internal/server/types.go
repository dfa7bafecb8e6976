// Package server provides the HTTP server for the studio API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/supplierstudio/studio-api/internal/product"
)

// CreateProductRequest carries the non-file fields of a product upload.
// The photo itself arrives as the multipart "file" part.
type CreateProductRequest struct {
	// Title is the product name supplied by the seller.
	Title string `validate:"required,min=1,max=200"`
	// Price is the listed price in whole currency units. Zero and negative
	// prices are rejected.
	Price int `validate:"required,gt=0"`
	// Description is optional free-text context for generation.
	Description string `validate:"max=2000"`
}

// CreateProductResponse is the HTTP response after accepting an upload.
type CreateProductResponse struct {
	// ID is the unique identifier for the created product record.
	ID string `json:"id"`
	// ProcessingStatus is the initial processing status.
	ProcessingStatus string `json:"processing_status"`
}

// ProductResponse is the HTTP response for getting product details.
type ProductResponse struct {
	// ID is the unique identifier for the product record.
	ID string `json:"id"`
	// Title is the product name.
	Title string `json:"title"`
	// Price is the listed price in whole currency units.
	Price int `json:"price"`
	// Description is the seller-supplied description.
	Description string `json:"description,omitempty"`
	// ProcessingStatus reflects the content generation half of the pipeline.
	ProcessingStatus string `json:"processing_status"`
	// ProcessingError carries the failure detail when processing failed.
	ProcessingError string `json:"processing_error,omitempty"`
	// GeneratedContent is the marketing copy, once available.
	GeneratedContent *product.GeneratedContent `json:"generated_content,omitempty"`
	// ReelState is the lifecycle state of the ad reel.
	ReelState string `json:"reel_state"`
	// ReelURL is the public URL of the finished reel.
	ReelURL string `json:"reel_url,omitempty"`
	// ReelError carries the failure or timeout detail for the reel.
	ReelError string `json:"reel_error,omitempty"`
	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the record was last reconciled.
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

// productResponse maps a domain record to its DTO.
func productResponse(rec *product.Record) ProductResponse {
	return ProductResponse{
		ID:               rec.ID,
		Title:            rec.Title,
		Price:            rec.Price,
		Description:      rec.Description,
		ProcessingStatus: string(rec.ProcessingStatus),
		ProcessingError:  rec.ProcessingError,
		GeneratedContent: rec.Content,
		ReelState:        string(rec.ReelState),
		ReelURL:          rec.ReelURL,
		ReelError:        rec.ReelError,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}
