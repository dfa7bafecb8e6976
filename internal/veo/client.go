package veo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Static errors for Veo client operations.
var (
	// ErrAccessTokenRequired is returned when the access token is not provided.
	ErrAccessTokenRequired = errors.New("veo: access token is required")
	// ErrProjectIDRequired is returned when the project ID is not provided.
	ErrProjectIDRequired = errors.New("veo: project ID is required")
	// ErrPromptRequired is returned when Submit is called with an empty prompt.
	ErrPromptRequired = errors.New("veo: prompt is required")
	// ErrOperationNameRequired is returned when Fetch is called without an
	// operation name.
	ErrOperationNameRequired = errors.New("veo: operation name is required")
	// ErrNoOperationName is returned when the submit response carries no
	// operation name; without it the pipeline cannot proceed.
	ErrNoOperationName = errors.New("veo: submit failed: no operation name returned")
	// ErrRequestFailed is returned when the request fails with a non-2xx status.
	ErrRequestFailed = errors.New("veo: request failed")
)

// Client defines the interface for the Veo long-running prediction API.
type Client interface {
	// Submit starts a generation job and returns its operation handle.
	Submit(ctx context.Context, prompt string, overrides Params) (Operation, error)

	// Fetch checks the status of an operation. It takes the fully-qualified
	// operation name, not the short ID, and does not itself loop.
	Fetch(ctx context.Context, operationName string) (CheckResult, error)
}

// HTTPClient is the HTTP implementation of the Veo Client interface.
type HTTPClient struct {
	accessToken string
	projectID   string
	location    string
	model       string
	baseURL     string
	storageURI  string
	httpClient  *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom API endpoint base URL.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithLocation sets the Vertex AI location.
func WithLocation(location string) ClientOption {
	return func(hc *HTTPClient) {
		hc.location = location
	}
}

// WithModel sets the text-to-video model ID.
func WithModel(model string) ClientOption {
	return func(hc *HTTPClient) {
		hc.model = model
	}
}

// WithStorageURI sets the default gs:// destination for rendered clips.
func WithStorageURI(uri string) ClientOption {
	return func(hc *HTTPClient) {
		hc.storageURI = uri
	}
}

// NewClient creates a new Veo HTTP client. Access token and project ID are
// required; location and model default to us-central1 / veo-2.0-generate-001.
func NewClient(accessToken, projectID string, opts ...ClientOption) (*HTTPClient, error) {
	if accessToken == "" {
		return nil, ErrAccessTokenRequired
	}
	if projectID == "" {
		return nil, ErrProjectIDRequired
	}

	c := &HTTPClient{
		accessToken: accessToken,
		projectID:   projectID,
		location:    "us-central1",
		model:       "veo-2.0-generate-001",
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com", c.location)
	}

	return c, nil
}

// modelPath is the fully-qualified publisher model resource name.
func (c *HTTPClient) modelPath() string {
	return fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s",
		c.projectID, c.location, c.model)
}

// Submit starts a generation job and returns its operation handle.
//
// The returned Operation keeps both identifiers: ID is the trailing path
// segment for display, Name is the full operation name required by Fetch.
func (c *HTTPClient) Submit(ctx context.Context, prompt string, overrides Params) (Operation, error) {
	if prompt == "" {
		return Operation{}, ErrPromptRequired
	}

	params := DefaultParams(c.storageURI).merge(overrides)
	body := submitRequest{
		Endpoint:  c.modelPath(),
		Instances: []submitInstance{{Prompt: prompt}},
		Parameters: wireParams{
			AspectRatio:      params.AspectRatio,
			SampleCount:      params.SampleCount,
			DurationSeconds:  params.DurationSeconds,
			PersonGeneration: params.PersonGeneration,
			AddWatermark:     params.AddWatermark == nil || *params.AddWatermark,
			IncludeRaiReason: true,
			GenerateAudio:    params.GenerateAudio != nil && *params.GenerateAudio,
			Resolution:       params.Resolution,
			StorageURI:       params.StorageURI,
		},
	}

	url := fmt.Sprintf("%s/v1/%s:predictLongRunning", c.baseURL, c.modelPath())

	var resp submitResponse
	if err := c.doRequest(ctx, url, body, &resp); err != nil {
		return Operation{}, err
	}

	if resp.Name == "" {
		return Operation{}, ErrNoOperationName
	}

	return Operation{
		Name:        resp.Name,
		ID:          shortOperationID(resp.Name),
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// Fetch checks the status of an operation by its fully-qualified name.
//
// A done operation with a malformed or empty artifact list resolves to
// success with an empty VideoURL rather than an error, so a flaky response
// shape degrades to "no artifact available" instead of failing the check.
func (c *HTTPClient) Fetch(ctx context.Context, operationName string) (CheckResult, error) {
	if operationName == "" {
		return CheckResult{}, ErrOperationNameRequired
	}

	url := fmt.Sprintf("%s/v1/%s:fetchPredictOperation", c.baseURL, c.modelPath())

	var resp fetchResponse
	if err := c.doRequest(ctx, url, fetchRequest{OperationName: operationName}, &resp); err != nil {
		return CheckResult{}, err
	}

	if !resp.Done {
		return CheckResult{Done: false}, nil
	}

	if resp.Error != nil {
		return CheckResult{
			Done:        true,
			Succeeded:   false,
			ErrorDetail: resp.Error.Message,
		}, nil
	}

	result := CheckResult{Done: true, Succeeded: true}
	if resp.Response != nil && len(resp.Response.Videos) > 0 && resp.Response.Videos[0].GCSURI != "" {
		result.VideoURL = PublicURL(resp.Response.Videos[0].GCSURI)
	}
	return result, nil
}

// doRequest performs a single JSON POST with bearer auth. Submit and status
// checks are deliberately one-shot; whole pipeline stages retry, individual
// calls do not.
func (c *HTTPClient) doRequest(ctx context.Context, url string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("veo: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("veo: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("veo: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("veo: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("veo: unmarshal response: %w", err)
		}
	}
	return nil
}

// shortOperationID returns the trailing path segment of a full operation name.
func shortOperationID(name string) string {
	if idx := strings.LastIndex(name, "/operations/"); idx >= 0 {
		return name[idx+len("/operations/"):]
	}
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

var _ Client = (*HTTPClient)(nil)
