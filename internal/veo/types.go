// Package veo provides an HTTP client for the Vertex AI Veo text-to-video
// long-running prediction API. Generation is submitted through one endpoint
// and resolved by polling a separate fetch endpoint with the fully-qualified
// operation name.
package veo

import "time"

// Params contains the recognized generation parameters. Zero values fall
// back to the defaults merged in by the client; there is no way to pass an
// unrecognized parameter.
type Params struct {
	AspectRatio      string // e.g. "9:16"
	SampleCount      int    // number of clips to render
	DurationSeconds  string // clip length, the API wants a string
	Resolution       string // "720p" or "1080p"
	PersonGeneration string // person-generation policy, e.g. "allow_all"
	AddWatermark     *bool  // nil keeps the default
	GenerateAudio    *bool  // nil keeps the default
	StorageURI       string // gs:// destination for rendered clips
}

// DefaultParams returns the parameter set used when the caller supplies no
// overrides. The storage URI comes from configuration.
func DefaultParams(storageURI string) Params {
	watermark := true
	audio := false
	return Params{
		AspectRatio:      "9:16",
		SampleCount:      1,
		DurationSeconds:  "8",
		Resolution:       "720p",
		PersonGeneration: "allow_all",
		AddWatermark:     &watermark,
		GenerateAudio:    &audio,
		StorageURI:       storageURI,
	}
}

// merge overlays the non-zero fields of overrides onto base.
func (base Params) merge(overrides Params) Params {
	out := base
	if overrides.AspectRatio != "" {
		out.AspectRatio = overrides.AspectRatio
	}
	if overrides.SampleCount > 0 {
		out.SampleCount = overrides.SampleCount
	}
	if overrides.DurationSeconds != "" {
		out.DurationSeconds = overrides.DurationSeconds
	}
	if overrides.Resolution != "" {
		out.Resolution = overrides.Resolution
	}
	if overrides.PersonGeneration != "" {
		out.PersonGeneration = overrides.PersonGeneration
	}
	if overrides.AddWatermark != nil {
		out.AddWatermark = overrides.AddWatermark
	}
	if overrides.GenerateAudio != nil {
		out.GenerateAudio = overrides.GenerateAudio
	}
	if overrides.StorageURI != "" {
		out.StorageURI = overrides.StorageURI
	}
	return out
}

// Operation is the handle for a submitted long-running video job.
//
// Name is the fully-qualified operation name and is what the fetch endpoint
// requires; ID is only the trailing path segment, suitable for display and
// external references. Calling the fetch endpoint with the short ID fails.
type Operation struct {
	// Name is the full operation name, e.g.
	// "projects/p/locations/l/publishers/google/models/m/operations/abc123".
	Name string
	// ID is the trailing path segment of Name.
	ID string
	// SubmittedAt is when the submission call returned.
	SubmittedAt time.Time
}

// CheckResult is the outcome of a single status check.
type CheckResult struct {
	// Done reports whether the operation reached a terminal state upstream.
	Done bool
	// Succeeded is meaningful only when Done is true.
	Succeeded bool
	// VideoURL is the browser-openable artifact URL when the operation
	// succeeded. Empty with Done+Succeeded means the response carried no
	// artifact.
	VideoURL string
	// ErrorDetail carries the upstream error message when the operation
	// failed.
	ErrorDetail string
}

// submitRequest is the request body for the predictLongRunning endpoint.
type submitRequest struct {
	Endpoint   string           `json:"endpoint"`
	Instances  []submitInstance `json:"instances"`
	Parameters wireParams       `json:"parameters"`
}

type submitInstance struct {
	Prompt string `json:"prompt"`
}

// wireParams is the JSON shape the API expects for parameters.
type wireParams struct {
	AspectRatio      string `json:"aspectRatio"`
	SampleCount      int    `json:"sampleCount"`
	DurationSeconds  string `json:"durationSeconds"`
	PersonGeneration string `json:"personGeneration"`
	AddWatermark     bool   `json:"addWatermark"`
	IncludeRaiReason bool   `json:"includeRaiReason"`
	GenerateAudio    bool   `json:"generateAudio"`
	Resolution       string `json:"resolution"`
	StorageURI       string `json:"storageUri,omitempty"`
}

// submitResponse is the response from the predictLongRunning endpoint.
type submitResponse struct {
	Name string `json:"name"`
}

// fetchRequest is the request body for the fetchPredictOperation endpoint.
type fetchRequest struct {
	OperationName string `json:"operationName"`
}

// fetchResponse is the response from the fetchPredictOperation endpoint.
type fetchResponse struct {
	Name     string         `json:"name"`
	Done     bool           `json:"done"`
	Response *fetchPayload  `json:"response,omitempty"`
	Error    *fetchOpStatus `json:"error,omitempty"`
}

type fetchPayload struct {
	Videos []fetchVideo `json:"videos,omitempty"`
}

type fetchVideo struct {
	GCSURI string `json:"gcsUri,omitempty"`
}

type fetchOpStatus struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
