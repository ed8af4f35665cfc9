package domain

import "time"

// JobStatus enumerates the batch job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusSubmitted  JobStatus = "submitted"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether no further transition is legal from s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// BatchJobRequest is one unit of deferred work. It always carries reference
// images as storage paths, never inline bytes, because the payload is
// persisted and replayed later.
type BatchJobRequest struct {
	Prompt              string   `json:"prompt,omitempty"`
	NegativePrompt      string   `json:"negative_prompt,omitempty"`
	AspectRatio         string   `json:"aspect_ratio,omitempty"`
	ImageSize           string   `json:"image_size,omitempty"`
	ReferenceImagePaths []string `json:"reference_image_paths,omitempty"`
	Source              string   `json:"source,omitempty"`
}

// BatchJobResult records the outcome of one request. Results are appended in
// request order and never rewritten.
type BatchJobResult struct {
	RequestIndex int    `json:"request_index"`
	Success      bool   `json:"success"`
	URL          string `json:"url,omitempty"`
	Base64       string `json:"base64,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BatchJob is the only entity whose lifetime exceeds one call. It is mutated
// only by the batch manager's own background processor, except for the
// explicit cancel transition.
type BatchJob struct {
	ID                  string
	OwnerID             string
	ProviderConfigID    string
	Requests            []BatchJobRequest
	Results             []BatchJobResult
	Status              JobStatus
	ErrorMessage        string
	SubmittedAt         *time.Time
	EstimatedCompletion *time.Time
	CompletedAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
