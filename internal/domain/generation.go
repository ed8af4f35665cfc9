package domain

import "time"

// Vendor enumerates the provider families the service can talk to.
type Vendor string

const (
	VendorGemini    Vendor = "gemini"
	VendorFal       Vendor = "fal"
	VendorOpenAI    Vendor = "openai"
	VendorStability Vendor = "stability"
	VendorCustom    Vendor = "custom"
)

// DeliveryMode selects between the synchronous fast path and the deferred
// batch path.
type DeliveryMode string

const (
	ModeFast    DeliveryMode = "fast"
	ModeRelaxed DeliveryMode = "relaxed"
)

// GenerationRequest is the vendor-neutral, validated input shared by both
// delivery paths.
type GenerationRequest struct {
	ProviderID          string
	Prompt              string
	NegativePrompt      string
	AspectRatio         string
	ImageSize           string
	OutputCount         int
	ReferenceImagePaths []string
	Mode                DeliveryMode
	Source              string
}

// GeneratedImage is the uniform adapter output. URL may be a data URL when
// the vendor returns inline bytes.
type GeneratedImage struct {
	URL    string `json:"url"`
	Base64 string `json:"base64,omitempty"`
}

// ReferenceImage carries resolved reference bytes for adapters that accept
// inline conditioning input.
type ReferenceImage struct {
	MIME string
	Data []byte
}

// ProviderOptions holds vendor-specific knobs resolved from the provider
// configuration record.
type ProviderOptions struct {
	SafetyChecker  bool `json:"safety_checker"`
	TimeoutSeconds int  `json:"timeout_seconds,omitempty"`
}

// ProviderConfig is resolved server-side by id and is immutable for the
// lifetime of one request or job.
type ProviderConfig struct {
	ID           string
	OwnerID      string
	Vendor       Vendor
	Endpoint     string
	Model        string
	Options      ProviderOptions
	CredentialID string
}

// Generation is one persisted image record. Both paths write the same shape
// so deferred results show up in the owner's history exactly like fast ones.
type Generation struct {
	ID               string
	OwnerID          string
	ProviderConfigID string
	JobID            string
	Prompt           string
	NegativePrompt   string
	AspectRatio      string
	ImageSize        string
	URL              string
	Source           string
	CreatedAt        time.Time
}
