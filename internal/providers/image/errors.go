package image

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"server/internal/domain"
)

// Classify maps a raw upstream failure (HTTP status plus vendor error body)
// into the fixed error taxonomy. Status-coded conditions are matched ahead
// of the generic fallback; anything unrecognized stays internal so vendor
// detail never reaches the caller.
func Classify(vendor domain.Vendor, status int, body []byte) *domain.GenError {
	detail := vendorErrorMessage(body)

	if kind, msg := safetySignal(body); kind != "" {
		return &domain.GenError{Kind: kind, Message: msg, Safe: true}
	}

	switch status {
	case http.StatusTooManyRequests:
		return &domain.GenError{Kind: domain.KindRateLimited, Message: domain.MsgRateLimited, Safe: true}
	case http.StatusServiceUnavailable, 529:
		return &domain.GenError{Kind: domain.KindCapacity, Message: domain.MsgCapacity, Safe: true}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		msg := "The provider rejected the request."
		if detail != "" {
			msg = "The provider rejected the request: " + detail
		}
		return &domain.GenError{Kind: domain.KindInvalidRequest, Message: msg, Safe: true}
	}

	return &domain.GenError{
		Kind:    domain.KindInternal,
		Message: fmt.Sprintf("%s returned status %d: %s", vendor, status, detail),
		Safe:    false,
	}
}

// safetySignal detects content and copyright filter blocks from vendor error
// bodies regardless of status code.
func safetySignal(body []byte) (domain.ErrorKind, string) {
	lower := strings.ToLower(string(body))
	switch {
	case strings.Contains(lower, "copyright") || strings.Contains(lower, "recitation"):
		return domain.KindSafetyBlocked, domain.MsgCopyrightBlocked
	case strings.Contains(lower, "content_policy") || strings.Contains(lower, "content policy") || strings.Contains(lower, "safety"):
		return domain.KindSafetyBlocked, domain.MsgSafetyBlocked
	}
	return "", ""
}

// vendorErrorMessage extracts a human-readable message from the handful of
// error body shapes the supported vendors use.
func vendorErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		return strings.TrimSpace(nested.Error.Message)
	}

	var flat struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &flat); err == nil {
		for _, msg := range []string{flat.Error, flat.Message, flat.Detail} {
			if strings.TrimSpace(msg) != "" {
				return strings.TrimSpace(msg)
			}
		}
	}

	// fal-style validation errors: {"detail":[{"msg":"..."}]}
	var detailList struct {
		Detail []struct {
			Msg string `json:"msg"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(body, &detailList); err == nil && len(detailList.Detail) > 0 {
		return strings.TrimSpace(detailList.Detail[0].Msg)
	}

	return ""
}
