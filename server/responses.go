package server

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/ifrederico/shopify-bulkexport/internal/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Error codes returned in the "error" field of API error bodies
const (
	errCodeBadRequest        = "bad_request"
	errCodeNotConnected      = "not_connected"
	errCodeUnauthorized      = "unauthorized"
	errCodeUpstream          = "upstream_error"
	errCodeUpstreamDown      = "upstream_unreachable"
	errCodeUpstreamMalformed = "upstream_malformed"
	errCodeNotFound          = "not_found"
	errCodeInternal          = "internal_error"

	msgNotConnected = "No store connected"
)

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, errorCode, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   errorCode,
		"message": message,
	})
}

// apiError maps an error to the status, code and message an /api caller sees. The message
// never includes secrets: upstream errors only carry Shopify's own error text.
// unreachableStatus is the status used when Shopify could not be reached.
func apiError(err error, unreachableStatus int) (int, string, string) {
	var upstream *apperrors.UpstreamError
	switch {
	case errors.Is(err, apperrors.ErrNotConnected):
		return http.StatusBadRequest, errCodeNotConnected, msgNotConnected
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, errCodeUnauthorized, "Invalid session token"
	case errors.Is(err, apperrors.ErrInvalidShop):
		return http.StatusBadRequest, errCodeBadRequest, "Invalid shop domain"
	case errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, errCodeBadRequest, err.Error()
	case errors.As(err, &upstream):
		message := upstream.Message
		if message == "" {
			message = "Shopify rejected the request"
		}
		return http.StatusBadRequest, errCodeUpstream, message
	case errors.Is(err, apperrors.ErrUpstreamAuth):
		return http.StatusBadRequest, errCodeUpstream, "Shopify rejected the request"
	case errors.Is(err, apperrors.ErrUpstreamUnreachable):
		return unreachableStatus, errCodeUpstreamDown, "Could not reach Shopify"
	case errors.Is(err, apperrors.ErrUpstreamMalformed):
		return http.StatusBadRequest, errCodeUpstreamMalformed, "Unexpected response from Shopify"
	default:
		return http.StatusInternalServerError, errCodeInternal, "Internal server error"
	}
}
