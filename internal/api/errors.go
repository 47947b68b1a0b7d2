package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"greetd/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error          string             `json:"error"`
	Code           string             `json:"code"`
	Details        interface{}        `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error, status int) {
	resp := ErrorResponse{
		Error: err.Error(),
		Code:  string(errors.InternalError),
	}

	var coded *errors.Error
	if stderrors.As(err, &coded) {
		resp.Code = string(coded.Code)
		resp.Details = coded.Details
		resp.SuggestedFixes = coded.SuggestedFixes
	}

	WriteJSON(w, resp, status)
}

// WriteCodedError writes err with its code mapped to a status
func WriteCodedError(w http.ResponseWriter, err error) {
	WriteError(w, err, MapErrorToStatus(errors.CodeOf(err)))
}

// MapErrorToStatus maps error codes to HTTP status codes
func MapErrorToStatus(code errors.ErrorCode) int {
	switch code {
	case errors.DatabaseUnavailable, errors.CacheUnavailable:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// InternalError writes err as an INTERNAL_ERROR response
func InternalError(w http.ResponseWriter, message string, err error) {
	WriteCodedError(w, errors.New(errors.InternalError, message, err))
}
