// Package httputil provides shared HTTP helpers for the REST API surface:
// JSON responses and the error array shape clients expect.
package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorItem is one element of an API error response. Error responses are
// always a JSON array of these.
type ErrorItem struct {
	Message   string   `json:"message"`
	ErrorCode string   `json:"errorCode"`
	Fields    []string `json:"fields,omitempty"`
}

// OAuthError is the error body of the OAuth endpoints.
type OAuthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a single-element error array.
func WriteError(w http.ResponseWriter, status int, errCode, message string, fields ...string) {
	WriteJSON(w, status, []ErrorItem{{Message: message, ErrorCode: errCode, Fields: fields}})
}

// WriteErrors writes an error array with several entries.
func WriteErrors(w http.ResponseWriter, status int, items []ErrorItem) {
	WriteJSON(w, status, items)
}

// WriteOAuthError writes an OAuth error body.
func WriteOAuthError(w http.ResponseWriter, status int, errCode, description string) {
	WriteJSON(w, status, OAuthError{Error: errCode, ErrorDescription: description})
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteCreated writes a 201 Created response with the created resource.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteOK writes a 200 OK response with data.
func WriteOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteBadRequest writes a 400 Bad Request error response.
func WriteBadRequest(w http.ResponseWriter, errCode, message string, fields ...string) {
	WriteError(w, http.StatusBadRequest, errCode, message, fields...)
}

// WriteNotFound writes a 404 Not Found error response.
func WriteNotFound(w http.ResponseWriter, errCode, message string) {
	WriteError(w, http.StatusNotFound, errCode, message)
}

// WriteUnauthorized writes a 401 Unauthorized error response.
func WriteUnauthorized(w http.ResponseWriter, errCode, message string) {
	WriteError(w, http.StatusUnauthorized, errCode, message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, errCode, message string) {
	WriteError(w, http.StatusInternalServerError, errCode, message)
}
