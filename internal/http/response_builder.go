// Package http serves the dashboard page and its JSON API.
//
// This file implements the Builder Pattern for JSON responses so every
// handler answers with the same content type and error envelope.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// errorBody is the envelope of every API error.
type errorBody struct {
	Error string `json:"error"`
}

// JSONResponse creates a new response builder with default 200 status.
func JSONResponse(body any) *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
		body:       body,
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the response to the client.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}

// ErrorResponse creates a response builder for error responses.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return JSONResponse(errorBody{Error: message}).Status(statusCode)
}

// BadRequestError creates a 400 Bad Request response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed response.
func MethodNotAllowedError(allowedMethods string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").
		Header("Allow", allowedMethods)
}

// retryAfterSeconds is sent with every 503 while the ledger loads.
const retryAfterSeconds = "5"

// ServiceUnavailableError creates a 503 Service Unavailable response.
func ServiceUnavailableError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message).
		Header("Retry-After", retryAfterSeconds)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}
