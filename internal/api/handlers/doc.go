// Package handlers implements HTTP handlers for the restockd API.
package handlers

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status"`
}

// CheckResponse is the response body for a completed stock check.
type CheckResponse struct {
	Status string `json:"status"`
	Found  int    `json:"found"`
}
