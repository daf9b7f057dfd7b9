package models

// ErrorResponse is the stable failure body of /api/chat. Details carries
// the underlying error text and is only populated in development.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
