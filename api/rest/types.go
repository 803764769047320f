// Package rest provides the coordinator's HTTP surface.
package rest

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// RegisterResponse acknowledges a registration.
type RegisterResponse struct {
	Status   string `json:"status"`
	WorkerID string `json:"worker_id"`
}

// StatusResponse is the body of GET /check_status.
type StatusResponse struct {
	Status string `json:"status"`
}

// WorkerResponse describes one registered worker.
type WorkerResponse struct {
	ID           string `json:"id"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	State        string `json:"state"`
	RegisteredAt string `json:"registered_at"`
	LastSeen     string `json:"last_seen"`
}

// WorkerListResponse lists registered workers.
type WorkerListResponse struct {
	Workers []WorkerResponse `json:"workers"`
	Total   int              `json:"total"`
}
