package api

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// HealthCheck is the status of one internal component.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SweepResponse is returned by POST /api/v1/reservations/no-show-sweep.
type SweepResponse struct {
	Processed int `json:"processed"`
}

// ValidateVersionResponse is returned by POST /api/v1/locks/validate.
type ValidateVersionResponse struct {
	Valid bool `json:"valid"`
}

// ReleaseLockResponse is returned by POST /api/v1/locks/release.
type ReleaseLockResponse struct {
	Released bool `json:"released"`
}

// ResolveConflictResponse carries the winning document after conflict
// resolution.
type ResolveConflictResponse struct {
	Strategy string         `json:"strategy"`
	Resolved map[string]any `json:"resolved"`
}
