package models

// StateResponse is the response for GET /api/v1/state.
type StateResponse struct {
	TargetURL   string      `json:"target_url"`
	URLValid    bool        `json:"url_valid"`
	URLError    string      `json:"url_error,omitempty"`
	Elements    []Element   `json:"elements"`
	Draft       Element     `json:"draft"`
	CanAdd      bool        `json:"can_add"`
	CanSubmit   bool        `json:"can_submit"`
	Results     *ResultSet  `json:"results"`
	ResultRows  []ResultRow `json:"result_rows,omitempty"`
	LoadError   string      `json:"load_error,omitempty"`
	SubmitError string      `json:"submit_error,omitempty"`
}

// ContactRecord is one line of the batch submitter's output file.
type ContactRecord struct {
	URL          string `json:"url"`
	BusinessName string `json:"business_name"`
	Contact      string `json:"contact"`
}

// BatchSummary describes a finished batch run.
type BatchSummary struct {
	ID        string `json:"id"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	NextIndex int    `json:"next_index"`
	Output    string `json:"output"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
	Backend  string `json:"backend"`
	Version  string `json:"version"`
}

// ErrorResponse wraps an ErrorDetail for JSON error bodies.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}
