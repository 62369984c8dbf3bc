package models

import "encoding/json"

// Job statuses reported by GET /api/job/{id}.
const (
	JobStatusQueued    = "Queued"
	JobStatusScraping  = "Scraping"
	JobStatusCompleted = "Completed"
	JobStatusFailed    = "Failed"
)

// JobOptions are per-job scraping switches understood by the backend.
type JobOptions struct {
	MultiPageScrape bool              `json:"multi_page_scrape"`
	CustomHeaders   map[string]string `json:"custom_headers"`
}

// Job is the queued-job document used by the batch submitter.
type Job struct {
	ID          string          `json:"id"`
	URL         string          `json:"url"`
	Elements    []Element       `json:"elements"`
	User        string          `json:"user"`
	TimeCreated string          `json:"time_created"`
	Result      json.RawMessage `json:"result"`
	JobOptions  JobOptions      `json:"job_options"`
	Status      string          `json:"status"`
	Chat        string          `json:"chat"`
}

// NewQueuedJob returns a job document ready for submission.
func NewQueuedJob(url string, elements []Element, timeCreated string) *Job {
	return &Job{
		URL:         url,
		Elements:    elements,
		TimeCreated: timeCreated,
		Result:      json.RawMessage("[]"),
		JobOptions:  JobOptions{CustomHeaders: map[string]string{}},
		Status:      JobStatusQueued,
	}
}

// Done reports whether the job reached a terminal status.
func (j *Job) Done() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// EnqueueResponse is the minimal response of a queued submission.
type EnqueueResponse struct {
	ID string `json:"id"`
}

// TokenResponse is the response of POST /api/auth/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}
