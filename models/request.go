package models

import "time"

// ISOTimeLayout matches JavaScript's Date.toISOString output.
const ISOTimeLayout = "2006-01-02T15:04:05.000Z"

// JobRequest is the payload for POST /api/submit-scrape-job.
type JobRequest struct {
	// URL is the target page, exactly as the user typed it.
	URL string `json:"url"`

	// Elements is a snapshot of the working set at submit time.
	Elements []Element `json:"elements"`

	// User is the submitting user's email. Omitted when unauthenticated.
	User *string `json:"user,omitempty"`

	// TimeCreated is the submission time, ISO-8601 in UTC.
	TimeCreated string `json:"time_created"`
}

// NewJobRequest builds a JobRequest stamped with now.
// The elements slice is copied so later edits to the working set do not
// leak into an in-flight request.
func NewJobRequest(url string, elements []Element, user *User, now time.Time) *JobRequest {
	req := &JobRequest{
		URL:         url,
		Elements:    append([]Element{}, elements...),
		TimeCreated: FormatISOTime(now),
	}
	if user != nil {
		email := user.Email
		req.User = &email
	}
	return req
}

// FormatISOTime renders t in UTC with millisecond precision.
func FormatISOTime(t time.Time) string {
	return t.UTC().Format(ISOTimeLayout)
}
