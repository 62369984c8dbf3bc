package jobclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/scrapeform/models"
	"golang.org/x/time/rate"
)

// Enqueue submits a job document and returns the id assigned by the
// backend. Failed attempts, including answers without an id, are retried up
// to the configured attempt count, spaced by the retry delay.
func (c *Client) Enqueue(ctx context.Context, job *models.Job) (string, error) {
	// rate.Every of a non-positive delay is rate.Inf.
	limiter := rate.NewLimiter(rate.Every(c.retryDelay), 1)

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return "", models.NewJobError(models.ErrCodeSubmitFailed, "enqueue cancelled", err)
		}

		id, err := c.enqueueOnce(ctx, job)
		if err == nil {
			slog.Info("job submitted", "url", job.URL, "job_id", id, "attempt", attempt)
			return id, nil
		}
		lastErr = err
		slog.Warn("job submission failed",
			"url", job.URL,
			"attempt", attempt,
			"max_attempts", c.maxRetries,
			"error", err,
		)
	}

	return "", models.NewJobError(models.ErrCodeSubmitFailed,
		fmt.Sprintf("could not submit job after %d attempts", c.maxRetries), lastErr)
}

func (c *Client) enqueueOnce(ctx context.Context, job *models.Job) (string, error) {
	body, err := c.postJSON(ctx, SubmitPath, job)
	if err != nil {
		return "", err
	}

	var resp models.EnqueueResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", models.NewJobError(models.ErrCodeBadResponse, "enqueue response is not JSON", err)
	}
	if resp.ID == "" {
		return "", models.NewJobError(models.ErrCodeBadResponse, "no job id returned", nil)
	}
	return resp.ID, nil
}

// Wait polls the job until it completes or fails. Transport and status
// errors are logged and polled through; malformed responses end the wait.
// A zero interval falls back to the retry delay.
func (c *Client) Wait(ctx context.Context, id string, interval time.Duration) (*models.Job, error) {
	if interval <= 0 {
		interval = c.retryDelay
	}
	if interval <= 0 {
		interval = defaultRetryDelay
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.Status(ctx, id)
		switch {
		case err != nil && models.CodeOf(err) == models.ErrCodeBadResponse:
			return nil, err
		case err != nil:
			slog.Warn("job status check failed", "job_id", id, "error", err)
		case job.Status == models.JobStatusCompleted:
			slog.Info("job completed", "job_id", id)
			return job, nil
		case job.Status == models.JobStatusFailed:
			return job, models.NewJobError(models.ErrCodeJobFailed, fmt.Sprintf("job %s failed", id), nil)
		default:
			slog.Debug("job still in progress", "job_id", id, "status", job.Status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
