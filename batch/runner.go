// Package batch submits a list of URLs to the queued job API one at a time,
// collects one field per page and writes the records to a JSON file. The
// position in the list is persisted so an interrupted run resumes where it
// stopped.
package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/use-agent/scrapeform/metrics"
	"github.com/use-agent/scrapeform/models"
	"github.com/use-agent/scrapeform/tracker"
	"github.com/use-agent/scrapeform/webhook"
)

// EventCompleted is the webhook event type sent after a run.
const EventCompleted = "batch.completed"

// Backend is the queued job API. *jobclient.Client satisfies it.
type Backend interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
	Enqueue(ctx context.Context, job *models.Job) (string, error)
	Wait(ctx context.Context, id string, interval time.Duration) (*models.Job, error)
}

// Options tune a Runner.
type Options struct {
	Username string
	Password string

	// IndexFile stores the resume position.
	IndexFile string

	// OutputFile receives the collected records.
	OutputFile string

	// Delay spaces consecutive jobs.
	Delay time.Duration

	// PollInterval is passed to Backend.Wait.
	PollInterval time.Duration

	WebhookURL    string
	WebhookSecret string
	WebhookDelays []time.Duration

	// Now stamps job documents. Defaults to time.Now.
	Now func() time.Time
}

// Runner processes a URL list against a Backend.
type Runner struct {
	backend Backend
	job     *JobFile
	opts    Options
}

// NewRunner creates a Runner. A nil job uses DefaultJobFile.
func NewRunner(backend Backend, job *JobFile, opts Options) *Runner {
	if job == nil {
		job = DefaultJobFile()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WebhookDelays == nil {
		opts.WebhookDelays = webhook.DefaultDelays
	}
	return &Runner{backend: backend, job: job, opts: opts}
}

// Run processes urls starting at the stored index. Records collected before
// an error or cancellation are still written to the output file.
func (r *Runner) Run(ctx context.Context, urls []string) (summary *models.BatchSummary, err error) {
	summary = &models.BatchSummary{
		ID:     uuid.NewString(),
		Total:  len(urls),
		Output: r.opts.OutputFile,
	}
	records := []models.ContactRecord{}

	defer func() {
		if werr := writeRecords(r.opts.OutputFile, records); werr != nil {
			slog.Error("failed to write batch output", "path", r.opts.OutputFile, "error", werr)
			if err == nil {
				err = werr
			}
			return
		}
		slog.Info("batch output written", "path", r.opts.OutputFile, "records", len(records))
	}()

	r.authenticate(ctx)

	start, lerr := tracker.Load(r.opts.IndexFile)
	if lerr != nil {
		slog.Warn("resume index unreadable, starting from 0", "error", lerr)
		start = 0
	}
	summary.NextIndex = start
	if start > 0 {
		slog.Info("resuming batch", "index", start, "total", len(urls))
	}

	// rate.Every of a non-positive delay is rate.Inf.
	pace := rate.NewLimiter(rate.Every(r.opts.Delay), 1)

	for i := start; i < len(urls); i++ {
		if err := pace.Wait(ctx); err != nil {
			return summary, err
		}
		url := urls[i]

		job := models.NewQueuedJob(url, r.job.ElementsFor(url), models.FormatISOTime(r.opts.Now()))
		id, eerr := r.backend.Enqueue(ctx, job)
		if eerr != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			slog.Error("skipping url after submission failure", "url", url, "index", i, "error", eerr)
			summary.Skipped++
			metrics.BatchJobsTotal.WithLabelValues(metrics.BatchSkipped).Inc()
			continue
		}

		var result json.RawMessage
		done, werr := r.backend.Wait(ctx, id, r.opts.PollInterval)
		switch {
		case werr != nil && ctx.Err() != nil:
			return summary, ctx.Err()
		case werr != nil:
			slog.Error("job did not complete", "url", url, "job_id", id, "error", werr)
		case done != nil:
			result = done.Result
		}

		rec := models.ContactRecord{
			URL:          url,
			BusinessName: BusinessName(url),
			Contact:      ExtractField(result, url, r.job.Field, r.job.Fallback),
		}
		records = append(records, rec)
		summary.Processed++
		metrics.BatchJobsTotal.WithLabelValues(metrics.BatchProcessed).Inc()
		slog.Info("record collected", "url", url, "business_name", rec.BusinessName)

		summary.NextIndex = i + 1
		if serr := tracker.Save(r.opts.IndexFile, i+1); serr != nil {
			slog.Error("failed to save resume index", "index", i+1, "error", serr)
		}
	}

	r.notify(ctx, summary)
	return summary, nil
}

func (r *Runner) authenticate(ctx context.Context) {
	if r.opts.Username == "" {
		slog.Info("no backend credentials configured, submitting unauthenticated")
		return
	}
	if _, err := r.backend.Authenticate(ctx, r.opts.Username, r.opts.Password); err != nil {
		slog.Error("authentication failed, continuing unauthenticated", "error", err)
		return
	}
	slog.Info("authenticated with backend", "username", r.opts.Username)
}

func (r *Runner) notify(ctx context.Context, summary *models.BatchSummary) {
	if r.opts.WebhookURL == "" {
		return
	}
	event := &webhook.Event{
		Type:      EventCompleted,
		JobID:     summary.ID,
		Timestamp: r.opts.Now().Unix(),
		Data:      summary,
	}
	if err := webhook.DeliverWithRetry(ctx, r.opts.WebhookURL, r.opts.WebhookSecret, event, r.opts.WebhookDelays); err != nil {
		slog.Error("batch completion webhook failed", "batch_id", summary.ID, "error", err)
	}
}

// writeRecords writes records as an indented JSON array, creating the
// parent directory.
func writeRecords(path string, records []models.ContactRecord) error {
	if path == "" {
		return errors.New("batch: no output file configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("batch: create output dir: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("batch: encode records: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("batch: write output: %w", err)
	}
	return nil
}
