package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/use-agent/scrapeform/batch"
	"github.com/use-agent/scrapeform/config"
	"github.com/use-agent/scrapeform/jobclient"
	"github.com/use-agent/scrapeform/logging"
	"github.com/use-agent/scrapeform/tracker"
)

var (
	jobFile     string
	urlsFile    string
	outputFile  string
	indexFile   string
	backendURL  string
	username    string
	password    string
	retries     int
	delay       time.Duration
	pollEvery   time.Duration
	trackerAddr string
	webhookURL  string
	logLevel    string
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "scrapeform-batch",
		Short: "Submit a list of URLs as scrape jobs and collect one field per page",
		Long: `scrapeform-batch queues one scrape job per URL, waits for each to finish,
and writes {url, business_name, contact} records to a JSON file. The position
in the URL list is saved after every page, so a rerun resumes where the last
one stopped.

Example:
  scrapeform-batch --job job.yaml --urls urls.json --tracker-addr :5000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg)
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&jobFile, "job", cfg.Batch.JobFile, "YAML job file (built-in contact job when missing)")
	f.StringVar(&urlsFile, "urls", "", "JSON array of URLs (overrides the job file)")
	f.StringVarP(&outputFile, "output", "o", cfg.Batch.OutputFile, "Output JSON file")
	f.StringVar(&indexFile, "index", cfg.Tracker.IndexFile, "Resume index file")
	f.StringVar(&backendURL, "backend", cfg.Backend.BaseURL, "Scrape job backend base URL")
	f.StringVar(&username, "username", cfg.Batch.Username, "Backend username")
	f.StringVar(&password, "password", cfg.Batch.Password, "Backend password")
	f.IntVar(&retries, "retries", cfg.Batch.MaxRetries, "Submission attempts per URL")
	f.DurationVar(&delay, "delay", cfg.Batch.RetryDelay, "Delay between submission attempts and between URLs")
	f.DurationVar(&pollEvery, "poll", cfg.Batch.RetryDelay, "Job status poll interval")
	f.StringVar(&trackerAddr, "tracker-addr", "", "Serve GET /tracker on this address while running")
	f.StringVar(&webhookURL, "webhook", cfg.Batch.WebhookURL, "POST a signed summary here when done")
	f.StringVar(&logLevel, "log-level", cfg.Log.Level, "debug, info, warn or error")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	logCfg := cfg.Log
	logCfg.Level = logLevel
	logging.Init(logCfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job, err := loadJob(cmd.Flags().Changed("job"))
	if err != nil {
		return err
	}
	if urlsFile != "" {
		job.URLs, job.URLsFile = nil, urlsFile
	} else if len(job.URLs) == 0 && job.URLsFile == "" {
		job.URLsFile = cfg.Batch.URLsFile
	}
	urls, err := job.ResolveURLs()
	if err != nil {
		return err
	}

	if trackerAddr != "" {
		srv := startTracker(trackerAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	client := jobclient.New(backendURL,
		jobclient.WithTimeout(cfg.Backend.Timeout),
		jobclient.WithToken(cfg.Backend.Token),
		jobclient.WithRetries(retries, delay),
	)

	runner := batch.NewRunner(client, job, batch.Options{
		Username:      username,
		Password:      password,
		IndexFile:     indexFile,
		OutputFile:    outputFile,
		Delay:         delay,
		PollInterval:  pollEvery,
		WebhookURL:    webhookURL,
		WebhookSecret: cfg.Batch.WebhookSecret,
	})

	slog.Info("batch starting", "urls", len(urls), "backend", backendURL, "field", job.Field)
	summary, err := runner.Run(ctx, urls)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "processed %d, skipped %d of %d URLs; records in %s\n",
		summary.Processed, summary.Skipped, summary.Total, summary.Output)
	return nil
}

// loadJob reads the job file. A missing default job file falls back to the
// built-in contact job; a missing explicit one is an error.
func loadJob(explicit bool) (*batch.JobFile, error) {
	job, err := batch.LoadJobFile(jobFile)
	if err == nil {
		return job, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		slog.Info("no job file found, using the built-in contact job", "path", jobFile)
		return batch.DefaultJobFile(), nil
	}
	return nil, err
}

func startTracker(addr string) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/tracker", tracker.Handler(indexFile))

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		slog.Info("tracker listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("tracker server error", "error", err)
		}
	}()
	return srv
}
