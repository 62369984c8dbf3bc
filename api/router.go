package api

import (
	"embed"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/use-agent/scrapeform/api/handler"
	"github.com/use-agent/scrapeform/api/middleware"
	"github.com/use-agent/scrapeform/config"
	"github.com/use-agent/scrapeform/session"
	"github.com/use-agent/scrapeform/tracker"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:   Recovery → Logger → Metrics
//	Builder:  Auth (if enabled) → RateLimit → Session
//
// Health, metrics and tracker endpoints sit outside auth so probes and
// scrapers always work.
func NewRouter(cfg *config.Config, sessions *session.Store, sub handler.Submitter, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.Metrics())
	r.SetHTMLTemplate(pageTemplates)

	r.GET("/api/v1/health", handler.Health(sessions, cfg.Session.MaxEntries, cfg.Backend.BaseURL, startTime))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/tracker", tracker.Handler(cfg.Tracker.IndexFile))

	app := r.Group("")
	if cfg.Auth.Enabled {
		app.Use(middleware.Auth(cfg.Auth.Users))
	}
	app.Use(middleware.RateLimit(cfg.RateLimit))
	app.Use(middleware.Session(sessions, cfg.Session.CookieSecure))

	b := handler.NewBuilder(sub)
	app.GET("/", b.Page)
	app.GET("/api/v1/state", b.State)
	app.POST("/url", b.SetURL)
	app.POST("/draft", b.SetDraft)
	app.POST("/elements", b.AddElement)
	app.POST("/elements/delete", b.DeleteElement)
	app.POST("/load-error/dismiss", b.DismissLoadError)
	app.POST("/submit", b.Submit)

	return r
}
