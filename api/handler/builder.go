package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scrapeform/api/middleware"
	"github.com/use-agent/scrapeform/builder"
	"github.com/use-agent/scrapeform/metrics"
	"github.com/use-agent/scrapeform/models"
	"github.com/use-agent/scrapeform/session"
)

// PageTemplate is the template name rendered for GET /.
const PageTemplate = "index.html"

// resultsAnchor is where the page jumps after the first results arrive.
const resultsAnchor = "/#results"

// Submitter posts a job request and returns the backend's result set.
// *jobclient.Client satisfies it.
type Submitter interface {
	Submit(ctx context.Context, req *models.JobRequest) (*models.ResultSet, error)
}

// Builder serves the request builder page and its form actions. Every
// action runs one builder transition on the caller's session and performs
// the resulting effects.
type Builder struct {
	submitter Submitter
	now       func() time.Time
}

// NewBuilder creates the builder handlers.
func NewBuilder(sub Submitter) *Builder {
	return &Builder{submitter: sub, now: time.Now}
}

// PageView is the data passed to the page template.
type PageView struct {
	State     builder.State
	CanAdd    bool
	AddHint   string
	CanSubmit bool
	Rows      []models.ResultRow

	// Hints for the client-side add button toggle.
	AddHintReady      string
	AddHintIncomplete string
}

func newPageView(s builder.State) PageView {
	return PageView{
		State:     s,
		CanAdd:    builder.CanAdd(s),
		AddHint:   builder.AddHint(s),
		CanSubmit: builder.CanSubmit(s),
		Rows:      s.Results.Rows(),

		AddHintReady:      builder.AddHintReady,
		AddHintIncomplete: builder.AddHintIncomplete,
	}
}

// Page handles GET /. Deep-link parameters replace the session state.
func (b *Builder) Page(c *gin.Context) {
	sess := middleware.SessionFrom(c)

	q := c.Request.URL.Query()
	state := sess.State()
	if q.Has(builder.QueryParamElements) || q.Has(builder.QueryParamTargetURL) {
		state = sess.Update(func(builder.State) builder.State { return builder.Load(q) })
		if state.LoadError != "" {
			slog.Warn("deep link elements rejected", "session", sess.ID)
		}
	}

	c.HTML(http.StatusOK, PageTemplate, newPageView(state))
}

// State handles GET /api/v1/state.
func (b *Builder) State(c *gin.Context) {
	c.JSON(http.StatusOK, stateResponse(middleware.SessionFrom(c).State()))
}

// SetURL handles POST /url.
func (b *Builder) SetURL(c *gin.Context) {
	target := c.PostForm("target_url")
	state := middleware.SessionFrom(c).Update(func(s builder.State) builder.State {
		return builder.SetTargetURL(s, target)
	})
	b.respond(c, state, false)
}

// SetDraft handles POST /draft. Absent fields are left unchanged.
func (b *Builder) SetDraft(c *gin.Context) {
	name, hasName := c.GetPostForm("name")
	xpath, hasXPath := c.GetPostForm("xpath")
	state := middleware.SessionFrom(c).Update(func(s builder.State) builder.State {
		if hasName {
			s = builder.SetDraftName(s, name)
		}
		if hasXPath {
			s = builder.SetDraftXPath(s, xpath)
		}
		return s
	})
	b.respond(c, state, false)
}

// AddElement handles POST /elements. The posted draft fields, if any, are
// applied first; an incomplete draft is kept and nothing is added.
func (b *Builder) AddElement(c *gin.Context) {
	name, hasName := c.GetPostForm("name")
	xpath, hasXPath := c.GetPostForm("xpath")
	target, hasTarget := c.GetPostForm("target_url")
	state := middleware.SessionFrom(c).Update(func(s builder.State) builder.State {
		if hasTarget {
			s = builder.SetTargetURL(s, target)
		}
		if hasName {
			s = builder.SetDraftName(s, name)
		}
		if hasXPath {
			s = builder.SetDraftXPath(s, xpath)
		}
		return builder.AddElement(s)
	})
	b.respond(c, state, false)
}

// DeleteElement handles POST /elements/delete.
func (b *Builder) DeleteElement(c *gin.Context) {
	name := c.PostForm("name")
	state := middleware.SessionFrom(c).Update(func(s builder.State) builder.State {
		return builder.DeleteElement(s, name)
	})
	b.respond(c, state, false)
}

// DismissLoadError handles POST /load-error/dismiss.
func (b *Builder) DismissLoadError(c *gin.Context) {
	state := middleware.SessionFrom(c).Update(builder.DismissLoadError)
	b.respond(c, state, false)
}

// Submit handles POST /submit. Posted target_url and draft fields are
// applied before the submission. The backend call runs outside the session
// lock.
func (b *Builder) Submit(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	target, hasTarget := c.GetPostForm("target_url")
	name, hasName := c.GetPostForm("name")
	xpath, hasXPath := c.GetPostForm("xpath")
	users := builder.UserFunc(func() *models.User { return middleware.UserFrom(c) })

	state, effects := sess.Apply(func(s builder.State) (builder.State, []builder.Effect) {
		if hasTarget {
			s = builder.SetTargetURL(s, target)
		}
		if hasName {
			s = builder.SetDraftName(s, name)
		}
		if hasXPath {
			s = builder.SetDraftXPath(s, xpath)
		}
		return builder.Submit(s, users, b.now())
	})
	if builder.CanSubmit(state) && !state.URLValid {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeInvalidURL).Inc()
	}

	scroll := false
	for _, eff := range effects {
		switch e := eff.(type) {
		case builder.SubmitJob:
			var more []builder.Effect
			state, more = b.runSubmit(c.Request.Context(), sess, e.Request)
			for _, m := range more {
				if _, ok := m.(builder.ScrollToResults); ok {
					scroll = true
				}
			}
		case builder.ScrollToResults:
			scroll = true
		}
	}

	b.respond(c, state, scroll)
}

func (b *Builder) runSubmit(ctx context.Context, sess *session.Session, req *models.JobRequest) (builder.State, []builder.Effect) {
	start := time.Now()
	rs, err := b.submitter.Submit(ctx, req)
	metrics.SubmissionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		slog.Error("scrape job submission failed",
			"session", sess.ID,
			"url", req.URL,
			"code", models.CodeOf(err),
			"error", err,
		)
		state := sess.Update(func(s builder.State) builder.State { return builder.SubmitFailed(s, err) })
		return state, nil
	}

	metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	slog.Info("scrape job completed",
		"session", sess.ID,
		"url", req.URL,
		"elements", len(req.Elements),
		"result_urls", rs.Len(),
	)
	return sess.Apply(func(s builder.State) (builder.State, []builder.Effect) {
		return builder.ReceiveResults(s, rs)
	})
}

// respond redirects browsers back to the page and answers JSON clients with
// the new state.
func (b *Builder) respond(c *gin.Context, state builder.State, scroll bool) {
	switch c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) {
	case gin.MIMEJSON:
		c.JSON(http.StatusOK, stateResponse(state))
	default:
		target := "/"
		if scroll {
			target = resultsAnchor
		}
		c.Redirect(http.StatusSeeOther, target)
	}
}

func stateResponse(s builder.State) models.StateResponse {
	elements := s.Elements
	if elements == nil {
		elements = []models.Element{}
	}
	return models.StateResponse{
		TargetURL:   s.TargetURL,
		URLValid:    s.URLValid,
		URLError:    s.URLError,
		Elements:    elements,
		Draft:       s.Draft,
		CanAdd:      builder.CanAdd(s),
		CanSubmit:   builder.CanSubmit(s),
		Results:     s.Results,
		ResultRows:  s.Results.Rows(),
		LoadError:   s.LoadError,
		SubmitError: s.SubmitError,
	}
}
