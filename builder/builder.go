// Package builder holds the scrape request builder: the working set of named
// XPath elements, the draft being composed, the target URL and the last
// results returned by the job endpoint.
//
// Every operation is a pure function from the prior State (plus input) to a
// new State and at most a handful of Effects. Effects describe side effects
// (the job submission, scrolling to results) for the caller to perform; the
// builder never performs I/O.
package builder

import (
	"encoding/json"
	"time"

	"github.com/use-agent/scrapeform/models"
)

// Messages surfaced to the user.
const (
	InvalidURLMessage  = "Please enter a valid URL."
	LoadErrorMessage   = "Could not load elements from link."
	SubmitErrorMessage = "Scrape job failed. Previous results are still shown."
	AddHintReady       = "Add Element"
	AddHintIncomplete  = "Fill out all fields to add an element"
)

// Deep-link query parameters.
const (
	QueryParamElements  = "elements"
	QueryParamTargetURL = "url"
)

// UserSource yields the authenticated user, or nil when nobody is signed in.
type UserSource interface {
	CurrentUser() *models.User
}

// UserFunc adapts a function to UserSource.
type UserFunc func() *models.User

func (f UserFunc) CurrentUser() *models.User { return f() }

// Anonymous is a UserSource with no signed-in user.
var Anonymous UserSource = UserFunc(func() *models.User { return nil })

// QueryParams exposes the deep-link parameters read once at load.
type QueryParams interface {
	Get(key string) string
}

// State is the complete builder state of one session.
type State struct {
	TargetURL   string
	URLValid    bool
	URLError    string
	Elements    []models.Element
	Draft       models.Element
	Results     *models.ResultSet
	LoadError   string
	SubmitError string
}

// Effect is a side effect requested by a transition.
type Effect interface {
	effect()
}

// SubmitJob asks the caller to POST Request to the job endpoint and feed the
// outcome back through ReceiveResults or SubmitFailed.
type SubmitJob struct {
	Request *models.JobRequest
}

// ScrollToResults asks the caller to bring the results table into view.
type ScrollToResults struct{}

func (SubmitJob) effect()       {}
func (ScrollToResults) effect() {}

// New returns an empty builder state.
func New() State {
	return State{URLValid: true}
}

// Load builds the initial state from deep-link parameters. A malformed
// elements parameter leaves the working set empty and sets LoadError.
func Load(q QueryParams) State {
	s := New()
	if q == nil {
		return s
	}
	if raw := q.Get(QueryParamElements); raw != "" {
		elements, err := ParseElements(raw)
		if err != nil {
			s.LoadError = LoadErrorMessage
		} else {
			s.Elements = elements
		}
	}
	if u := q.Get(QueryParamTargetURL); u != "" {
		s.TargetURL = u
	}
	return s
}

// ParseElements decodes a serialized working set.
func ParseElements(raw string) ([]models.Element, error) {
	var elements []models.Element
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		return nil, models.NewJobError(models.ErrCodeDeepLinkInvalid, "elements parameter is not a JSON element list", err)
	}
	return elements, nil
}

// SetTargetURL updates the target URL without revalidating it.
func SetTargetURL(s State, v string) State {
	s.TargetURL = v
	return s
}

// SetDraftName updates the draft's name.
func SetDraftName(s State, v string) State {
	s.Draft.Name = v
	return s
}

// SetDraftXPath updates the draft's XPath.
func SetDraftXPath(s State, v string) State {
	s.Draft.XPath = v
	return s
}

// CanAdd reports whether the add control is enabled.
func CanAdd(s State) bool {
	return s.Draft.Name != "" && s.Draft.XPath != ""
}

// AddHint is the tooltip shown on the add control.
func AddHint(s State) string {
	if CanAdd(s) {
		return AddHintReady
	}
	return AddHintIncomplete
}

// AddElement appends the draft, stamped with the current target URL, and
// clears the draft. It is a no-op unless CanAdd.
func AddElement(s State) State {
	if !CanAdd(s) {
		return s
	}
	el := s.Draft
	el.URL = s.TargetURL

	elements := make([]models.Element, 0, len(s.Elements)+1)
	elements = append(elements, s.Elements...)
	s.Elements = append(elements, el)
	s.Draft = models.Element{}
	return s
}

// DeleteElement removes every element named name, keeping the order of the
// rest.
func DeleteElement(s State, name string) State {
	kept := make([]models.Element, 0, len(s.Elements))
	for _, el := range s.Elements {
		if el.Name != name {
			kept = append(kept, el)
		}
	}
	s.Elements = kept
	return s
}

// CanSubmit reports whether the submit control is enabled. URL validity
// plays no part.
func CanSubmit(s State) bool {
	return len(s.Elements) > 0
}

// Submit validates the target URL and, when it parses, emits one SubmitJob
// effect carrying a snapshot of the working set.
func Submit(s State, users UserSource, now time.Time) (State, []Effect) {
	if !CanSubmit(s) {
		return s, nil
	}
	if !ValidateURL(s.TargetURL) {
		s.URLValid = false
		s.URLError = InvalidURLMessage
		return s, nil
	}
	s.URLValid = true
	s.URLError = ""

	var user *models.User
	if users != nil {
		user = users.CurrentUser()
	}
	req := models.NewJobRequest(s.TargetURL, s.Elements, user, now)
	return s, []Effect{SubmitJob{Request: req}}
}

// ReceiveResults replaces the result set with rs. The first results of a
// session also emit ScrollToResults.
func ReceiveResults(s State, rs *models.ResultSet) (State, []Effect) {
	if rs == nil {
		rs = models.NewResultSet()
	}
	var effects []Effect
	if s.Results == nil {
		effects = append(effects, ScrollToResults{})
	}
	s.Results = rs
	s.SubmitError = ""
	return s, effects
}

// SubmitFailed records a failed submission. Results are left untouched.
func SubmitFailed(s State, err error) State {
	if err == nil {
		return s
	}
	s.SubmitError = SubmitErrorMessage
	return s
}

// DismissLoadError clears the deep-link banner.
func DismissLoadError(s State) State {
	s.LoadError = ""
	return s
}
