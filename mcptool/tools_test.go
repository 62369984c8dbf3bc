package mcptool

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/scrapeform/builder"
	"github.com/use-agent/scrapeform/models"
)

type fakeBackend struct {
	submitted []*models.JobRequest
	result    *models.ResultSet
	err       error
	job       *models.Job
}

func (f *fakeBackend) Submit(ctx context.Context, req *models.JobRequest) (*models.ResultSet, error) {
	f.submitted = append(f.submitted, req)
	return f.result, f.err
}

func (f *fakeBackend) Status(ctx context.Context, id string) (*models.Job, error) {
	return f.job, f.err
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)

	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text, res.IsError
	case *mcp.TextContent:
		return c.Text, res.IsError
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return "", false
}

var fixedNow = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

func TestHandleSubmit(t *testing.T) {
	rs := models.NewResultSet()
	rs.Set("https://example.com", []models.ScrapeResult{{XPath: "//h1", Text: "Hello", Name: "Title"}})
	be := &fakeBackend{result: rs}

	text, isErr := call(t, HandleSubmit(be, fixedNow), map[string]any{
		"url":      "https://example.com",
		"elements": `[{"name":"Title","xpath":"//h1"}]`,
	})
	require.False(t, isErr, text)
	assert.Contains(t, text, "## https://example.com")
	assert.Contains(t, text, "Title | //h1 | Hello")

	require.Len(t, be.submitted, 1)
	req := be.submitted[0]
	assert.Equal(t, "2024-05-06T07:08:09.000Z", req.TimeCreated)
	assert.Nil(t, req.User)
	assert.Equal(t, []models.Element{{Name: "Title", XPath: "//h1", URL: "https://example.com"}}, req.Elements)
}

func TestHandleSubmit_Rejects(t *testing.T) {
	be := &fakeBackend{result: models.NewResultSet()}
	h := HandleSubmit(be, fixedNow)

	text, isErr := call(t, h, map[string]any{"url": "not a url", "elements": `[{"name":"T","xpath":"//h1"}]`})
	assert.True(t, isErr)
	assert.Equal(t, builder.InvalidURLMessage, text)

	_, isErr = call(t, h, map[string]any{"url": "https://example.com", "elements": `{}`})
	assert.True(t, isErr)

	_, isErr = call(t, h, map[string]any{"url": "https://example.com", "elements": `[]`})
	assert.True(t, isErr)

	_, isErr = call(t, h, map[string]any{"elements": `[]`})
	assert.True(t, isErr)

	assert.Empty(t, be.submitted)
}

func TestHandleSubmit_BackendError(t *testing.T) {
	be := &fakeBackend{err: models.NewJobError(models.ErrCodeUpstreamStatus, "backend returned status 502", nil)}
	text, isErr := call(t, HandleSubmit(be, fixedNow), map[string]any{
		"url":      "https://example.com",
		"elements": `[{"name":"T","xpath":"//h1"}]`,
	})
	assert.True(t, isErr)
	assert.Contains(t, text, models.ErrCodeUpstreamStatus)
}

func TestHandleSubmit_NoResults(t *testing.T) {
	be := &fakeBackend{result: models.NewResultSet()}
	text, isErr := call(t, HandleSubmit(be, fixedNow), map[string]any{
		"url":      "https://example.com",
		"elements": `[{"name":"T","xpath":"//h1"}]`,
	})
	assert.False(t, isErr)
	assert.Equal(t, "No results.", text)
}

func TestHandleStatus(t *testing.T) {
	be := &fakeBackend{job: &models.Job{
		ID:     "j1",
		URL:    "https://example.com",
		Status: models.JobStatusCompleted,
		Result: json.RawMessage(`[{"a":1}]`),
	}}
	text, isErr := call(t, HandleStatus(be), map[string]any{"id": "j1"})
	require.False(t, isErr)
	assert.Contains(t, text, "Status: Completed")
	assert.Contains(t, text, `"a": 1`)

	be.job.Status = models.JobStatusScraping
	text, _ = call(t, HandleStatus(be), map[string]any{"id": "j1"})
	assert.NotContains(t, text, "Result:")
}

func TestHandleDeepLink(t *testing.T) {
	text, isErr := call(t, HandleDeepLink(), map[string]any{
		"base_url": "http://localhost:8080/",
		"url":      "https://example.com",
		"elements": `[{"name":"Title","xpath":"//h1","url":"https://example.com"}]`,
	})
	require.False(t, isErr, text)

	u, err := url.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", u.Query().Get(builder.QueryParamTargetURL))

	state := builder.Load(u.Query())
	assert.Empty(t, state.LoadError)
	assert.Equal(t, []models.Element{{Name: "Title", XPath: "//h1", URL: "https://example.com"}}, state.Elements)

	_, isErr = call(t, HandleDeepLink(), map[string]any{"base_url": "relative/path"})
	assert.True(t, isErr)
}
