package jobclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/scrapeform/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithRetries(3, 0)}, opts...)
	return New(srv.URL+"/", opts...)
}

func sampleRequest() *models.JobRequest {
	email := "ada@example.com"
	return &models.JobRequest{
		URL:         "https://example.com",
		Elements:    []models.Element{{Name: "Title", XPath: "//h1", URL: "https://example.com"}},
		User:        &email,
		TimeCreated: "2024-03-09T14:05:06.789Z",
	}
}

func TestSubmit_PostsPayloadAndDecodesResults(t *testing.T) {
	var gotBody []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, SubmitPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"page1":[{"xpath":"//h1","text":"Hello","name":"Title"}]}`)
	}, WithToken("tok"))

	rs, err := c.Submit(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"url":"https://example.com",
		"elements":[{"name":"Title","xpath":"//h1","url":"https://example.com"}],
		"user":"ada@example.com",
		"time_created":"2024-03-09T14:05:06.789Z"
	}`, string(gotBody))

	rows := rs.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, models.ResultRow{Key: "page1", Name: "Title", XPath: "//h1", Text: "Hello"}, rows[0])
}

func TestSubmit_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{"non json", http.StatusOK, "<html>oops</html>", models.ErrCodeBadResponse},
		{"json null", http.StatusOK, "null", models.ErrCodeBadResponse},
		{"wrong shape", http.StatusOK, `[{"xpath":"//h1"}]`, models.ErrCodeBadResponse},
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`, models.ErrCodeUpstreamStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			rs, err := c.Submit(context.Background(), sampleRequest())
			require.Error(t, err)
			assert.Nil(t, rs)
			assert.Equal(t, tt.code, models.CodeOf(err))
		})
	}
}

func TestSubmit_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := New(srv.URL).Submit(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeSubmitFailed, models.CodeOf(err))
}

func TestAuthenticate(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case AuthPath:
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "user", r.PostForm.Get("username"))
			assert.Equal(t, "pass", r.PostForm.Get("password"))
			io.WriteString(w, `{"access_token":"abc","token_type":"bearer"}`)
		case JobPath + "j1":
			assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
			io.WriteString(w, `{"id":"j1","status":"Queued"}`)
		default:
			http.NotFound(w, r)
		}
	})

	tok, err := c.Authenticate(context.Background(), "user", "pass")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
	assert.Equal(t, "abc", c.Token())

	_, err = c.Status(context.Background(), "j1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestAuthenticate_Failures(t *testing.T) {
	for name, h := range map[string]http.HandlerFunc{
		"unauthorized": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
		"no token":     func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `{}`) },
		"not json":     func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `nope`) },
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h)
			_, err := c.Authenticate(context.Background(), "u", "p")
			require.Error(t, err)
			assert.Equal(t, models.ErrCodeAuthFailed, models.CodeOf(err))
			assert.Empty(t, c.Token())
		})
	}
}

func TestEnqueue_RetriesUntilID(t *testing.T) {
	var attempts atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		var job models.Job
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&job))
		assert.Equal(t, models.JobStatusQueued, job.Status)
		switch n {
		case 1:
			w.WriteHeader(http.StatusBadGateway)
		case 2:
			io.WriteString(w, `{}`)
		default:
			io.WriteString(w, `{"id":"job-42"}`)
		}
	})

	job := models.NewQueuedJob("https://example.com/biz-123", nil, "2024-01-01T00:00:00.000Z")
	id, err := c.Enqueue(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "job-42", id)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestEnqueue_GivesUp(t *testing.T) {
	var attempts atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithRetries(2, 0))

	_, err := c.Enqueue(context.Background(), models.NewQueuedJob("https://example.com", nil, ""))
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeSubmitFailed, models.CodeOf(err))
	assert.EqualValues(t, 2, attempts.Load())
}

func TestEnqueue_HonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithRetries(5, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Enqueue(ctx, models.NewQueuedJob("https://example.com", nil, ""))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestStatus_ObjectAndList(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status string
		code   string
	}{
		{"object", `{"id":"j","status":"Completed","result":[{"a":1}]}`, models.JobStatusCompleted, ""},
		{"list", `[{"id":"j","status":"Scraping"},{"id":"other","status":"Failed"}]`, models.JobStatusScraping, ""},
		{"empty list", `[]`, "", models.ErrCodeBadResponse},
		{"list of strings", `["x"]`, "", models.ErrCodeBadResponse},
		{"number", `42`, "", models.ErrCodeBadResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})
			job, err := c.Status(context.Background(), "j")
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, models.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, job.Status)
		})
	}
}

func TestWait_PollsUntilTerminal(t *testing.T) {
	var polls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch polls.Add(1) {
		case 1:
			io.WriteString(w, `{"id":"j","status":"Queued"}`)
		case 2:
			w.WriteHeader(http.StatusInternalServerError)
		default:
			io.WriteString(w, `{"id":"j","status":"Completed","result":{"ContactSection":[{"text":"hi"}]}}`)
		}
	})

	job, err := c.Wait(context.Background(), "j", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.JSONEq(t, `{"ContactSection":[{"text":"hi"}]}`, string(job.Result))
	assert.EqualValues(t, 3, polls.Load())
}

func TestWait_Failed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":"j","status":"Failed"}`)
	})
	job, err := c.Wait(context.Background(), "j", time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeJobFailed, models.CodeOf(err))
	require.NotNil(t, job)
	assert.True(t, job.Done())
}

func TestWait_Cancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":"j","status":"Scraping"}`)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.Wait(ctx, "j", 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_TimeoutAppliesToDefaultClientOnly(t *testing.T) {
	c := New("http://backend.test", WithTimeout(5*time.Second))
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)

	for _, opts := range [][]Option{
		{WithHTTPClient(&http.Client{}), WithTimeout(5 * time.Second)},
		{WithTimeout(5 * time.Second), WithHTTPClient(&http.Client{})},
	} {
		c := New("http://backend.test", opts...)
		assert.Zero(t, c.httpClient.Timeout, "a caller-supplied client is left untouched")
	}

	shared := &http.Client{Timeout: time.Minute}
	New("http://backend.test", WithHTTPClient(shared), WithTimeout(time.Second))
	assert.Equal(t, time.Minute, shared.Timeout)
}
