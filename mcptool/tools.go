// Package mcptool exposes the scrape job backend as MCP tools.
package mcptool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/scrapeform/builder"
	"github.com/use-agent/scrapeform/models"
)

// Backend is the part of the job API the tools call.
// *jobclient.Client satisfies it.
type Backend interface {
	Submit(ctx context.Context, req *models.JobRequest) (*models.ResultSet, error)
	Status(ctx context.Context, id string) (*models.Job, error)
}

// Register adds every tool to s.
func Register(s *server.MCPServer, backend Backend, now func() time.Time) {
	if now == nil {
		now = time.Now
	}

	submitTool := mcp.NewTool("submit_scrape_job",
		mcp.WithDescription("Submit a scrape job for one page and return the extracted values. Each element names an XPath to extract."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to scrape"),
		),
		mcp.WithString("elements",
			mcp.Required(),
			mcp.Description(`JSON array of elements, e.g. [{"name":"Title","xpath":"//h1"}]`),
		),
	)
	s.AddTool(submitTool, HandleSubmit(backend, now))

	statusTool := mcp.NewTool("get_job_status",
		mcp.WithDescription("Get the status and result of a queued scrape job."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The job id returned when the job was queued"),
		),
	)
	s.AddTool(statusTool, HandleStatus(backend))

	linkTool := mcp.NewTool("build_deep_link",
		mcp.WithDescription("Build a link that opens the request builder with a URL and elements filled in."),
		mcp.WithString("base_url",
			mcp.Required(),
			mcp.Description("Address of the builder page, e.g. http://localhost:8080/"),
		),
		mcp.WithString("url",
			mcp.Description("Target URL to prefill"),
		),
		mcp.WithString("elements",
			mcp.Description("JSON array of elements to prefill"),
		),
	)
	s.AddTool(linkTool, HandleDeepLink())
}

// HandleSubmit validates the input the same way the builder page does and
// posts the job.
func HandleSubmit(backend Backend, now func() time.Time) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		rawElements, err := request.RequireString("elements")
		if err != nil {
			return mcp.NewToolResultError("elements is required"), nil
		}

		elements, err := builder.ParseElements(rawElements)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("elements must be a JSON array of {name, xpath}: %v", err)), nil
		}

		state := builder.SetTargetURL(builder.New(), target)
		for _, el := range elements {
			state = builder.SetDraftName(state, el.Name)
			state = builder.SetDraftXPath(state, el.XPath)
			state = builder.AddElement(state)
		}
		if !builder.CanSubmit(state) {
			return mcp.NewToolResultError("at least one element with a name and an xpath is required"), nil
		}

		state, effects := builder.Submit(state, builder.Anonymous, now())
		if !state.URLValid {
			return mcp.NewToolResultError(state.URLError), nil
		}

		for _, eff := range effects {
			job, ok := eff.(builder.SubmitJob)
			if !ok {
				continue
			}
			rs, err := backend.Submit(ctx, job.Request)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] scrape job failed: %v", models.CodeOf(err), err)), nil
			}
			return mcp.NewToolResultText(formatRows(rs)), nil
		}
		return mcp.NewToolResultError("nothing to submit"), nil
	}
}

// HandleStatus reports a queued job.
func HandleStatus(backend Backend) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		job, err := backend.Status(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] status check failed: %v", models.CodeOf(err), err)), nil
		}

		result := fmt.Sprintf("Job %s\nURL: %s\nStatus: %s\n", id, job.URL, job.Status)
		if job.Done() && len(job.Result) > 0 {
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, job.Result, "", "  "); err != nil {
				pretty.Write(job.Result)
			}
			result += "\nResult:\n" + pretty.String()
		}
		return mcp.NewToolResultText(result), nil
	}
}

// HandleDeepLink builds a builder page link.
func HandleDeepLink() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		base, err := request.RequireString("base_url")
		if err != nil {
			return mcp.NewToolResultError("base_url is required"), nil
		}
		u, err := url.Parse(base)
		if err != nil || u.Host == "" {
			return mcp.NewToolResultError("base_url must be an absolute URL"), nil
		}

		q := u.Query()
		if target := request.GetString("url", ""); target != "" {
			q.Set(builder.QueryParamTargetURL, target)
		}
		if raw := request.GetString("elements", ""); raw != "" {
			elements, err := builder.ParseElements(raw)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("elements must be a JSON array: %v", err)), nil
			}
			encoded, err := json.Marshal(elements)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			q.Set(builder.QueryParamElements, string(encoded))
		}
		u.RawQuery = q.Encode()
		return mcp.NewToolResultText(u.String()), nil
	}
}

// formatRows renders a result set as one "name | xpath | text" line per
// value, grouped by URL.
func formatRows(rs *models.ResultSet) string {
	rows := rs.Rows()
	if len(rows) == 0 {
		return "No results."
	}

	var sb strings.Builder
	current := ""
	for _, row := range rows {
		if row.Key != current {
			if current != "" {
				sb.WriteString("\n")
			}
			current = row.Key
			fmt.Fprintf(&sb, "## %s\n", row.Key)
		}
		fmt.Fprintf(&sb, "%s | %s | %s\n", row.Name, row.XPath, row.Text)
	}
	return sb.String()
}
