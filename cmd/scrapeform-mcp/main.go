package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/scrapeform/config"
	"github.com/use-agent/scrapeform/jobclient"
	"github.com/use-agent/scrapeform/logging"
	"github.com/use-agent/scrapeform/mcptool"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// stdout carries the MCP protocol.
	logging.Init(cfg.Log, os.Stderr)

	client := jobclient.New(cfg.Backend.BaseURL,
		jobclient.WithTimeout(cfg.Backend.Timeout),
		jobclient.WithToken(cfg.Backend.Token),
	)

	s := server.NewMCPServer(
		"scrapeform",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	mcptool.Register(s, client, nil)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
