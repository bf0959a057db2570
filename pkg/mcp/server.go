package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"render-crawler/pkg/config"
	"render-crawler/pkg/crawler"
	"render-crawler/pkg/render"
)

const (
	serverName    = "render-crawler"
	serverVersion = "1.0.0"
)

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig *config.AppConfig
	Launcher  render.Launcher // Engine used by every crawl; built from AppConfig when nil
	Transport string          // "stdio" or "sse"
	Port      int
	Logger    *logrus.Logger
}

// Server wraps the MCP server with the crawl tools
type Server struct {
	mcpServer  *server.MCPServer
	cfg        *ServerConfig
	base       crawler.CrawlOptions // configured defaults every crawl starts from
	log        *logrus.Entry
	jobManager *JobManager
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	log := cfg.Logger.WithField("component", "mcp")
	if cfg.Launcher == nil {
		cfg.Launcher = render.NewLauncher(cfg.AppConfig, log)
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithLogging(),
	)

	s := &Server{
		mcpServer:  mcpServer,
		cfg:        cfg,
		base:       crawler.OptionsFromConfig(cfg.AppConfig, log),
		log:        log,
		jobManager: NewJobManager(),
	}
	s.registerTools()
	return s, nil
}

// crawlParams are shared by the crawl and start_crawl tools
func crawlParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("urls",
			mcp.Required(),
			mcp.Description("Comma separated seed URLs"),
		),
		mcp.WithString("match",
			mcp.Required(),
			mcp.Description("Comma separated glob patterns a discovered link must match to be followed (e.g. 'https://example.com/docs/**')"),
		),
		mcp.WithString("exclude",
			mcp.Description("Comma separated glob patterns that are never followed"),
		),
		mcp.WithNumber("max_urls_to_crawl",
			mcp.Description("Maximum number of pages to fetch (default from config, 10)"),
		),
		mcp.WithNumber("max_concurrency",
			mcp.Description("Maximum number of pages fetched at once (default from config, 10)"),
		),
		mcp.WithString("selector",
			mcp.Description("CSS selector or XPath (starting with '/') to wait for; also the content root"),
		),
	}
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	crawlTool := mcp.NewTool("crawl", append([]mcp.ToolOption{
		mcp.WithDescription("Crawl from seed URLs and return the title and text of every page fetched. Blocks until the crawl finishes."),
	}, crawlParams()...)...)
	s.mcpServer.AddTool(crawlTool, s.handleCrawl)

	startCrawlTool := mcp.NewTool("start_crawl", append([]mcp.ToolOption{
		mcp.WithDescription("Start a background crawl. Returns immediately with a job ID."),
	}, crawlParams()...)...)
	s.mcpServer.AddTool(startCrawlTool, s.handleStartCrawl)

	getJobStatusTool := mcp.NewTool("get_job_status",
		mcp.WithDescription("Get the status of a crawl job, and its pages once it has completed"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by start_crawl"),
		),
		mcp.WithBoolean("include_pages",
			mcp.Description("Include the collected pages in the response (default: false)"),
		),
	)
	s.mcpServer.AddTool(getJobStatusTool, s.handleGetJobStatus)

	cancelJobTool := mcp.NewTool("cancel_job",
		mcp.WithDescription("Cancel a running crawl job. Pages already being fetched finish first."),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by start_crawl"),
		),
	)
	s.mcpServer.AddTool(cancelJobTool, s.handleCancelJob)

	s.log.Infof("Registered %d MCP tools", 4)
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		sseServer := server.NewSSEServer(s.mcpServer)
		return sseServer.Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	// Cancel any running jobs
	s.jobManager.CancelAll()
	return nil
}
