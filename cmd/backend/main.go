package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/swaggo/swag"

	config "github.com/drummonds/gosign/config"
	database "github.com/drummonds/gosign/database"
	_ "github.com/drummonds/gosign/docs"
	engine "github.com/drummonds/gosign/engine"
	"github.com/drummonds/gosign/engine/pdfrenderer"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
}

// @title gosign Backend API
// @version 1.0
// @description PDF signing API - Backend service for document sessions, stamp placement and signed PDF export
// @description Supports PDF upload and rasterization, click positioned stamp placements with undo and reset, stamp library management and full page export

// @contact.name API Support
// @contact.url https://github.com/drummonds/gosign

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @tag.name Documents
// @tag.description Document session operations (upload, pages, lifecycle)

// @tag.name Placements
// @tag.description Stamp placement log operations (place, undo, reset)

// @tag.name Export
// @tag.description Signed PDF export operations

// @tag.name Stamps
// @tag.description Signature and initial stamp library management

// @tag.name Jobs
// @tag.description Background job tracking

// @tag.name Admin
// @tag.description Administrative operations (cleanup, about, health)

func main() {
	// Parse command-line flags
	port := flag.String("port", "8000", "Port to run backend server on")
	flag.Parse()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("🔧  gosign Backend API Server")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("• API-only mode (no frontend)")
	fmt.Println("• All endpoints under /api/*")
	fmt.Println("• CORS enabled for frontend access")
	fmt.Println(strings.Repeat("=", 50) + "\n")

	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	// Show info banner if using ephemeral database
	if serverConfig.DatabaseType == "ephemeral" {
		fmt.Println("🚀  EPHEMERAL DATABASE MODE")
		fmt.Println("• Database will be destroyed on exit")
		fmt.Println()
	}

	// Setup session repository
	repo := database.NewRepository(serverConfig)
	defer repo.Close()

	// Write config to database if it's a fresh ephemeral database
	if serverConfig.DatabaseType == "ephemeral" {
		database.WriteConfigToDB(serverConfig, repo)
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Validator = engine.NewCustomValidator()

	// Custom 404 handler for API endpoints
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		if code == http.StatusNotFound {
			// Return JSON for API endpoints
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested API endpoint does not exist",
				"path":    c.Request().URL.Path,
			})
			return
		}

		// For other errors, use default handler
		e.DefaultHTTPErrorHandler(err, c)
	}

	serverHandler := engine.ServerHandler{
		DB:           repo,
		Echo:         e,
		ServerConfig: serverConfig,
		Sessions:     engine.NewSessionManager(),
		Stamps:       engine.NewStampLibrary(),
	}

	renderer, err := pdfrenderer.NewRenderer(serverConfig.PDFRenderer)
	if err != nil {
		Logger.Warn("PDF renderer unavailable, uploads will fail to render", "renderer", serverConfig.PDFRenderer, "error", err)
	} else {
		serverHandler.Renderer = renderer
	}

	if serverConfig.PDFServiceURL != "" {
		serverHandler.Services = engine.NewServiceClients(serverConfig.PDFServiceURL)
	}

	Logger.Info("Initializing backend services...")
	serverHandler.InitializeSchedules(repo) //initialize all the cron jobs
	serverHandler.StartupChecks()           //Run all the sanity checks
	Logger.Info("Backend services initialized")

	// CORS configuration - allow frontend from different origin
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"}, // In production, specify your frontend URL
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Request logging
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}, latency=${latency_human}\n",
	}))

	Logger.Info("Setting up API routes...")

	// Document session API routes
	e.POST("/api/documents", serverHandler.UploadDocument)
	e.GET("/api/documents", serverHandler.ListDocuments)
	e.GET("/api/documents/:id", serverHandler.GetDocument)
	e.DELETE("/api/documents/:id", serverHandler.DeleteDocument)
	e.GET("/api/documents/:id/pages/:page", serverHandler.GetDocumentPage)

	// Placement log API routes
	e.POST("/api/documents/:id/placements", serverHandler.CreatePlacement)
	e.POST("/api/documents/:id/undo", serverHandler.UndoPlacement)
	e.POST("/api/documents/:id/reset", serverHandler.ResetPlacements)

	// Export API routes
	e.POST("/api/documents/:id/export", serverHandler.StartExport)
	e.GET("/api/documents/:id/export", serverHandler.DownloadExport)

	// Stamp library API routes
	e.GET("/api/stamps", serverHandler.GetStampVariants)
	e.GET("/api/stamps/:variant", serverHandler.GetStampSet)
	e.PUT("/api/stamps/:variant", serverHandler.ReplaceStampSet)
	e.DELETE("/api/stamps/:variant", serverHandler.DeleteStampSet)
	e.GET("/api/stamps/:variant/:position/image", serverHandler.GetStampImage)
	e.GET("/api/stamps/:variant/:position/thumbnail", serverHandler.GetStampThumbnail)

	// Admin API routes
	e.POST("/api/clean", serverHandler.CleanSessions)
	e.GET("/api/about", serverHandler.GetAboutInfo)
	e.GET("/api/health", serverHandler.HealthCheck)

	// Job tracking API routes
	e.GET("/api/jobs", serverHandler.GetRecentJobs)
	e.GET("/api/jobs/active", serverHandler.GetActiveJobs)
	e.GET("/api/jobs/:id", serverHandler.GetJob)

	// Swagger spec generated from the handler annotations (swag init)
	e.GET("/swagger/doc.json", func(c echo.Context) error {
		doc, err := swag.ReadDoc()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "Swagger spec unavailable",
			})
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(doc))
	})

	// Override port if specified via flag
	if *port != "8000" {
		serverConfig.ListenAddrPort = *port
	}

	// Start server
	addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
	Logger.Info("Starting Backend API Server", "address", addr)
	fmt.Printf("\n✅  Backend API Server running on %s\n", addr)
	fmt.Printf("📡  API endpoints available at http://%s/api/\n", addr)
	fmt.Printf("🏥  Health check: http://%s/api/health\n\n", addr)

	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		Logger.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
