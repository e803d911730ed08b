package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/gosign/config"
	database "github.com/drummonds/gosign/database"
	engine "github.com/drummonds/gosign/engine"
	"github.com/drummonds/gosign/engine/pdfrenderer"
)

// setupTestServer creates a test server with all routes configured
func setupTestServer(t *testing.T) (*echo.Echo, *engine.ServerHandler, func()) {
	t.Setenv("LOG_OUTPUT", "stdout")
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger)
	serverConfig.StoragePath = t.TempDir()

	// Use ephemeral PostgreSQL for tests
	ephemeralDB, err := database.SetupEphemeralPostgresDatabase()
	if err != nil {
		t.Fatalf("Failed to setup ephemeral database: %v", err)
	}
	testDB := database.Repository(ephemeralDB)
	t.Cleanup(func() {
		ephemeralDB.Close()
	})

	database.WriteConfigToDB(serverConfig, testDB)

	e := echo.New()
	e.HideBanner = true
	e.Validator = engine.NewCustomValidator()
	serverHandler := &engine.ServerHandler{
		DB:           testDB,
		Echo:         e,
		ServerConfig: serverConfig,
		Sessions:     engine.NewSessionManager(),
		Stamps:       engine.NewStampLibrary(),
	}

	// Wire the in-process renderer so upload tests can reach the ready state
	renderer, err := pdfrenderer.NewRenderer(serverConfig.PDFRenderer)
	if err != nil {
		t.Logf("No PDF renderer available, render jobs will fail: %v", err)
	} else {
		serverHandler.Renderer = renderer
	}

	// Setup routes
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	e.POST("/api/documents", serverHandler.UploadDocument)
	e.GET("/api/documents", serverHandler.ListDocuments)
	e.GET("/api/documents/:id", serverHandler.GetDocument)
	e.DELETE("/api/documents/:id", serverHandler.DeleteDocument)
	e.GET("/api/documents/:id/pages/:page", serverHandler.GetDocumentPage)
	e.POST("/api/documents/:id/placements", serverHandler.CreatePlacement)
	e.POST("/api/documents/:id/undo", serverHandler.UndoPlacement)
	e.POST("/api/documents/:id/reset", serverHandler.ResetPlacements)
	e.POST("/api/documents/:id/export", serverHandler.StartExport)
	e.GET("/api/documents/:id/export", serverHandler.DownloadExport)
	e.GET("/api/stamps", serverHandler.GetStampVariants)
	e.GET("/api/stamps/:variant", serverHandler.GetStampSet)
	e.PUT("/api/stamps/:variant", serverHandler.ReplaceStampSet)
	e.DELETE("/api/stamps/:variant", serverHandler.DeleteStampSet)
	e.GET("/api/stamps/:variant/:position/image", serverHandler.GetStampImage)
	e.GET("/api/stamps/:variant/:position/thumbnail", serverHandler.GetStampThumbnail)
	e.POST("/api/clean", serverHandler.CleanSessions)
	e.GET("/api/about", serverHandler.GetAboutInfo)
	e.GET("/api/health", serverHandler.HealthCheck)
	e.GET("/api/jobs", serverHandler.GetRecentJobs)
	e.GET("/api/jobs/active", serverHandler.GetActiveJobs)
	e.GET("/api/jobs/:id", serverHandler.GetJob)

	cleanup := func() {
		testDB.Close()
	}

	return e, serverHandler, cleanup
}

// sessionView is the JSON shape of a document session as the API reports it
type sessionView struct {
	ID            string         `json:"id"`
	SourceName    string         `json:"sourceName"`
	SignedName    string         `json:"signedName"`
	Status        string         `json:"status"`
	Error         string         `json:"error"`
	PageCount     int            `json:"pageCount"`
	Placements    int            `json:"placements"`
	VariantCounts map[string]int `json:"variantCounts"`
	Pages         []struct {
		Index  int `json:"index"`
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"pages"`
	ExportReady bool `json:"exportReady"`
	Exporting   bool `json:"exporting"`
}

// getSession fetches one session through the API
func getSession(t *testing.T, e *echo.Echo, id string) (sessionView, int) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+id, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var view sessionView
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("Failed to parse session response: %v\nBody: %s", err, rec.Body.String())
		}
	}
	return view, rec.Code
}

// waitForRender polls a session until it leaves the rendering state
func waitForRender(t *testing.T, e *echo.Echo, id string) sessionView {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for {
		view, code := getSession(t, e, id)
		if code != http.StatusOK {
			t.Fatalf("Session lookup failed with status %d while polling", code)
		}
		if view.Status != "rendering" {
			return view
		}
		if time.Now().After(deadline) {
			t.Fatal("Render did not finish within deadline")
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// createTestPDF writes a small PDF with the given page count
func createTestPDF(t *testing.T, path string, pages int) {
	t.Helper()
	pdf := fpdf.New("P", "pt", "Letter", "")
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", 14)
		pdf.Text(100, 100, fmt.Sprintf("Signature test page %d", i+1))
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("Failed to write test PDF: %v", err)
	}
}

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.SetNRGBA(x, height/2, color.NRGBA{R: 20, G: 20, B: 120, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

// uploadPDFRequest builds a multipart document upload request
func uploadPDFRequest(t *testing.T, fileName string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Failed to write file content: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

// stampUploadRequest builds a multipart stamp set upload for a variant
func stampUploadRequest(t *testing.T, variant string, count int) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for i := 0; i < count; i++ {
		part, err := writer.CreateFormFile("files", fmt.Sprintf("%s-%d.png", variant, i))
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := part.Write(encodeTestPNG(t, 200, 80)); err != nil {
			t.Fatalf("Failed to write stamp content: %v", err)
		}
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPut, "/api/stamps/"+variant, body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

// TestListDocuments tests the /api/documents listing
func TestListDocuments(t *testing.T) {
	e, _, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var sessions []sessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("Failed to parse response: %v\nBody: %s", err, rec.Body.String())
	}
	if len(sessions) != 0 {
		t.Errorf("Expected no sessions on a fresh server, got %d", len(sessions))
	}
}

// TestDocumentSigningLifecycle walks the whole flow: upload, render, place,
// undo, export, download, delete
func TestDocumentSigningLifecycle(t *testing.T) {
	e, _, cleanup := setupTestServer(t)
	defer cleanup()

	// Stamps have to exist before placements are accepted
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, stampUploadRequest(t, "signature", 2))
	if rec.Code != http.StatusOK {
		t.Fatalf("Failed to store signature stamps: %d: %s", rec.Code, rec.Body.String())
	}

	pdfPath := filepath.Join(t.TempDir(), "lease.pdf")
	createTestPDF(t, pdfPath, 2)
	content, err := os.ReadFile(pdfPath)
	if err != nil {
		t.Fatalf("Failed to read test PDF: %v", err)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, uploadPDFRequest(t, "lease.pdf", content))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202 from upload, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		ID        string `json:"id"`
		JobID     string `json:"jobId"`
		PageCount int    `json:"pageCount"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("Failed to parse upload response: %v", err)
	}
	if accepted.PageCount != 2 {
		t.Errorf("Expected preflight page count 2, got %d", accepted.PageCount)
	}
	if accepted.Status != "rendering" {
		t.Errorf("Expected rendering status after upload, got %q", accepted.Status)
	}

	view := waitForRender(t, e, accepted.ID)
	if view.Status != "ready" {
		t.Fatalf("Expected session to reach ready, got %s: %s", view.Status, view.Error)
	}
	if view.PageCount != 2 || len(view.Pages) != 2 {
		t.Fatalf("Expected 2 rendered pages, got count %d with %d page entries", view.PageCount, len(view.Pages))
	}
	// Letter portrait at 150 DPI comes out around 1275x1650
	if view.Pages[0].Width < 1000 {
		t.Errorf("Page raster unexpectedly narrow: %d px", view.Pages[0].Width)
	}
	if view.Pages[0].Height <= view.Pages[0].Width {
		t.Errorf("Portrait page should be taller than wide, got %dx%d", view.Pages[0].Width, view.Pages[0].Height)
	}
	if view.SignedName != "lease_signed.pdf" {
		t.Errorf("Expected signed name lease_signed.pdf, got %q", view.SignedName)
	}

	// The composited page renders as PNG
	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+accepted.ID+"/pages/0", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from page fetch, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "image/png" {
		t.Errorf("Expected image/png, got %q", got)
	}

	// Two placements cycle the round robin counter
	for i, payload := range []string{
		`{"pageIndex": 0, "x": 400, "y": 600, "variant": "signature", "heightPx": 120}`,
		`{"pageIndex": 1, "x": 200, "y": 300, "variant": "signature", "heightPx": 80}`,
	} {
		req = httptest.NewRequest(http.MethodPost, "/api/documents/"+accepted.ID+"/placements", bytes.NewBufferString(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201 for placement %d, got %d: %s", i, rec.Code, rec.Body.String())
		}
		var placed struct {
			VariantIndex int `json:"variantIndex"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &placed); err != nil {
			t.Fatalf("Failed to parse placement response: %v", err)
		}
		if placed.VariantIndex != i {
			t.Errorf("Expected variant index %d, got %d", i, placed.VariantIndex)
		}
	}

	view, _ = getSession(t, e, accepted.ID)
	if view.Placements != 2 || view.VariantCounts["signature"] != 2 {
		t.Errorf("Expected 2 signature placements, got %d total with counts %v", view.Placements, view.VariantCounts)
	}

	// Undo removes the newest placement
	req = httptest.NewRequest(http.MethodPost, "/api/documents/"+accepted.ID+"/undo", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var undone struct {
		Removed    bool `json:"removed"`
		Placements int  `json:"placements"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &undone); err != nil {
		t.Fatalf("Failed to parse undo response: %v", err)
	}
	if !undone.Removed || undone.Placements != 1 {
		t.Errorf("Expected removed=true with 1 left, got %+v", undone)
	}

	// Export runs as a background job; exportReady flips once it is written
	req = httptest.NewRequest(http.MethodPost, "/api/documents/"+accepted.ID+"/export", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202 from export start, got %d: %s", rec.Code, rec.Body.String())
	}
	var started struct {
		SignedName string `json:"signedName"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("Failed to parse export response: %v", err)
	}
	if started.SignedName != "lease_signed.pdf" {
		t.Errorf("Expected signed name lease_signed.pdf, got %q", started.SignedName)
	}

	deadline := time.Now().Add(30 * time.Second)
	for {
		view, _ = getSession(t, e, accepted.ID)
		if !view.Exporting && view.ExportReady {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Export did not finish within deadline")
		}
		time.Sleep(100 * time.Millisecond)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/documents/"+accepted.ID+"/export", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from export download, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "lease_signed.pdf") {
		t.Errorf("Expected attachment named lease_signed.pdf, got %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("Export download should be a PDF")
	}

	// Delete drops the session for good
	req = httptest.NewRequest(http.MethodDelete, "/api/documents/"+accepted.ID, nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from delete, got %d", rec.Code)
	}
	if _, code := getSession(t, e, accepted.ID); code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", code)
	}
}

// TestUploadRejectsBadInput tests upload validation through the API
func TestUploadRejectsBadInput(t *testing.T) {
	e, serverHandler, cleanup := setupTestServer(t)
	defer cleanup()

	t.Run("Missing file", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
		req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for missing file, got %d", rec.Code)
		}
	})

	t.Run("Non-PDF extension", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, uploadPDFRequest(t, "notes.txt", []byte("plain text")))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for non-PDF extension, got %d", rec.Code)
		}
	})

	t.Run("Unparseable PDF", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, uploadPDFRequest(t, "fake.pdf", []byte("%PDF-not really")))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for unparseable PDF, got %d: %s", rec.Code, rec.Body.String())
		}
		if serverHandler.RenderGuard.InFlight() {
			t.Error("Render guard should be released after a rejected upload")
		}
	})
}

// TestAdminEndpoints tests the admin API endpoints
func TestAdminEndpoints(t *testing.T) {
	e, _, cleanup := setupTestServer(t)
	defer cleanup()

	t.Run("Trigger manual cleanup", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/clean", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse clean response: %v", err)
		}

		// Should have jobId and message (job-based response)
		if _, ok := response["jobId"]; !ok {
			t.Error("Response missing 'jobId' field")
		}
		if _, ok := response["message"]; !ok {
			t.Error("Response missing 'message' field")
		}
	})

	t.Run("Health check", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse health response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("Expected status ok, got %v", response["status"])
		}
	})
}

// TestGetAboutInfo tests the /api/about endpoint
func TestGetAboutInfo(t *testing.T) {
	e, serverHandler, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/about", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var aboutInfo map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &aboutInfo); err != nil {
		t.Fatalf("Failed to parse response: %v\nBody: %s", err, rec.Body.String())
	}

	// Verify required fields are present
	requiredFields := []string{
		"version", "pdfRenderer", "pdfExporter", "pdfServiceConfigured",
		"databaseType", "storagePath", "sessionTTLHours",
		"defaultStampHeightPx", "liveSessions",
	}
	for _, field := range requiredFields {
		if _, ok := aboutInfo[field]; !ok {
			t.Errorf("Response missing required field: %s", field)
		}
	}

	// Verify field types
	if _, ok := aboutInfo["version"].(string); !ok {
		t.Errorf("version should be a string, got %T", aboutInfo["version"])
	}
	if _, ok := aboutInfo["pdfServiceConfigured"].(bool); !ok {
		t.Errorf("pdfServiceConfigured should be a boolean, got %T", aboutInfo["pdfServiceConfigured"])
	}
	if _, ok := aboutInfo["liveSessions"].(float64); !ok {
		t.Errorf("liveSessions should be a number, got %T", aboutInfo["liveSessions"])
	}

	// No sidecar is configured in tests
	if configured := aboutInfo["pdfServiceConfigured"].(bool); configured != (serverHandler.Services != nil) {
		t.Errorf("pdfServiceConfigured mismatch: got %v", configured)
	}

	if renderer := aboutInfo["pdfRenderer"].(string); renderer == "" {
		t.Error("pdfRenderer should not be empty")
	}
}

// TestJobEndpoints tests the job tracking API
func TestJobEndpoints(t *testing.T) {
	e, _, cleanup := setupTestServer(t)
	defer cleanup()

	// A manual cleanup creates a job row synchronously
	req := httptest.NewRequest(http.MethodPost, "/api/clean", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from clean, got %d", rec.Code)
	}

	t.Run("Recent jobs", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var jobs []map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &jobs); err != nil {
			t.Fatalf("Failed to parse jobs response: %v", err)
		}
		if len(jobs) == 0 {
			t.Error("Expected at least the cleanup job in recent jobs")
		}
	})

	t.Run("Active jobs", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/active", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}
	})

	t.Run("Invalid job ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/notanulid", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for an invalid job ID, got %d", rec.Code)
		}
	})

	t.Run("Unknown job ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/01ARZ3NDEKTSV4RRFFQ69G5FAV", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404 for an unknown job ID, got %d", rec.Code)
		}
	})
}

// TestContentTypes tests that endpoints return correct content types
func TestContentTypes(t *testing.T) {
	e, _, cleanup := setupTestServer(t)
	defer cleanup()

	tests := []struct {
		name         string
		endpoint     string
		expectedType string
	}{
		{"Documents endpoint", "/api/documents", "application/json"},
		{"Stamps endpoint", "/api/stamps", "application/json"},
		{"About endpoint", "/api/about", "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.endpoint, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			contentType := rec.Header().Get("Content-Type")
			if !strings.HasPrefix(contentType, tt.expectedType) {
				t.Errorf("Expected Content-Type %s, got %s", tt.expectedType, contentType)
			}
		})
	}
}

// TestConcurrentRequests tests API behavior under concurrent load
func TestConcurrentRequests(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrent test in short mode")
	}

	e, _, cleanup := setupTestServer(t)
	defer cleanup()

	concurrency := 10
	done := make(chan bool, concurrency)
	errors := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		go func(id int) {
			req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				errors <- fmt.Errorf("concurrent request %d failed with status %d", id, rec.Code)
			}
			done <- true
		}(i)
	}

	// Wait for all requests
	for i := 0; i < concurrency; i++ {
		<-done
	}

	close(errors)
	for err := range errors {
		t.Error(err)
	}
}

// TestAPIPerformance tests API endpoint performance
func TestAPIPerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	e, _, cleanup := setupTestServer(t)
	defer cleanup()

	iterations := 100
	start := time.Now()

	for i := 0; i < iterations; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Request %d failed with status %d", i, rec.Code)
		}
	}

	elapsed := time.Since(start)
	avgTime := elapsed / time.Duration(iterations)

	t.Logf("Completed %d requests in %v (avg: %v per request)", iterations, elapsed, avgTime)

	if avgTime > 100*time.Millisecond {
		t.Logf("Warning: Average request time (%v) is higher than expected", avgTime)
	}
}
