package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
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

	"github.com/drummonds/gosign/config"
	"github.com/drummonds/gosign/database"
)

// setupTestLogging wires the package loggers the handlers expect
func setupTestLogging() {
	if Logger == nil {
		Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	if database.Logger == nil {
		database.Logger = Logger
	}
}

// newTestHandler builds a ServerHandler on an in-memory SQLite repository.
// No PDF renderer is attached, tests that need rasters inject them directly.
func newTestHandler(t *testing.T) (*ServerHandler, *echo.Echo) {
	t.Helper()
	setupTestLogging()

	db := database.NewRepository(config.ServerConfig{DatabaseType: "sqlite", DatabaseDbname: ":memory:"})
	t.Cleanup(func() { db.Close() })

	e := echo.New()
	e.Validator = NewCustomValidator()

	serverHandler := &ServerHandler{
		DB:   db,
		Echo: e,
		ServerConfig: config.ServerConfig{
			StoragePath:     t.TempDir(),
			MaxUploadMB:     50,
			SessionTTLHours: 24,
			PDFExporter:     "raster",
		},
		Sessions: NewSessionManager(),
		Stamps:   NewStampLibrary(),
	}
	return serverHandler, e
}

// readyTestSession fabricates a session that has already finished rendering
func readyTestSession(t *testing.T, serverHandler *ServerHandler, sourceName string, rasters ...image.Image) *Session {
	t.Helper()
	session, err := NewSession(sourceName)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	session.WorkDir = t.TempDir()
	session.SetRasters(rasters)
	session.SetStatus(StatusReady, "")
	serverHandler.Sessions.Add(session)
	return session
}

// testSurface returns a uniform page raster of the given pixel size
func testSurface(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 245, G: 245, B: 245, A: 255})
		}
	}
	return img
}

// storeTestStamps writes count PNG stamps for a variant and reloads the cache
func storeTestStamps(t *testing.T, serverHandler *ServerHandler, variant string, count int) {
	t.Helper()
	uploads := make([]database.StampUpload, 0, count)
	for i := 0; i < count; i++ {
		uploads = append(uploads, database.StampUpload{
			Name: fmt.Sprintf("%s-%d.png", variant, i),
			Data: encodeStampPNG(t, 200, 80),
		})
	}
	if _, err := database.StoreStampSet(variant, uploads, serverHandler.DB); err != nil {
		t.Fatalf("Failed to store %s stamps: %v", variant, err)
	}
	if err := serverHandler.Stamps.Reload(serverHandler.DB); err != nil {
		t.Fatalf("Failed to reload stamp library: %v", err)
	}
}

func encodeStampPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.SetNRGBA(x, height/2, color.NRGBA{R: 20, G: 20, B: 120, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode stamp PNG: %v", err)
	}
	return buf.Bytes()
}

// createTestPDF writes a small valid PDF for upload tests
func createTestPDF(t *testing.T, path string) {
	t.Helper()
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 14)
	pdf.Text(100, 100, "Signature test document")
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("Failed to write test PDF: %v", err)
	}
}

func TestInFlightGuard(t *testing.T) {
	var guard InFlightGuard

	if guard.InFlight() {
		t.Fatal("New guard should start idle")
	}
	if !guard.TryAcquire() {
		t.Fatal("First acquire should succeed")
	}
	if guard.TryAcquire() {
		t.Fatal("Second acquire should be rejected while the slot is held")
	}
	if !guard.InFlight() {
		t.Fatal("Guard should report in flight while held")
	}

	guard.Release()
	if guard.InFlight() {
		t.Fatal("Guard should be idle after release")
	}
	if !guard.TryAcquire() {
		t.Fatal("Acquire after release should succeed")
	}
	guard.Release()
}

func TestSessionManagerLifecycle(t *testing.T) {
	setupTestLogging()
	manager := NewSessionManager()

	first, err := NewSession("first.pdf")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := NewSession("second.pdf")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	manager.Add(first)
	manager.Add(second)

	if manager.Len() != 2 {
		t.Fatalf("Expected 2 sessions, got %d", manager.Len())
	}
	if _, found := manager.Get(first.ULID.String()); !found {
		t.Fatal("Expected to find the first session by ULID")
	}
	if _, found := manager.Get("01ARZ3NDEKTSV4RRFFQ69G5FAV"); found {
		t.Fatal("Lookup of an unknown ULID should miss")
	}

	sessions := manager.List()
	if len(sessions) != 2 {
		t.Fatalf("Expected List to return 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ULID != second.ULID {
		t.Errorf("Expected newest session first in List, got %s", sessions[0].SourceName)
	}

	manager.Delete(first.ULID.String())
	if manager.Len() != 1 {
		t.Fatalf("Expected 1 session after delete, got %d", manager.Len())
	}

	// Everything older than a zero TTL counts as expired
	time.Sleep(2 * time.Millisecond)
	expired := manager.PruneExpired(0)
	if len(expired) != 1 {
		t.Fatalf("Expected 1 expired session, got %d", len(expired))
	}
	if expired[0].ULID != second.ULID {
		t.Errorf("Expected the remaining session to be pruned, got %s", expired[0].SourceName)
	}
	if manager.Len() != 0 {
		t.Fatalf("Expected no sessions after pruning, got %d", manager.Len())
	}
}

func TestSessionStatusTransitions(t *testing.T) {
	setupTestLogging()
	session, err := NewSession("contract.pdf")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	status, message := session.Status()
	if status != StatusIdle || message != "" {
		t.Fatalf("New session should be idle, got %s %q", status, message)
	}

	session.SetStatus(StatusRendering, "")
	if status, _ := session.Status(); status != StatusRendering {
		t.Fatalf("Expected rendering status, got %s", status)
	}

	session.SetRasters([]image.Image{testSurface(300, 400), testSurface(640, 360)})
	if session.PageCount() != 2 {
		t.Fatalf("Expected page count 2 after rasters, got %d", session.PageCount())
	}

	session.SetStatus(StatusReady, "")
	if _, err := session.Raster(0); err != nil {
		t.Errorf("Raster 0 should exist: %v", err)
	}
	if _, err := session.Raster(1); err != nil {
		t.Errorf("Raster 1 should exist: %v", err)
	}
	if _, err := session.Raster(2); err == nil {
		t.Error("Raster 2 should be out of range")
	}
	if _, err := session.Raster(-1); err == nil {
		t.Error("Negative raster index should be out of range")
	}

	session.SetStatus(StatusFailed, "renderer exploded")
	status, message = session.Status()
	if status != StatusFailed || message != "renderer exploded" {
		t.Fatalf("Expected failed status with message, got %s %q", status, message)
	}
}

// uploadRequest builds a multipart upload request for the given file content
func uploadRequest(t *testing.T, fileName string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func TestUploadValidation(t *testing.T) {
	serverHandler, e := newTestHandler(t)
	e.POST("/api/documents", serverHandler.UploadDocument)

	// Wrong extension is rejected before anything is stored
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "notes.txt", []byte("not a pdf")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for non-PDF extension, got %d: %s", rec.Code, rec.Body.String())
	}

	// A .pdf name wrapping garbage fails the parse preflight
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "garbage.pdf", []byte("%PDF-?? nope")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for unparseable PDF, got %d: %s", rec.Code, rec.Body.String())
	}
	if serverHandler.RenderGuard.InFlight() {
		t.Fatal("Render guard should be released after a rejected upload")
	}
	if serverHandler.Sessions.Len() != 0 {
		t.Fatalf("Rejected upload should not leave a session behind, found %d", serverHandler.Sessions.Len())
	}

	// While a rasterization is in flight further uploads bounce with a 409
	pdfPath := filepath.Join(t.TempDir(), "real.pdf")
	createTestPDF(t, pdfPath)
	content, err := os.ReadFile(pdfPath)
	if err != nil {
		t.Fatalf("Failed to read test PDF: %v", err)
	}

	if !serverHandler.RenderGuard.TryAcquire() {
		t.Fatal("Guard should be free before the busy test")
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "real.pdf", content))
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409 while a render is in flight, got %d: %s", rec.Code, rec.Body.String())
	}
	serverHandler.RenderGuard.Release()
}

func TestUploadWithoutRendererFailsSession(t *testing.T) {
	serverHandler, e := newTestHandler(t)
	e.POST("/api/documents", serverHandler.UploadDocument)
	e.GET("/api/jobs/:id", serverHandler.GetJob)

	pdfPath := filepath.Join(t.TempDir(), "contract.pdf")
	createTestPDF(t, pdfPath)
	content, err := os.ReadFile(pdfPath)
	if err != nil {
		t.Fatalf("Failed to read test PDF: %v", err)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "contract.pdf", content))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202 for a valid upload, got %d: %s", rec.Code, rec.Body.String())
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
	if accepted.PageCount != 1 {
		t.Errorf("Expected preflight page count 1, got %d", accepted.PageCount)
	}
	if accepted.Status != string(StatusRendering) {
		t.Errorf("Expected rendering status in response, got %q", accepted.Status)
	}

	session, found := serverHandler.Sessions.Get(accepted.ID)
	if !found {
		t.Fatal("Uploaded session not found in manager")
	}

	// No renderer is wired in tests, so the background job has to fail. The
	// guard release is the job's last act, once it drops everything before
	// it has happened.
	deadline := time.Now().Add(5 * time.Second)
	for serverHandler.RenderGuard.InFlight() {
		if time.Now().After(deadline) {
			t.Fatal("Render job did not finish within deadline")
		}
		time.Sleep(20 * time.Millisecond)
	}

	status, message := session.Status()
	if status != StatusFailed {
		t.Fatalf("Expected failed session status, got %s", status)
	}
	if message == "" {
		t.Error("Failed session should carry an error message")
	}

	// The job row records the failure too
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+accepted.JobID, nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from job lookup, got %d: %s", rec.Code, rec.Body.String())
	}
	var job database.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("Failed to parse job response: %v", err)
	}
	if job.Status != database.JobStatusFailed {
		t.Errorf("Expected failed job status, got %s", job.Status)
	}
	if job.Error == "" {
		t.Error("Failed job should record an error message")
	}
}

func TestExportProducesSignedPDF(t *testing.T) {
	serverHandler, e := newTestHandler(t)
	e.POST("/api/documents/:id/export", serverHandler.StartExport)
	e.GET("/api/documents/:id/export", serverHandler.DownloadExport)

	storeTestStamps(t, serverHandler, database.VariantSignature, 2)
	session := readyTestSession(t, serverHandler, "contract.pdf", testSurface(300, 400))
	session.Store.Append(0, 150, 200, database.VariantSignature, 100)
	session.Store.Append(0, 80, 320, database.VariantSignature, 60)

	// Download before any export has run
	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+session.ULID.String()+"/export", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 before any export, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/documents/"+session.ULID.String()+"/export", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202 from export start, got %d: %s", rec.Code, rec.Body.String())
	}
	var started struct {
		JobID      string `json:"jobId"`
		SignedName string `json:"signedName"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("Failed to parse export response: %v", err)
	}
	if started.SignedName != "contract_signed.pdf" {
		t.Errorf("Expected signed name contract_signed.pdf, got %q", started.SignedName)
	}

	// The job releases its guard last, so an idle guard means the export is
	// fully written
	deadline := time.Now().Add(10 * time.Second)
	for session.ExportGuard.InFlight() {
		if time.Now().After(deadline) {
			t.Fatal("Export job did not finish within deadline")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if session.ExportPath() == "" {
		t.Fatal("Export job finished without recording an export path")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/documents/"+session.ULID.String()+"/export", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from export download, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "contract_signed.pdf") {
		t.Errorf("Expected attachment disposition with signed name, got %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("Failed to read export body: %v", err)
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Error("Export download should be a PDF")
	}
}

func TestExportRejections(t *testing.T) {
	serverHandler, e := newTestHandler(t)
	e.POST("/api/documents/:id/export", serverHandler.StartExport)

	// A rendering session cannot export yet
	pending, err := NewSession("pending.pdf")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	pending.SetStatus(StatusRendering, "")
	serverHandler.Sessions.Add(pending)

	req := httptest.NewRequest(http.MethodPost, "/api/documents/"+pending.ULID.String()+"/export", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409 exporting a rendering session, got %d", rec.Code)
	}

	// A second export while one is in flight bounces
	ready := readyTestSession(t, serverHandler, "busy.pdf", testSurface(200, 300))
	if !ready.ExportGuard.TryAcquire() {
		t.Fatal("Export guard should be free before the busy test")
	}
	req = httptest.NewRequest(http.MethodPost, "/api/documents/"+ready.ULID.String()+"/export", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409 while an export is in flight, got %d: %s", rec.Code, rec.Body.String())
	}
	ready.ExportGuard.Release()

	// Unknown sessions are a plain 404
	req = httptest.NewRequest(http.MethodPost, "/api/documents/01ARZ3NDEKTSV4RRFFQ69G5FAV/export", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown session, got %d", rec.Code)
	}
}
