package engine

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/drummonds/gosign/database"
	"github.com/drummonds/gosign/engine/compositor"
	"github.com/drummonds/gosign/engine/pdfexport"
	"github.com/ledongthuc/pdf"
	"github.com/oklog/ulid/v2"
)

// RenderDocumentWithSteps rasterizes a session's PDF through explicit steps
// with progress tracking
// Step 1: parse the PDF and confirm the page count
// Step 2: render every page sequentially at the fixed DPI
// Step 3: publish the rasters to the session
func (serverHandler *ServerHandler) RenderDocumentWithSteps(session *Session, jobID ulid.ULID) error {
	db := serverHandler.DB
	fileName := session.SourceName

	// Step 1: Parse and count pages
	stepMsg := fmt.Sprintf("%s - Step 1: Parsing PDF", fileName)
	db.UpdateJobProgress(jobID, 5, stepMsg)
	Logger.Info("Step 1: Parsing PDF", "session", session.ULID.String(), "fileName", fileName)

	pageCount, err := pdfPageCount(session.PDFPath)
	if err != nil {
		return fmt.Errorf("step 1 failed (parse): %w", err)
	}
	if pageCount == 0 {
		return errors.New("step 1 failed (parse): PDF has no pages")
	}
	session.SetPageCount(pageCount)

	Logger.Info("Step 1 complete: PDF parsed", "fileName", fileName, "pages", pageCount)

	// Step 2: Rasterize all pages
	stepMsg = fmt.Sprintf("%s - Step 2: Rendering %d pages", fileName, pageCount)
	db.UpdateJobProgress(jobID, 15, stepMsg)
	Logger.Info("Step 2: Rendering pages", "fileName", fileName, "pages", pageCount, "renderer", serverHandler.ServerConfig.PDFRenderer)

	rasters, err := serverHandler.rasterizeDocument(session.PDFPath)
	if err != nil {
		return fmt.Errorf("step 2 failed (rasterize): %w", err)
	}
	if len(rasters) == 0 {
		return errors.New("step 2 failed (rasterize): no pages rendered")
	}
	if len(rasters) != pageCount {
		Logger.Warn("Renderer page count differs from parser", "parsed", pageCount, "rendered", len(rasters))
	}

	Logger.Info("Step 2 complete: Pages rendered", "fileName", fileName, "pages", len(rasters))

	// Step 3: Publish to the session
	stepMsg = fmt.Sprintf("%s - Step 3: Publishing pages", fileName)
	db.UpdateJobProgress(jobID, 90, stepMsg)

	session.SetRasters(rasters)

	Logger.Info("Step 3 complete: Session ready", "session", session.ULID.String(), "pages", len(rasters))
	return nil
}

// ExportDocumentWithSteps repaints every page and serializes the signed PDF
// Step 1: paint each surface from its base raster and the placement log
// Step 2: serialize the surfaces into the signed PDF in the workspace
func (serverHandler *ServerHandler) ExportDocumentWithSteps(session *Session, jobID ulid.ULID) error {
	db := serverHandler.DB
	fileName := session.SourceName

	rasters := session.Rasters()
	if len(rasters) == 0 {
		return errors.New("session has no rendered pages to export")
	}

	// Step 1: Paint all surfaces
	stepMsg := fmt.Sprintf("%s - Step 1: Painting %d pages", fileName, len(rasters))
	db.UpdateJobProgress(jobID, 10, stepMsg)
	Logger.Info("Step 1: Painting pages", "session", session.ULID.String(), "pages", len(rasters), "placements", session.Store.Len())

	library := serverHandler.Stamps.Images()
	surfaces := make([]image.Image, len(rasters))
	for i, base := range rasters {
		surfaces[i] = compositor.Paint(base, library, session.Store.ForPage(i), nil)
		progress := 10 + int((float64(i+1)/float64(len(rasters)))*55)
		db.UpdateJobProgress(jobID, progress, fmt.Sprintf("%s - Painted page %d/%d", fileName, i+1, len(rasters)))
	}

	Logger.Info("Step 1 complete: Pages painted", "fileName", fileName)

	// Step 2: Serialize
	stepMsg = fmt.Sprintf("%s - Step 2: Writing signed PDF", fileName)
	db.UpdateJobProgress(jobID, 70, stepMsg)

	exporter, err := pdfexport.NewExporter(serverHandler.ServerConfig.PDFExporter)
	if err != nil {
		return fmt.Errorf("step 2 failed (exporter): %w", err)
	}

	doc := pdfexport.Document{
		SourcePath: session.PDFPath,
		Surfaces:   surfaces,
		Placements: session.Store.All(),
		Stamps:     serverHandler.Stamps.ExportStamps(),
	}
	outPath := filepath.Join(session.WorkDir, pdfexport.SignedName(session.SourceName))
	if err := exporter.Export(doc, outPath); err != nil {
		return fmt.Errorf("step 2 failed (serialize): %w", err)
	}
	session.SetExportPath(outPath)

	Logger.Info("Step 2 complete: Signed PDF written", "fileName", fileName, "outPath", outPath)
	return nil
}

// rasterizeDocument renders all pages, preferring the PDF service sidecar
// when one is configured and falling back to the in-process renderer
func (serverHandler *ServerHandler) rasterizeDocument(pdfPath string) ([]image.Image, error) {
	if serverHandler.Services != nil {
		rasters, err := serverHandler.Services.CallPDFRender(pdfPath)
		if err == nil {
			return rasters, nil
		}
		Logger.Warn("PDF service render failed, falling back to local renderer", "error", err)
	}
	if serverHandler.Renderer == nil {
		return nil, errors.New("no PDF renderer available")
	}
	return serverHandler.Renderer.RenderPDF(pdfPath)
}

// prepareSessionWorkspace creates the per-session directory under the
// storage path and mirrors the uploaded PDF into it
func (serverHandler *ServerHandler) prepareSessionWorkspace(session *Session, uploadName string, data []byte) error {
	workDir := filepath.Join(serverHandler.ServerConfig.StoragePath, "sessions", session.ULID.String())
	if err := os.MkdirAll(workDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create session workspace: %w", err)
	}
	pdfPath := filepath.Join(workDir, filepath.Base(uploadName))
	if err := os.WriteFile(pdfPath, data, 0644); err != nil {
		os.RemoveAll(workDir)
		return fmt.Errorf("failed to write uploaded PDF: %w", err)
	}
	session.WorkDir = workDir
	session.PDFPath = pdfPath
	return nil
}

// pdfPageCount parses a PDF just far enough to count its pages. It doubles
// as the upload preflight, a byte stream this fails on is rejected before a
// session ever renders.
func pdfPageCount(path string) (int, error) {
	pdfFile, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to parse PDF: %w", err)
	}
	defer pdfFile.Close()
	return reader.NumPage(), nil
}

// jobForSession is a small helper for handlers kicking off tracked work
func (serverHandler *ServerHandler) jobForSession(jobType database.JobType, session *Session, message string) (*database.Job, error) {
	return serverHandler.DB.CreateJob(jobType, session.ULID.String(), message)
}
