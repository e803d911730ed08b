package engine

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/drummonds/gosign/config"
	"github.com/drummonds/gosign/database"
	"github.com/drummonds/gosign/engine/compositor"
	"github.com/drummonds/gosign/engine/pdfexport"
	"github.com/drummonds/gosign/engine/pdfrenderer"
	"github.com/drummonds/gosign/engine/placement"
	"github.com/drummonds/gosign/internal/build"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Sessions     *SessionManager
	Stamps       *StampLibrary
	Renderer     pdfrenderer.Renderer
	Services     *ServiceClients
	RenderGuard  InFlightGuard
}

// CustomValidator wires go-playground/validator into echo's Validate call
type CustomValidator struct {
	validator *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// placementRequest is the payload for placing a stamp on a page. X and Y are
// page raster pixels of the stamp center; heightPx is frozen into the
// placement at creation.
type placementRequest struct {
	PageIndex int     `json:"pageIndex" validate:"min=0"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Variant   string  `json:"variant" validate:"required"`
	HeightPx  int     `json:"heightPx" validate:"min=1,max=1000"`
}

type pageInfo struct {
	Index  int `json:"index"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// sessionInfo is the JSON shape of a document session
type sessionInfo struct {
	ID            string         `json:"id"`
	SourceName    string         `json:"sourceName"`
	SignedName    string         `json:"signedName"`
	Status        string         `json:"status"`
	Error         string         `json:"error,omitempty"`
	PageCount     int            `json:"pageCount"`
	Placements    int            `json:"placements"`
	VariantCounts map[string]int `json:"variantCounts"`
	Pages         []pageInfo     `json:"pages,omitempty"`
	ExportReady   bool           `json:"exportReady"`
	Exporting     bool           `json:"exporting"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func (serverHandler *ServerHandler) buildSessionInfo(session *Session, withPages bool) sessionInfo {
	status, statusError := session.Status()
	counts := make(map[string]int, len(database.StampVariants))
	for _, variant := range database.StampVariants {
		counts[variant] = session.Store.CountVariant(variant)
	}
	info := sessionInfo{
		ID:            session.ULID.String(),
		SourceName:    session.SourceName,
		SignedName:    pdfexport.SignedName(session.SourceName),
		Status:        string(status),
		Error:         statusError,
		PageCount:     session.PageCount(),
		Placements:    session.Store.Len(),
		VariantCounts: counts,
		ExportReady:   session.ExportPath() != "",
		Exporting:     session.ExportGuard.InFlight(),
		CreatedAt:     session.CreatedAt(),
	}
	if withPages {
		for i, raster := range session.Rasters() {
			bounds := raster.Bounds()
			info.Pages = append(info.Pages, pageInfo{Index: i, Width: bounds.Dx(), Height: bounds.Dy()})
		}
	}
	return info
}

// UploadDocument accepts a PDF and starts its render job
// @Summary Upload a PDF document
// @Description Upload a PDF, creating a session whose pages are rasterized in a background job. A fresh session starts with an empty placement log.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file to sign"
// @Success 202 {object} map[string]interface{} "Session created, rendering started"
// @Failure 400 {object} map[string]interface{} "Not a parseable PDF"
// @Failure 409 {object} map[string]interface{} "Another document is still rendering"
// @Failure 413 {object} map[string]interface{} "Upload exceeds the size limit"
// @Router /documents [post]
func (serverHandler *ServerHandler) UploadDocument(context echo.Context) error {
	request := context.Request()
	file, fileHeader, err := request.FormFile("file")
	if err != nil {
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "No file found in upload",
		})
	}
	defer file.Close()

	maxBytes := int64(serverHandler.ServerConfig.MaxUploadMB) << 20
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return context.JSON(http.StatusRequestEntityTooLarge, map[string]interface{}{
			"error": fmt.Sprintf("File exceeds the %dMB upload limit", serverHandler.ServerConfig.MaxUploadMB),
		})
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Only PDF uploads are supported",
		})
	}

	// One rasterization at a time. The rejected caller gets a 409 and tries
	// again by hand, nothing is queued.
	if !serverHandler.RenderGuard.TryAcquire() {
		Logger.Warn("Upload rejected, a rasterization is already in flight", "fileName", fileHeader.Filename)
		return context.JSON(http.StatusConflict, map[string]interface{}{
			"error": "A document is still rendering, try again when it finishes",
		})
	}

	body, err := io.ReadAll(file)
	if err != nil {
		serverHandler.RenderGuard.Release()
		Logger.Error("Unable to read uploaded file", "fileName", fileHeader.Filename, "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to read upload",
		})
	}

	session, err := NewSession(filepath.Base(fileHeader.Filename))
	if err != nil {
		serverHandler.RenderGuard.Release()
		Logger.Error("Unable to create session", "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create session",
		})
	}
	if err := serverHandler.prepareSessionWorkspace(session, fileHeader.Filename, body); err != nil {
		serverHandler.RenderGuard.Release()
		Logger.Error("Unable to prepare session workspace", "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to store upload",
		})
	}

	// Preflight parse before committing to a render job
	pageCount, err := pdfPageCount(session.PDFPath)
	if err != nil || pageCount == 0 {
		os.RemoveAll(session.WorkDir)
		serverHandler.RenderGuard.Release()
		Logger.Warn("Rejected upload that does not parse as a PDF", "fileName", fileHeader.Filename, "error", err)
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "File does not parse as a PDF",
		})
	}
	session.SetPageCount(pageCount)

	job, err := serverHandler.jobForSession(database.JobTypeRenderDocument, session, "Starting page rendering")
	if err != nil {
		os.RemoveAll(session.WorkDir)
		serverHandler.RenderGuard.Release()
		Logger.Error("Failed to create render job", "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create render job",
		})
	}

	session.SetStatus(StatusRendering, "")
	serverHandler.Sessions.Add(session)
	go serverHandler.renderDocumentJobFunc(session, job.ID)

	Logger.Info("Upload accepted", "session", session.ULID.String(), "fileName", session.SourceName, "pages", pageCount)
	return context.JSON(http.StatusAccepted, map[string]interface{}{
		"id":         session.ULID.String(),
		"jobId":      job.ID.String(),
		"sourceName": session.SourceName,
		"pageCount":  pageCount,
		"status":     string(StatusRendering),
	})
}

// ListDocuments returns the live sessions
// @Summary List document sessions
// @Description Retrieve all live document sessions, newest first
// @Tags Documents
// @Accept json
// @Produce json
// @Success 200 {array} sessionInfo "Live sessions"
// @Router /documents [get]
func (serverHandler *ServerHandler) ListDocuments(context echo.Context) error {
	sessions := serverHandler.Sessions.List()
	infos := make([]sessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, serverHandler.buildSessionInfo(session, false))
	}
	return context.JSON(http.StatusOK, infos)
}

// GetDocument returns one session with its per-page dimensions
// @Summary Get a document session
// @Description Retrieve session status, placement count and page dimensions
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Session ULID"
// @Success 200 {object} sessionInfo "Session details"
// @Failure 404 {object} map[string]interface{} "Unknown session"
// @Router /documents/{id} [get]
func (serverHandler *ServerHandler) GetDocument(context echo.Context) error {
	session, found := serverHandler.Sessions.Get(context.Param("id"))
	if !found {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Unknown document session",
		})
	}
	return context.JSON(http.StatusOK, serverHandler.buildSessionInfo(session, true))
}

// GetDocumentPage returns the composited PNG for one page. The base raster
// is fully redrawn with every committed placement in log order; the optional
// preview paints one transient placement on top without committing it.
// @Summary Get a composited page image
// @Description Returns the page raster with all committed placements drawn in order. An optional preview=x,y,variant,heightPx query paints a transient stamp on top.
// @Tags Documents
// @Produce png
// @Param id path string true "Session ULID"
// @Param page path int true "Zero-based page index"
// @Param preview query string false "Transient placement as x,y,variant,heightPx"
// @Success 200 {file} binary "Composited page PNG"
// @Failure 400 {object} map[string]interface{} "Bad page or preview"
// @Failure 404 {object} map[string]interface{} "Unknown session or page"
// @Failure 409 {object} map[string]interface{} "Document not ready"
// @Router /documents/{id}/pages/{page} [get]
func (serverHandler *ServerHandler) GetDocumentPage(context echo.Context) error {
	session, found := serverHandler.Sessions.Get(context.Param("id"))
	if !found {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Unknown document session",
		})
	}
	status, _ := session.Status()
	if status != StatusReady {
		return context.JSON(http.StatusConflict, map[string]interface{}{
			"error":  "Document is not ready",
			"status": string(status),
		})
	}

	pageIndex, err := strconv.Atoi(context.Param("page"))
	if err != nil {
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid page number",
		})
	}
	base, err := session.Raster(pageIndex)
	if err != nil {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": err.Error(),
		})
	}

	var preview *placement.Placement
	if raw := context.QueryParam("preview"); raw != "" {
		preview, err = parsePreviewParam(raw, pageIndex, session.Store)
		if err != nil {
			return context.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	surface := compositor.Paint(base, serverHandler.Stamps.Images(), session.Store.ForPage(pageIndex), preview)
	data, err := compositor.ToPNG(surface)
	if err != nil {
		Logger.Error("Failed to encode page surface", "session", session.ULID.String(), "page", pageIndex, "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to encode page image",
		})
	}
	return context.Blob(http.StatusOK, "image/png", data)
}

// parsePreviewParam decodes "x,y,variant,heightPx" into a transient
// placement carrying the round-robin index the next committed placement
// would get, so the ghost shows the stamp that would actually land
func parsePreviewParam(raw string, pageIndex int, store *placement.Store) (*placement.Placement, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("preview wants x,y,variant,heightPx, got %q", raw)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid preview x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid preview y: %w", err)
	}
	variant := strings.TrimSpace(parts[2])
	if !database.ValidVariant(variant) {
		return nil, fmt.Errorf("unknown stamp variant %q", variant)
	}
	heightPx, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return nil, fmt.Errorf("invalid preview height: %w", err)
	}
	if heightPx < 1 || heightPx > 1000 {
		return nil, fmt.Errorf("preview height %d outside 1-1000", heightPx)
	}
	return &placement.Placement{
		PageIndex:    pageIndex,
		X:            x,
		Y:            y,
		Variant:      variant,
		VariantIndex: store.CountVariant(variant),
		HeightPx:     heightPx,
	}, nil
}

// CreatePlacement appends a stamp placement to the session's log
// @Summary Place a stamp
// @Description Append a placement to the log. The variant index is assigned round-robin from the count of prior placements of that variant; the height is frozen at creation.
// @Tags Placements
// @Accept json
// @Produce json
// @Param id path string true "Session ULID"
// @Param placement body placementRequest true "Placement to append"
// @Success 201 {object} placement.Placement "The completed placement"
// @Failure 400 {object} map[string]interface{} "Invalid payload"
// @Failure 404 {object} map[string]interface{} "Unknown session"
// @Failure 409 {object} map[string]interface{} "Document not ready or variant empty"
// @Router /documents/{id}/placements [post]
func (serverHandler *ServerHandler) CreatePlacement(context echo.Context) error {
	session, found := serverHandler.Sessions.Get(context.Param("id"))
	if !found {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Unknown document session",
		})
	}

	var request placementRequest
	if err := context.Bind(&request); err != nil {
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid placement payload",
		})
	}
	if err := context.Validate(&request); err != nil {
		return err
	}

	status, _ := session.Status()
	if status != StatusReady {
		Logger.Warn("Placement rejected, document not ready", "session", session.ULID.String(), "status", status)
		return context.JSON(http.StatusConflict, map[string]interface{}{
			"error":  "Document is not ready for placements",
			"status": string(status),
		})
	}
	if !database.ValidVariant(request.Variant) {
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("Unknown stamp variant %q", request.Variant),
		})
	}
	if request.PageIndex >= session.PageCount() {
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("Page %d out of range (document has %d pages)", request.PageIndex, session.PageCount()),
		})
	}
	if serverHandler.Stamps.Count(request.Variant) == 0 {
		Logger.Warn("Placement ignored, no stamp images stored for variant", "variant", request.Variant)
		return context.JSON(http.StatusConflict, map[string]interface{}{
			"error": fmt.Sprintf("No stamp images stored for variant %q, upload some first", request.Variant),
		})
	}

	placed := session.Store.Append(request.PageIndex, request.X, request.Y, request.Variant, request.HeightPx)
	return context.JSON(http.StatusCreated, placed)
}

// UndoPlacement removes the most recent placement
// @Summary Undo the last placement
// @Description Remove the newest placement from the log. Undo on an empty log is a no-op, not an error.
// @Tags Placements
// @Accept json
// @Produce json
// @Param id path string true "Session ULID"
// @Success 200 {object} map[string]interface{} "Whether anything was removed and the remaining count"
// @Failure 404 {object} map[string]interface{} "Unknown session"
// @Router /documents/{id}/undo [post]
func (serverHandler *ServerHandler) UndoPlacement(context echo.Context) error {
	session, found := serverHandler.Sessions.Get(context.Param("id"))
	if !found {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Unknown document session",
		})
	}
	removed := session.Store.Undo()
	return context.JSON(http.StatusOK, map[string]interface{}{
		"removed":    removed,
		"placements": session.Store.Len(),
	})
}

// ResetPlacements clears the whole placement log
// @Summary Reset all placements
// @Description Remove every placement from the session in one step
// @Tags Placements
// @Accept json
// @Produce json
// @Param id path string true "Session ULID"
// @Success 200 {object} map[string]interface{} "Empty placement count"
// @Failure 404 {object} map[string]interface{} "Unknown session"
// @Router /documents/{id}/reset [post]
func (serverHandler *ServerHandler) ResetPlacements(context echo.Context) error {
	session, found := serverHandler.Sessions.Get(context.Param("id"))
	if !found {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Unknown document session",
		})
	}
	session.Store.Reset()
	Logger.Info("Placement log reset", "session", session.ULID.String())
	return context.JSON(http.StatusOK, map[string]interface{}{
		"placements": 0,
	})
}

// StartExport kicks off the signed-PDF export job for a session
// @Summary Export the signed PDF
// @Description Start the export job that repaints every page and serializes the signed PDF. Only one export per session runs at a time; a second request is rejected, not queued.
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Session ULID"
// @Success 202 {object} map[string]interface{} "Export job started"
// @Failure 404 {object} map[string]interface{} "Unknown session"
// @Failure 409 {object} map[string]interface{} "Not ready or export already running"
// @Router /documents/{id}/export [post]
func (serverHandler *ServerHandler) StartExport(context echo.Context) error {
	session, found := serverHandler.Sessions.Get(context.Param("id"))
	if !found {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Unknown document session",
		})
	}
	status, _ := session.Status()
	if status != StatusReady {
		return context.JSON(http.StatusConflict, map[string]interface{}{
			"error":  "Document is not ready to export",
			"status": string(status),
		})
	}
	if !session.ExportGuard.TryAcquire() {
		Logger.Warn("Export rejected, one is already in flight", "session", session.ULID.String())
		return context.JSON(http.StatusConflict, map[string]interface{}{
			"error": "An export is already running for this document",
		})
	}

	job, err := serverHandler.jobForSession(database.JobTypeExportDocument, session, "Starting PDF export")
	if err != nil {
		session.ExportGuard.Release()
		Logger.Error("Failed to create export job", "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create export job",
		})
	}

	go serverHandler.exportDocumentJobFunc(session, job.ID)

	return context.JSON(http.StatusAccepted, map[string]interface{}{
		"jobId":      job.ID.String(),
		"signedName": pdfexport.SignedName(session.SourceName),
	})
}

// DownloadExport serves the signed PDF once its job has completed
// @Summary Download the signed PDF
// @Description Download the exported PDF. Returns 404 until an export job has completed for this session.
// @Tags Documents
// @Produce application/pdf
// @Param id path string true "Session ULID"
// @Success 200 {file} binary "The signed PDF"
// @Failure 404 {object} map[string]interface{} "Unknown session or no export yet"
// @Router /documents/{id}/export [get]
func (serverHandler *ServerHandler) DownloadExport(context echo.Context) error {
	session, found := serverHandler.Sessions.Get(context.Param("id"))
	if !found {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Unknown document session",
		})
	}
	path := session.ExportPath()
	if path == "" {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "No export available yet",
		})
	}
	return context.Attachment(path, pdfexport.SignedName(session.SourceName))
}

// DeleteDocument removes a session and its workspace
// @Summary Delete a document session
// @Description Drop the session, its placement log and its workspace directory
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Session ULID"
// @Success 200 {string} string "Session Deleted"
// @Failure 404 {object} map[string]interface{} "Unknown session"
// @Router /documents/{id} [delete]
func (serverHandler *ServerHandler) DeleteDocument(context echo.Context) error {
	session, found := serverHandler.Sessions.Get(context.Param("id"))
	if !found {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Unknown document session",
		})
	}
	serverHandler.Sessions.Delete(session.ULID.String())
	if session.WorkDir != "" {
		if err := os.RemoveAll(session.WorkDir); err != nil {
			Logger.Error("Unable to remove session workspace", "dir", session.WorkDir, "error", err)
		}
	}
	Logger.Info("Session deleted", "session", session.ULID.String(), "sourceName", session.SourceName)
	return context.JSON(http.StatusOK, "Session Deleted")
}

// CleanSessions triggers the session cleanup manually
// @Summary Clean up expired sessions
// @Description Remove sessions past their TTL together with their workspaces, and prune aged job rows
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Job created with jobId"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /clean [post]
func (serverHandler *ServerHandler) CleanSessions(c echo.Context) error {
	Logger.Info("Session cleanup triggered via API")

	job, err := serverHandler.DB.CreateJob(database.JobTypeCleanup, "", "Starting session cleanup")
	if err != nil {
		Logger.Error("Failed to create cleanup job", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create cleanup job",
		})
	}

	go func() {
		serverHandler.cleanupSessionsJobFuncWithTracking(serverHandler.DB, job.ID)
	}()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Session cleanup started",
		"jobId":   job.ID.String(),
	})
}

// GetAboutInfo returns information about the application configuration
// @Summary Get application information
// @Description Retrieve information about the application configuration, version, and database
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Application information"
// @Router /about [get]
func (serverHandler *ServerHandler) GetAboutInfo(c echo.Context) error {
	aboutInfo := map[string]interface{}{
		"version":              build.Version,
		"pdfRenderer":          serverHandler.ServerConfig.PDFRenderer,
		"pdfExporter":          serverHandler.ServerConfig.PDFExporter,
		"pdfServiceConfigured": serverHandler.Services != nil,
		"databaseType":         serverHandler.ServerConfig.DatabaseType,
		"databaseHost":         serverHandler.ServerConfig.DatabaseHost,
		"databasePort":         serverHandler.ServerConfig.DatabasePort,
		"databaseName":         serverHandler.ServerConfig.DatabaseDbname,
		"storagePath":          serverHandler.ServerConfig.StoragePath,
		"sessionTTLHours":      serverHandler.ServerConfig.SessionTTLHours,
		"defaultStampHeightPx": serverHandler.ServerConfig.DefaultStampHeightPx,
		"liveSessions":         serverHandler.Sessions.Len(),
	}
	return c.JSON(http.StatusOK, aboutInfo)
}

// HealthCheck answers liveness probes
// @Summary Health check
// @Description Report that the server is up
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Status and version"
// @Router /health [get]
func (serverHandler *ServerHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": build.Version,
	})
}
