package engine

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/drummonds/gosign/database"
	"github.com/drummonds/gosign/engine/compositor"
	"github.com/drummonds/gosign/engine/pdfexport"
	"github.com/drummonds/gosign/engine/placement"
	"github.com/oklog/ulid/v2"
)

// SessionStatus is the explicit lifecycle of a document session. Placements
// and exports are only accepted while the session is ready.
type SessionStatus string

const (
	StatusIdle      SessionStatus = "idle"
	StatusRendering SessionStatus = "rendering"
	StatusReady     SessionStatus = "ready"
	StatusFailed    SessionStatus = "failed"
)

// Session holds one uploaded document: the PDF mirrored into its workspace
// directory, the page rasters once rendered, and the placement log. A new
// upload always creates a new session, so prior placements never leak into
// the next document.
type Session struct {
	ULID        ulid.ULID
	SourceName  string
	PDFPath     string
	WorkDir     string
	Store       *placement.Store
	ExportGuard InFlightGuard

	mu          sync.Mutex
	status      SessionStatus
	statusError string
	pageCount   int
	rasters     []image.Image
	exportPath  string
	createdAt   time.Time
	lastAccess  time.Time
}

// NewSession creates an idle session for an uploaded file
func NewSession(sourceName string) (*Session, error) {
	newTime := time.Now()
	newULID, err := database.CalculateUUID(newTime)
	if err != nil {
		return nil, fmt.Errorf("cannot generate session ULID: %w", err)
	}
	return &Session{
		ULID:       newULID,
		SourceName: sourceName,
		Store:      placement.NewStore(),
		status:     StatusIdle,
		createdAt:  newTime,
		lastAccess: newTime,
	}, nil
}

// Status returns the current lifecycle state and the failure message if any
func (session *Session) Status() (SessionStatus, string) {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.status, session.statusError
}

func (session *Session) SetStatus(status SessionStatus, message string) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.status = status
	session.statusError = message
}

// SetRasters publishes the rendered page images in page order
func (session *Session) SetRasters(rasters []image.Image) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.rasters = rasters
	session.pageCount = len(rasters)
}

// Rasters returns the page images; the images themselves are never mutated
func (session *Session) Rasters() []image.Image {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.rasters
}

// Raster returns the base image for one page
func (session *Session) Raster(pageIndex int) (image.Image, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if pageIndex < 0 || pageIndex >= len(session.rasters) {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", pageIndex, len(session.rasters))
	}
	return session.rasters[pageIndex], nil
}

func (session *Session) PageCount() int {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.pageCount
}

// SetPageCount records the preflight page count before rendering finishes
func (session *Session) SetPageCount(count int) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.pageCount = count
}

func (session *Session) ExportPath() string {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.exportPath
}

func (session *Session) SetExportPath(path string) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.exportPath = path
}

func (session *Session) CreatedAt() time.Time {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.createdAt
}

func (session *Session) LastAccess() time.Time {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.lastAccess
}

// Touch marks the session as recently used so cleanup leaves it alone
func (session *Session) Touch() {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.lastAccess = time.Now()
}

// SessionManager is the in-memory registry of live document sessions
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// Add registers a fully prepared session; WorkDir and PDFPath must be set
// before the session is published here
func (manager *SessionManager) Add(session *Session) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.sessions[session.ULID.String()] = session
}

// Get returns a session and refreshes its last access time
func (manager *SessionManager) Get(id string) (*Session, bool) {
	manager.mu.RLock()
	session, found := manager.sessions[id]
	manager.mu.RUnlock()
	if found {
		session.Touch()
	}
	return session, found
}

func (manager *SessionManager) Delete(id string) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	delete(manager.sessions, id)
}

// List returns the live sessions, newest first
func (manager *SessionManager) List() []*Session {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	sessions := make([]*Session, 0, len(manager.sessions))
	for _, session := range manager.sessions {
		sessions = append(sessions, session)
	}
	for i := 0; i < len(sessions); i++ {
		for j := i + 1; j < len(sessions); j++ {
			if sessions[j].CreatedAt().After(sessions[i].CreatedAt()) {
				sessions[i], sessions[j] = sessions[j], sessions[i]
			}
		}
	}
	return sessions
}

func (manager *SessionManager) Len() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.sessions)
}

// PruneExpired removes and returns every session idle for longer than ttl.
// Workspace directories are the caller's to clean up.
func (manager *SessionManager) PruneExpired(ttl time.Duration) []*Session {
	cutoff := time.Now().Add(-ttl)
	manager.mu.Lock()
	defer manager.mu.Unlock()
	var expired []*Session
	for id, session := range manager.sessions {
		if session.LastAccess().Before(cutoff) {
			expired = append(expired, session)
			delete(manager.sessions, id)
		}
	}
	return expired
}

// InFlightGuard is the advisory single-in-flight latch used for rasterize
// and export. TryAcquire never waits; a rejected caller answers 409 and the
// user retries by hand. There is no queue and no timeout.
type InFlightGuard struct {
	mu       sync.Mutex
	inFlight bool
}

// TryAcquire reports whether the caller now holds the guard
func (guard *InFlightGuard) TryAcquire() bool {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	if guard.inFlight {
		return false
	}
	guard.inFlight = true
	return true
}

func (guard *InFlightGuard) Release() {
	guard.mu.Lock()
	guard.inFlight = false
	guard.mu.Unlock()
}

// InFlight reports the latch state without taking it
func (guard *InFlightGuard) InFlight() bool {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	return guard.inFlight
}

// StampLibrary caches the decoded stamp images per variant so repaints don't
// hit the database. Reload swaps the whole cache; loading is opportunistic
// and an empty or partly broken variant just means fewer stamps to place.
type StampLibrary struct {
	mu      sync.RWMutex
	images  map[string][]image.Image
	records map[string][]database.StampImage
}

func NewStampLibrary() *StampLibrary {
	return &StampLibrary{
		images:  make(map[string][]image.Image),
		records: make(map[string][]database.StampImage),
	}
}

// Reload re-reads every variant from the repository
func (library *StampLibrary) Reload(db database.Repository) error {
	images := make(map[string][]image.Image)
	records := make(map[string][]database.StampImage)
	for _, variant := range database.StampVariants {
		stamps, err := database.FetchStampSet(variant, db)
		if err != nil {
			Logger.Warn("Unable to load stamp set, variant stays empty", "variant", variant, "error", err)
			continue
		}
		for _, stamp := range stamps {
			img, err := compositor.DecodeStamp(stamp.PNG)
			if err != nil {
				Logger.Warn("Skipping undecodable stamp image", "variant", variant, "name", stamp.Name, "error", err)
				continue
			}
			images[variant] = append(images[variant], img)
			records[variant] = append(records[variant], stamp)
		}
	}
	library.mu.Lock()
	library.images = images
	library.records = records
	library.mu.Unlock()
	return nil
}

// Images returns the decoded stamps in the compositor's library shape
func (library *StampLibrary) Images() compositor.Library {
	library.mu.RLock()
	defer library.mu.RUnlock()
	copied := make(compositor.Library, len(library.images))
	for variant, imgs := range library.images {
		copied[variant] = imgs
	}
	return copied
}

func (library *StampLibrary) Count(variant string) int {
	library.mu.RLock()
	defer library.mu.RUnlock()
	return len(library.images[variant])
}

// ExportStamps returns the stored PNGs with their dimensions for the overlay
// exporter
func (library *StampLibrary) ExportStamps() map[string][]pdfexport.Stamp {
	library.mu.RLock()
	defer library.mu.RUnlock()
	stamps := make(map[string][]pdfexport.Stamp, len(library.records))
	for variant, rows := range library.records {
		set := make([]pdfexport.Stamp, len(rows))
		for i, row := range rows {
			set[i] = pdfexport.Stamp{PNG: row.PNG, Width: row.Width, Height: row.Height}
		}
		stamps[variant] = set
	}
	return stamps
}

// renderDocumentJobFunc runs the rasterization job for a fresh upload. The
// handler acquired the render guard before spawning us, releasing it here
// makes room for the next upload whatever happens.
func (serverHandler *ServerHandler) renderDocumentJobFunc(session *Session, jobID ulid.ULID) {
	db := serverHandler.DB
	defer serverHandler.RenderGuard.Release()
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in render job", "panic", r, "jobID", jobID)
			session.SetStatus(StatusFailed, fmt.Sprintf("render panic: %v", r))
			db.UpdateJobError(jobID, fmt.Sprintf("Panic: %v", r))
		}
	}()

	if err := db.UpdateJobStatus(jobID, database.JobStatusRunning, "Rendering pages"); err != nil {
		Logger.Error("Failed to update job status", "error", err)
	}

	err := serverHandler.RenderDocumentWithSteps(session, jobID)
	if err != nil {
		Logger.Error("Render job failed", "session", session.ULID.String(), "error", err)
		session.SetStatus(StatusFailed, err.Error())
		db.UpdateJobError(jobID, err.Error())
		return
	}

	session.SetStatus(StatusReady, "")
	result := fmt.Sprintf(`{"pages": %d}`, session.PageCount())
	if err := db.CompleteJob(jobID, result); err != nil {
		Logger.Error("Failed to mark render job as complete", "error", err)
	}
	Logger.Info("Render job completed", "session", session.ULID.String(), "pages", session.PageCount())
}

// exportDocumentJobFunc runs the export job for one session
func (serverHandler *ServerHandler) exportDocumentJobFunc(session *Session, jobID ulid.ULID) {
	db := serverHandler.DB
	defer session.ExportGuard.Release()
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in export job", "panic", r, "jobID", jobID)
			db.UpdateJobError(jobID, fmt.Sprintf("Panic: %v", r))
		}
	}()

	if err := db.UpdateJobStatus(jobID, database.JobStatusRunning, "Painting pages"); err != nil {
		Logger.Error("Failed to update job status", "error", err)
	}

	err := serverHandler.ExportDocumentWithSteps(session, jobID)
	if err != nil {
		Logger.Error("Export job failed", "session", session.ULID.String(), "error", err)
		db.UpdateJobError(jobID, err.Error())
		return
	}

	result := fmt.Sprintf(`{"file": %q, "placements": %d}`, pdfexport.SignedName(session.SourceName), session.Store.Len())
	if err := db.CompleteJob(jobID, result); err != nil {
		Logger.Error("Failed to mark export job as complete", "error", err)
	}
	Logger.Info("Export job completed", "session", session.ULID.String(), "file", session.ExportPath())
}

// cleanupSessionsJobFunc is the cron entry point, it runs untracked
func (serverHandler *ServerHandler) cleanupSessionsJobFunc(db database.Repository) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in cleanup job", "panic", r)
		}
	}()
	Logger.Info("Starting session cleanup")
	removed, jobsDeleted := serverHandler.pruneExpiredSessions()
	Logger.Info("Session cleanup finished", "sessionsRemoved", removed, "jobsDeleted", jobsDeleted)
}

// cleanupSessionsJobFuncWithTracking wraps the cleanup with job tracking for
// the manual API trigger
func (serverHandler *ServerHandler) cleanupSessionsJobFuncWithTracking(db database.Repository, jobID ulid.ULID) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in cleanup job", "panic", r, "jobID", jobID)
			db.UpdateJobError(jobID, fmt.Sprintf("Panic: %v", r))
		}
	}()

	db.UpdateJobStatus(jobID, database.JobStatusRunning, "Scanning for expired sessions")
	removed, jobsDeleted := serverHandler.pruneExpiredSessions()

	result := fmt.Sprintf(`{"sessionsRemoved": %d, "jobsDeleted": %d}`, removed, jobsDeleted)
	if err := db.CompleteJob(jobID, result); err != nil {
		Logger.Error("Failed to mark cleanup job as complete", "error", err)
	}
	Logger.Info("Session cleanup job completed", "jobID", jobID, "sessionsRemoved", removed, "jobsDeleted", jobsDeleted)
}

// pruneExpiredSessions drops sessions past the TTL together with their
// workspace directories, then prunes aged job rows
func (serverHandler *ServerHandler) pruneExpiredSessions() (int, int) {
	ttl := time.Duration(serverHandler.ServerConfig.SessionTTLHours) * time.Hour
	expired := serverHandler.Sessions.PruneExpired(ttl)
	for _, session := range expired {
		if session.WorkDir != "" {
			if err := os.RemoveAll(session.WorkDir); err != nil {
				Logger.Error("Failed to remove session workspace", "dir", session.WorkDir, "error", err)
				continue
			}
		}
		Logger.Info("Removed expired session", "session", session.ULID.String(), "sourceName", session.SourceName)
	}

	jobsDeleted, err := serverHandler.DB.DeleteOldJobs(7 * 24 * time.Hour)
	if err != nil {
		Logger.Error("Failed to prune old jobs", "error", err)
	}
	return len(expired), jobsDeleted
}
