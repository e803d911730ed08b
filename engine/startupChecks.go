package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/drummonds/gosign/config"
	"github.com/drummonds/gosign/database"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	serverConfig, err := database.FetchConfigFromDB(serverHandler.DB)
	if err != nil {
		Logger.Error("Error fetching config", "error", err)
		return err
	}
	if err := storageDirectoryChecks(serverConfig); err != nil {
		return err
	}
	pdfPipelineChecks(serverConfig)
	serverHandler.stampLibraryChecks()
	return nil
}

// storageDirectoryChecks ensures the session workspace root exists
func storageDirectoryChecks(serverConfig config.ServerConfig) error {
	if serverConfig.StoragePath == "" {
		Logger.Warn("Storage path not configured")
		return nil
	}

	sessionsDir := filepath.Join(serverConfig.StoragePath, "sessions")

	// Check if directory exists
	storageInfo, err := os.Stat(sessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			// Create the directory
			Logger.Info("Creating session storage directory", "path", sessionsDir)
			err = os.MkdirAll(sessionsDir, 0755)
			if err != nil {
				Logger.Error("Failed to create session storage directory", "path", sessionsDir, "error", err)
				return err
			}
			Logger.Info("Session storage directory created successfully", "path", sessionsDir)
			return nil
		}
		Logger.Error("Error checking session storage directory", "path", sessionsDir, "error", err)
		return err
	}

	// Check if it's actually a directory
	if !storageInfo.IsDir() {
		Logger.Error("Session storage path exists but is not a directory", "path", sessionsDir)
		return fmt.Errorf("session storage path is not a directory: %s", sessionsDir)
	}

	Logger.Info("Session storage directory exists", "path", sessionsDir)
	return nil
}

// pdfPipelineChecks warns about unusable renderer or exporter settings
func pdfPipelineChecks(serverConfig config.ServerConfig) {
	switch serverConfig.PDFRenderer {
	case "fitz", "pdfium":
		Logger.Info("PDF renderer configured", "renderer", serverConfig.PDFRenderer)
	default:
		Logger.Warn("Unknown PDF renderer configured, uploads will fail to render", "renderer", serverConfig.PDFRenderer)
	}

	switch serverConfig.PDFExporter {
	case "raster", "overlay":
		Logger.Info("PDF exporter configured", "exporter", serverConfig.PDFExporter)
	default:
		Logger.Warn("Unknown PDF exporter configured, exports will fail", "exporter", serverConfig.PDFExporter)
	}

	if serverConfig.PDFServiceURL != "" {
		Logger.Info("PDF service sidecar configured", "url", serverConfig.PDFServiceURL)
	}
}

// stampLibraryChecks loads whatever stamps are stored. An empty library is
// fine, placing just needs an upload first.
func (serverHandler *ServerHandler) stampLibraryChecks() {
	if err := serverHandler.Stamps.Reload(serverHandler.DB); err != nil {
		Logger.Warn("Unable to load stamp library at startup", "error", err)
		return
	}
	for _, variant := range database.StampVariants {
		count := serverHandler.Stamps.Count(variant)
		if count == 0 {
			Logger.Info("No stamp images stored yet, upload some on the stamps page", "variant", variant)
		} else {
			Logger.Info("Stamp library loaded", "variant", variant, "count", count)
		}
	}
}
