package webapp

import (
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// GetAPIBaseURL returns the configured API base URL
// It reads from window.gosignConfig.apiURL if available,
// otherwise falls back to empty string (relative URLs)
func GetAPIBaseURL() string {
	// Check if config is available in browser
	if !app.IsClient {
		return "" // Server-side rendering - use relative URLs
	}

	// Try to get API URL from global config
	config := app.Window().Get("gosignConfig")
	if config.Truthy() {
		apiURL := config.Get("apiURL")
		if apiURL.Truthy() {
			url := apiURL.String()
			// Ensure no trailing slash
			if len(url) > 0 && url[len(url)-1] == '/' {
				return url[:len(url)-1]
			}
			return url
		}
	}

	// Fallback to relative URLs (same origin)
	return ""
}

// BuildAPIURL constructs a full API URL from a path
// Example: BuildAPIURL("/api/documents") -> "http://backend:8000/api/documents"
// or just "/api/documents" if using relative URLs
func BuildAPIURL(path string) string {
	baseURL := GetAPIBaseURL()
	if baseURL == "" {
		return path // Relative URL
	}
	return baseURL + path
}

// DefaultStampHeight returns the configured starting stamp height in canvas
// pixels, falling back to 100 when the config script has not loaded
func DefaultStampHeight() int {
	if !app.IsClient {
		return 100
	}
	config := app.Window().Get("gosignConfig")
	if config.Truthy() {
		height := config.Get("defaultStampHeightPx")
		if height.Truthy() {
			if v := height.Int(); v >= 1 && v <= 1000 {
				return v
			}
		}
	}
	return 100
}

// SessionInfo represents a document session from the API
type SessionInfo struct {
	ID            string         `json:"id"`
	SourceName    string         `json:"sourceName"`
	SignedName    string         `json:"signedName"`
	Status        string         `json:"status"`
	Error         string         `json:"error,omitempty"`
	PageCount     int            `json:"pageCount"`
	Placements    int            `json:"placements"`
	VariantCounts map[string]int `json:"variantCounts,omitempty"`
	Pages         []PageInfo     `json:"pages,omitempty"`
	ExportReady   bool           `json:"exportReady"`
	Exporting     bool           `json:"exporting"`
	CreatedAt     string         `json:"createdAt"`
}

// PageInfo is one rendered page surface
type PageInfo struct {
	Index  int `json:"index"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// StampVariant reports how many images a stamp variant stores
type StampVariant struct {
	Variant string `json:"variant"`
	Count   int    `json:"count"`
}

// StampInfo is the stored metadata of one stamp image
type StampInfo struct {
	ULID      string `json:"ulid"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CreatedAt string `json:"createdAt"`
}

// Job represents a background job
type Job struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	CurrentStep string `json:"currentStep"`
	TotalSteps  int    `json:"totalSteps"`
	Message     string `json:"message"`
	Error       string `json:"error,omitempty"`
	Result      string `json:"result,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	StartedAt   string `json:"startedAt,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
}
