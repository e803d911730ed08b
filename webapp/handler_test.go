package webapp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestHandlerRoutes tests that all expected routes are registered
func TestHandlerRoutes(t *testing.T) {
	handler := Handler()

	tests := []struct {
		name string
		path string
	}{
		{
			name: "Documents page",
			path: "/",
		},
		{
			name: "Editor page",
			path: "/editor",
		},
		{
			name: "Stamps page",
			path: "/stamps",
		},
		{
			name: "Jobs page",
			path: "/jobs",
		},
		{
			name: "Clean page",
			path: "/clean",
		},
		{
			name: "About page",
			path: "/about",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			// Should return 200 OK or at least not 404
			if rec.Code == http.StatusNotFound {
				t.Errorf("Route %s returned 404 Not Found - route may not be registered", tt.path)
			}

			// Should return HTML content
			contentType := rec.Header().Get("Content-Type")
			if !strings.Contains(contentType, "text/html") && rec.Code == http.StatusOK {
				t.Logf("Note: Route %s returned status %d with Content-Type: %s", tt.path, rec.Code, contentType)
			}

			t.Logf("Route %s returned status %d", tt.path, rec.Code)
		})
	}
}

// TestEditorPageRegistration specifically tests that the editor page exists
func TestEditorPageRegistration(t *testing.T) {
	handler := Handler()

	req := httptest.NewRequest(http.MethodGet, "/editor", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code == http.StatusNotFound {
		t.Errorf("Editor page returned 404 Not Found")
		t.Error("Make sure /editor route is registered in webapp/handler.go")
		t.Error("Add: app.Route(\"/editor\", func() app.Composer { return &App{} })")
	} else {
		t.Logf("Editor page successfully registered, returned status %d", rec.Code)
	}
}

// TestAppRenderPage tests that the App component structure exists
func TestAppRenderPage(t *testing.T) {
	// This is a unit test that would require setting up a mock context
	// For now, we just verify the structure exists
	app := &App{}

	// Verify App component exists and has Render method
	if app == nil {
		t.Error("App component is nil")
	}

	// The actual routing is tested via the integration test above
	t.Log("App component structure verified")
}
