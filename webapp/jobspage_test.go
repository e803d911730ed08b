package webapp

import (
	"testing"
	"time"
)

// TestFormatJobType tests the job type display conversion
func TestFormatJobType(t *testing.T) {
	tests := []struct {
		name     string
		jobType  string
		expected string
	}{
		{
			name:     "Render job",
			jobType:  "render_document",
			expected: "Page Rendering",
		},
		{
			name:     "Export job",
			jobType:  "export_document",
			expected: "Signed PDF Export",
		},
		{
			name:     "Cleanup job",
			jobType:  "cleanup",
			expected: "Session Cleanup",
		},
	}

	page := &JobsPage{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := page.formatJobType(tt.jobType)
			if got != tt.expected {
				t.Errorf("formatJobType(%q) = %v, want %v", tt.jobType, got, tt.expected)
			}
		})
	}
}

// TestFormatResult tests the job result JSON formatting
func TestFormatResult(t *testing.T) {
	tests := []struct {
		name     string
		result   string
		expected string
	}{
		{
			name:     "Render result",
			result:   `{"pages": 4}`,
			expected: "Pages: 4",
		},
		{
			name:     "Export result",
			result:   `{"file": "contract_signed.pdf", "placements": 3}`,
			expected: "File: contract_signed.pdf, Placements: 3",
		},
		{
			name:     "Cleanup result",
			result:   `{"sessionsRemoved": 2, "jobsDeleted": 5}`,
			expected: "Sessions removed: 2, Jobs deleted: 5",
		},
		{
			name:     "Cleanup with nothing pruned omits job count",
			result:   `{"sessionsRemoved": 0, "jobsDeleted": 0}`,
			expected: "Sessions removed: 0",
		},
		{
			name:     "Non JSON passes through",
			result:   "done",
			expected: "done",
		},
		{
			name:     "Unknown keys pass through",
			result:   `{"widgets": 9}`,
			expected: `{"widgets": 9}`,
		},
	}

	page := &JobsPage{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := page.formatResult(tt.result)
			if got != tt.expected {
				t.Errorf("formatResult(%q) = %v, want %v", tt.result, got, tt.expected)
			}
		})
	}
}

// TestFormatTime tests the relative time formatting
func TestFormatTime(t *testing.T) {
	page := &JobsPage{}

	t.Run("Empty string stays empty", func(t *testing.T) {
		if got := page.formatTime(""); got != "" {
			t.Errorf("formatTime(\"\") = %q, want empty", got)
		}
	})

	t.Run("Unparseable string passes through", func(t *testing.T) {
		if got := page.formatTime("not-a-time"); got != "not-a-time" {
			t.Errorf("formatTime passthrough = %q, want not-a-time", got)
		}
	})

	t.Run("Recent time is relative", func(t *testing.T) {
		recent := time.Now().Add(-30 * time.Second).Format(time.RFC3339)
		if got := page.formatTime(recent); got != "Just now" {
			t.Errorf("formatTime(recent) = %q, want Just now", got)
		}
	})

	t.Run("Minutes ago", func(t *testing.T) {
		earlier := time.Now().Add(-5 * time.Minute).Format(time.RFC3339)
		if got := page.formatTime(earlier); got != "5 minutes ago" {
			t.Errorf("formatTime(earlier) = %q, want 5 minutes ago", got)
		}
	})
}

// TestJobsPageRenderStates tests that different states produce valid UI
func TestJobsPageRenderStates(t *testing.T) {
	t.Run("Loading state returns valid UI", func(t *testing.T) {
		page := &JobsPage{
			loading: true,
		}
		ui := page.Render()

		if ui == nil {
			t.Error("Loading state should return non-nil UI")
		}
	})

	t.Run("Error state returns valid UI", func(t *testing.T) {
		page := &JobsPage{
			error: "Network error",
		}
		ui := page.Render()

		if ui == nil {
			t.Error("Error state should return non-nil UI")
		}
	})

	t.Run("Jobs list returns valid UI", func(t *testing.T) {
		page := &JobsPage{
			jobs: []Job{
				{
					ID:       "01ARZ3NDEKTSV4RRFFQ69G5FAV",
					Type:     "render_document",
					Status:   "running",
					Progress: 50,
				},
				{
					ID:     "01ARZ3NDEKTSV4RRFFQ69G5FB0",
					Type:   "export_document",
					Status: "completed",
					Result: `{"file": "contract_signed.pdf", "placements": 2}`,
				},
			},
		}
		ui := page.Render()

		if ui == nil {
			t.Error("Jobs list should return non-nil UI")
		}
	})
}
