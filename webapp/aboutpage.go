package webapp

import (
	"encoding/json"
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// AboutInfo represents the about information from the API
type AboutInfo struct {
	Version              string `json:"version"`
	PDFRenderer          string `json:"pdfRenderer"`
	PDFExporter          string `json:"pdfExporter"`
	PDFServiceConfigured bool   `json:"pdfServiceConfigured"`
	DatabaseType         string `json:"databaseType"`
	DatabaseHost         string `json:"databaseHost"`
	DatabasePort         string `json:"databasePort"`
	DatabaseName         string `json:"databaseName"`
	StoragePath          string `json:"storagePath"`
	SessionTTLHours      int    `json:"sessionTTLHours"`
	DefaultStampHeightPx int    `json:"defaultStampHeightPx"`
	LiveSessions         int    `json:"liveSessions"`
}

// AboutPage displays information about the application
type AboutPage struct {
	app.Compo
	aboutInfo AboutInfo
	loading   bool
	error     string
}

// OnMount is called when the component is mounted
func (a *AboutPage) OnMount(ctx app.Context) {
	a.loading = true
	a.fetchAboutInfo(ctx)
}

// fetchAboutInfo fetches the about information from the API
func (a *AboutPage) fetchAboutInfo(ctx app.Context) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/about"))

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				if len(args) == 0 {
					return nil
				}

				jsonData := args[0]
				jsonStr := app.Window().Get("JSON").Call("stringify", jsonData).String()

				ctx.Dispatch(func(ctx app.Context) {
					if err := json.Unmarshal([]byte(jsonStr), &a.aboutInfo); err != nil {
						a.error = fmt.Sprintf("Failed to parse response: %v", err)
					}
					a.loading = false
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				a.error = "Network error"
				a.loading = false
			})
			return nil
		}))
	})
}

// Render renders the about page
func (a *AboutPage) Render() app.UI {
	if a.loading {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About gosign"),
			app.Div().Class("loading").Body(app.Text("Loading...")),
		)
	}

	if a.error != "" {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About gosign"),
			app.Div().Class("error").Body(app.Text("Error: "+a.error)),
		)
	}

	return app.Div().Class("about-page").Body(
		app.H2().Text("About gosign"),
		app.Div().Class("about-content").Body(
			app.Div().Class("about-section").Body(
				app.H3().Text("Application Information"),
				app.Div().Class("info-grid").Body(
					a.renderInfoItem("Version", a.aboutInfo.Version),
					a.renderInfoItem("Database", a.getDatabaseDisplay()),
					a.renderInfoItem("PDF Renderer", a.getRendererDisplay()),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("PDF Pipeline"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Page Renderer: "),
						app.Text(a.getRendererDisplay()),
					),
					app.P().Body(
						app.Strong().Text("Exporter: "),
						app.Text(a.aboutInfo.PDFExporter),
					),
					app.P().Body(
						app.Strong().Text("Render Service: "),
						app.Text(a.getServiceStatus()),
					),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Database Configuration"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Database Type: "),
						app.Text(a.getDatabaseDisplay()),
					),
					app.P().Body(
						app.Strong().Text("Host: "),
						app.Text(a.aboutInfo.DatabaseHost),
					),
					app.P().Body(
						app.Strong().Text("Port: "),
						app.Text(a.aboutInfo.DatabasePort),
					),
					app.P().Body(
						app.Strong().Text("Database Name: "),
						app.Text(a.aboutInfo.DatabaseName),
					),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Sessions"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Storage Path: "),
						app.Text(a.aboutInfo.StoragePath),
					),
					app.P().Body(
						app.Strong().Text("Session Lifetime: "),
						app.Text(fmt.Sprintf("%d hours", a.aboutInfo.SessionTTLHours)),
					),
					app.P().Body(
						app.Strong().Text("Live Sessions: "),
						app.Text(fmt.Sprintf("%d", a.aboutInfo.LiveSessions)),
					),
					app.P().Body(
						app.Strong().Text("Default Stamp Height: "),
						app.Text(fmt.Sprintf("%d px", a.aboutInfo.DefaultStampHeightPx)),
					),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("About gosign"),
				app.P().Text("gosign is a PDF signing tool built with Go and WebAssembly."),
				app.P().Text("Upload a PDF, click on its rendered pages to place signature or initial stamps, then export a signed copy."),
			),
		),
	)
}

// renderInfoItem creates an info item display
func (a *AboutPage) renderInfoItem(label, value string) app.UI {
	return app.Div().Class("info-item").Body(
		app.Div().Class("info-label").Body(app.Text(label)),
		app.Div().Class("info-value").Body(app.Text(value)),
	)
}

// getDatabaseDisplay returns a user-friendly database display name
func (a *AboutPage) getDatabaseDisplay() string {
	switch a.aboutInfo.DatabaseType {
	case "postgres":
		return "PostgreSQL"
	case "cockroachdb":
		return "CockroachDB"
	case "sqlite":
		return "SQLite"
	default:
		return a.aboutInfo.DatabaseType
	}
}

// getRendererDisplay returns a user-friendly renderer name
func (a *AboutPage) getRendererDisplay() string {
	switch a.aboutInfo.PDFRenderer {
	case "fitz":
		return "MuPDF (go-fitz)"
	case "pdfium":
		return "PDFium"
	case "service":
		return "Render Service"
	default:
		return a.aboutInfo.PDFRenderer
	}
}

// getServiceStatus reports whether a standalone render service is wired in
func (a *AboutPage) getServiceStatus() string {
	if a.aboutInfo.PDFServiceConfigured {
		return "Configured"
	}
	return "Not configured"
}
