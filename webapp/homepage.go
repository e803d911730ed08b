package webapp

import (
	"encoding/json"
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// HomePage uploads PDFs and lists the live document sessions
type HomePage struct {
	app.Compo
	sessions  []SessionInfo
	loading   bool
	uploading bool
	error     string
	notice    string
}

// OnMount is called when the component is mounted
func (h *HomePage) OnMount(ctx app.Context) {
	h.loading = true
	h.fetchSessions(ctx)
}

// fetchSessions fetches the live sessions
func (h *HomePage) fetchSessions(ctx app.Context) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/documents"))

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

				var sessions []SessionInfo
				ctx.Dispatch(func(ctx app.Context) {
					if err := json.Unmarshal([]byte(jsonStr), &sessions); err != nil {
						h.error = fmt.Sprintf("Failed to parse response: %v", err)
					} else {
						h.sessions = sessions
					}
					h.loading = false
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				h.error = "Network error"
				h.loading = false
			})
			return nil
		}))
	})
}

// onUploadClick reads the chosen file and posts it to the API
func (h *HomePage) onUploadClick(ctx app.Context, e app.Event) {
	fileInput := app.Window().GetElementByID("pdf-upload")
	if !fileInput.Truthy() {
		return
	}
	files := fileInput.Get("files")
	if !files.Truthy() || files.Get("length").Int() == 0 {
		h.notice = "Choose a PDF file first"
		return
	}

	h.uploading = true
	h.error = ""
	h.notice = ""
	h.uploadFile(ctx, files.Index(0))
}

// uploadFile sends the PDF as multipart form data. A 202 answer carries the
// new session id and the browser moves straight to the editor.
func (h *HomePage) uploadFile(ctx app.Context, file app.Value) {
	ctx.Async(func() {
		formData := app.Window().Get("FormData").New()
		formData.Call("append", "file", file)

		res := app.Window().Call("fetch", BuildAPIURL("/api/documents"), map[string]interface{}{
			"method": "POST",
			"body":   formData,
		})

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			status := response.Get("status").Int()

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				if len(args) == 0 {
					return nil
				}

				jsonData := args[0]

				ctx.Dispatch(func(ctx app.Context) {
					h.uploading = false
					switch {
					case status == 202:
						id := jsonData.Get("id").String()
						ctx.Navigate("/editor?id=" + id)
					case status == 409:
						h.notice = "Another document is still rendering, try again in a moment"
					default:
						if msg := jsonData.Get("error"); msg.Truthy() {
							h.error = msg.String()
						} else {
							h.error = fmt.Sprintf("Upload failed (status: %d)", status)
						}
					}
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				h.uploading = false
				h.error = "Network error: Could not connect to server"
			})
			return nil
		}))
	})
}

// onDeleteSession drops a session and refreshes the list
func (h *HomePage) onDeleteSession(id string) func(ctx app.Context, e app.Event) {
	return func(ctx app.Context, e app.Event) {
		e.PreventDefault()
		ctx.Async(func() {
			res := app.Window().Call("fetch", BuildAPIURL("/api/documents/"+id), map[string]interface{}{
				"method": "DELETE",
			})
			res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				ctx.Dispatch(func(ctx app.Context) {
					h.fetchSessions(ctx)
				})
				return nil
			}))
		})
	}
}

// Render renders the home page
func (h *HomePage) Render() app.UI {
	uploadText := "Upload and Open Editor"
	if h.uploading {
		uploadText = "Uploading..."
	}

	var content app.UI
	if h.loading {
		content = app.Div().Class("loading").Body(app.Text("Loading..."))
	} else if h.error != "" {
		content = app.Div().Class("error").Body(app.Text("Error: " + h.error))
	} else if len(h.sessions) == 0 {
		content = app.Div().Class("no-results").Body(app.Text("No open documents. Upload a PDF to start signing."))
	} else {
		content = app.Div().Class("document-grid").Body(
			app.Range(h.sessions).Slice(func(i int) app.UI {
				session := h.sessions[i]
				return &SessionCard{Session: session, OnDelete: h.onDeleteSession(session.ID)}
			}),
		)
	}

	return app.Div().
		Class("home-page").
		Body(
			app.H2().Text("Sign a PDF"),
			app.P().Text("Upload a PDF, click on its pages to place signature or initial stamps, then export the signed copy."),

			app.Div().Class("upload-controls").Body(
				app.Input().
					Type("file").
					ID("pdf-upload").
					Accept(".pdf"),
				app.Button().
					Class("btn-primary").
					Disabled(h.uploading).
					OnClick(h.onUploadClick).
					Body(app.Text(uploadText)),
			),
			app.If(h.notice != "", func() app.UI {
				return app.Div().Class("warning").Body(app.Text(h.notice))
			}),

			app.H2().Text("Open Documents"),
			content,
		)
}

// SessionCard displays a single document session
type SessionCard struct {
	app.Compo
	Session  SessionInfo
	OnDelete app.EventHandler
}

// Render renders the session card
func (s *SessionCard) Render() app.UI {
	return app.Div().
		Class("document-card").
		Body(
			app.Div().Class("document-icon").Body(
				app.Text("📄"),
			),
			app.Div().Class("document-info").Body(
				app.H3().Text(s.Session.SourceName),
				app.P().Class("document-meta").Text(
					fmt.Sprintf("%d pages, %d placements", s.Session.PageCount, s.Session.Placements),
				),
				app.Span().
					Class("status-badge status-"+s.Session.Status).
					Text(s.Session.Status),
				app.Div().Class("document-actions").Body(
					app.A().
						Href("/editor?id="+s.Session.ID).
						Class("document-link").
						Body(app.Text("Open Editor")),
					app.Button().
						Class("btn-small btn-danger").
						OnClick(s.OnDelete).
						Body(app.Text("Delete")),
				),
			),
		)
}
