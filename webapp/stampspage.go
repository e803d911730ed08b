package webapp

import (
	"encoding/json"
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// stampVariantNames lists the variants the library manages, in display order
var stampVariantNames = []string{"signature", "initial"}

// StampsPage manages the stored signature and initial stamp sets
type StampsPage struct {
	app.Compo
	stamps    map[string][]StampInfo
	loading   bool
	uploading string
	cacheBust int
	error     string
	notice    string
}

// OnMount is called when the component is mounted
func (sp *StampsPage) OnMount(ctx app.Context) {
	sp.stamps = map[string][]StampInfo{}
	sp.loading = true
	for _, variant := range stampVariantNames {
		sp.fetchStampSet(ctx, variant)
	}
}

// fetchStampSet loads one variant's stored stamps
func (sp *StampsPage) fetchStampSet(ctx app.Context, variant string) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/stamps/"+variant))

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

				var payload struct {
					Variant string      `json:"variant"`
					Stamps  []StampInfo `json:"stamps"`
				}
				ctx.Dispatch(func(ctx app.Context) {
					if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
						sp.error = fmt.Sprintf("Failed to parse response: %v", err)
					} else {
						sp.stamps[variant] = payload.Stamps
					}
					sp.loading = false
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				sp.error = "Network error"
				sp.loading = false
			})
			return nil
		}))
	})
}

// onUploadClick replaces a variant's stamp set with the chosen PNG files
func (sp *StampsPage) onUploadClick(variant string) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		fileInput := app.Window().GetElementByID("stamp-upload-" + variant)
		if !fileInput.Truthy() {
			return
		}
		files := fileInput.Get("files")
		if !files.Truthy() || files.Get("length").Int() == 0 {
			sp.notice = "Choose one or more PNG files first"
			return
		}

		sp.uploading = variant
		sp.error = ""
		sp.notice = ""
		sp.uploadStampSet(ctx, variant, files)
	}
}

// uploadStampSet sends the files as one multipart replace-all upload
func (sp *StampsPage) uploadStampSet(ctx app.Context, variant string, files app.Value) {
	ctx.Async(func() {
		formData := app.Window().Get("FormData").New()
		count := files.Get("length").Int()
		for i := 0; i < count; i++ {
			formData.Call("append", "files", files.Index(i))
		}

		res := app.Window().Call("fetch", BuildAPIURL("/api/stamps/"+variant), map[string]interface{}{
			"method": "PUT",
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
					sp.uploading = ""
					if status == 200 {
						sp.cacheBust++
						sp.notice = fmt.Sprintf("Stored %d %s stamps", jsonData.Get("count").Int(), variant)
						sp.fetchStampSet(ctx, variant)
					} else if msg := jsonData.Get("error"); msg.Truthy() {
						sp.error = msg.String()
					} else {
						sp.error = fmt.Sprintf("Upload failed (status: %d)", status)
					}
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				sp.uploading = ""
				sp.error = "Network error: Could not connect to server"
			})
			return nil
		}))
	})
}

// onDeleteClick clears a variant's stored stamps
func (sp *StampsPage) onDeleteClick(variant string) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		sp.error = ""
		sp.notice = ""
		ctx.Async(func() {
			res := app.Window().Call("fetch", BuildAPIURL("/api/stamps/"+variant), map[string]interface{}{
				"method": "DELETE",
			})

			res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				ctx.Dispatch(func(ctx app.Context) {
					sp.fetchStampSet(ctx, variant)
				})
				return nil
			})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
				ctx.Dispatch(func(ctx app.Context) {
					sp.error = "Network error"
				})
				return nil
			}))
		})
	}
}

// Render renders the stamps page
func (sp *StampsPage) Render() app.UI {
	return app.Div().
		Class("stamps-page").
		Body(
			app.H2().Text("Stamp Library"),
			app.P().Text("Upload transparent PNGs of your signature and initials. Repeated placements rotate through the set so each one looks a little different."),
			app.If(sp.error != "", func() app.UI {
				return app.Div().Class("error").Body(app.Text("Error: " + sp.error))
			}),
			app.If(sp.notice != "", func() app.UI {
				return app.Div().Class("info").Body(app.Text(sp.notice))
			}),
			sp.renderVariantSection("signature", "Signature Stamps"),
			sp.renderVariantSection("initial", "Initial Stamps"),
		)
}

// renderVariantSection renders the upload controls and thumbnail grid of
// one variant
func (sp *StampsPage) renderVariantSection(variant, heading string) app.UI {
	stamps := sp.stamps[variant]

	uploadText := "Replace Set"
	if sp.uploading == variant {
		uploadText = "Uploading..."
	}

	var grid app.UI
	if sp.loading {
		grid = app.Div().Class("loading").Body(app.Text("Loading..."))
	} else if len(stamps) == 0 {
		grid = app.Div().Class("no-results").Body(app.Text("No stamps stored for this variant yet."))
	} else {
		grid = app.Div().Class("stamp-grid").Body(
			app.Range(stamps).Slice(func(i int) app.UI {
				stamp := stamps[i]
				thumbURL := BuildAPIURL(fmt.Sprintf("/api/stamps/%s/%d/thumbnail?v=%d", variant, stamp.Position, sp.cacheBust))
				return app.Div().Class("stamp-card").Body(
					app.Img().Src(thumbURL).Alt(stamp.Name),
					app.P().Class("stamp-name").Text(stamp.Name),
					app.P().Class("stamp-meta").Text(fmt.Sprintf("#%d, %dx%d px", stamp.Position+1, stamp.Width, stamp.Height)),
				)
			}),
		)
	}

	return app.Div().
		Class("stamp-section").
		Body(
			app.H3().Text(fmt.Sprintf("%s (%d)", heading, len(stamps))),
			app.Div().Class("upload-controls").Body(
				app.Input().
					Type("file").
					ID("stamp-upload-"+variant).
					Accept(".png").
					Multiple(true),
				app.Button().
					Class("btn-primary").
					Disabled(sp.uploading != "").
					OnClick(sp.onUploadClick(variant)).
					Body(app.Text(uploadText)),
				app.Button().
					Class("btn-small btn-danger").
					Disabled(len(stamps) == 0).
					OnClick(sp.onDeleteClick(variant)).
					Body(app.Text("Delete All")),
			),
			grid,
		)
}
