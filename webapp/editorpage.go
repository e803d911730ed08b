package webapp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// placementRequest is the body posted when a page is clicked
type placementRequest struct {
	PageIndex int     `json:"pageIndex"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Variant   string  `json:"variant"`
	HeightPx  int     `json:"heightPx"`
}

// EditorPage shows the rendered pages of one document and places stamps
// where the user clicks. A ghost of the next stamp follows the cursor.
type EditorPage struct {
	app.Compo
	sessionID   string
	session     SessionInfo
	loaded      bool
	loading     bool
	error       string
	notice      string
	variant     string
	heightPx    int
	stampCounts map[string]int
	pageVersion int
	placing     bool
	pollTicker  *time.Ticker

	ghostVisible bool
	ghostPage    int
	ghostLeft    float64
	ghostTop     float64
	ghostHeight  float64
}

// OnMount is called when the component is mounted
func (ep *EditorPage) OnMount(ctx app.Context) {
	ep.variant = "signature"
	ep.heightPx = DefaultStampHeight()
	ep.stampCounts = map[string]int{}
	ep.loading = true

	urlPath := ctx.Page().URL()
	if urlObj, err := url.Parse(urlPath.String()); err == nil {
		ep.sessionID = urlObj.Query().Get("id")
	}
	if ep.sessionID == "" {
		ep.loading = false
		ep.error = "No document selected. Upload a PDF from the Documents page first."
		return
	}

	ep.fetchSession(ctx)
	ep.fetchStampCounts(ctx)

	// Refresh while the document is still rendering or an export runs
	ctx.Async(func() {
		ep.pollTicker = time.NewTicker(1 * time.Second)
		for range ep.pollTicker.C {
			if ep.session.Status == "rendering" || ep.session.Exporting {
				ep.fetchSession(ctx)
			}
		}
	})
}

// OnDismount is called when the component is unmounted
func (ep *EditorPage) OnDismount() {
	if ep.pollTicker != nil {
		ep.pollTicker.Stop()
	}
}

// fetchSession loads the session info, including page sizes and the
// per variant placement counts the ghost preview needs
func (ep *EditorPage) fetchSession(ctx app.Context) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/documents/"+ep.sessionID))

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			if response.Get("status").Int() == 404 {
				ctx.Dispatch(func(ctx app.Context) {
					ep.error = "Document session not found. It may have expired."
					ep.loading = false
				})
				return nil
			}

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				if len(args) == 0 {
					return nil
				}

				jsonData := args[0]
				jsonStr := app.Window().Get("JSON").Call("stringify", jsonData).String()

				var info SessionInfo
				ctx.Dispatch(func(ctx app.Context) {
					if err := json.Unmarshal([]byte(jsonStr), &info); err != nil {
						ep.error = fmt.Sprintf("Failed to parse response: %v", err)
					} else {
						ep.session = info
						ep.loaded = true
					}
					ep.loading = false
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				ep.error = "Network error"
				ep.loading = false
			})
			return nil
		}))
	})
}

// fetchStampCounts loads how many images each stamp variant holds
func (ep *EditorPage) fetchStampCounts(ctx app.Context) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/stamps"))

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
					Variants []StampVariant `json:"variants"`
				}
				ctx.Dispatch(func(ctx app.Context) {
					if err := json.Unmarshal([]byte(jsonStr), &payload); err == nil {
						counts := make(map[string]int, len(payload.Variants))
						for _, v := range payload.Variants {
							counts[v.Variant] = v.Count
						}
						ep.stampCounts = counts
					}
				})

				return nil
			}))

			return nil
		}))
	})
}

// onPageClick converts the click position to canvas coordinates and
// records a placement there
func (ep *EditorPage) onPageClick(pageIndex int) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		img := ctx.JSSrc()
		x, y := canvasPoint(
			e.Get("offsetX").Float(),
			e.Get("offsetY").Float(),
			img.Get("naturalWidth").Float(),
			img.Get("clientWidth").Float(),
		)
		ep.placeStamp(ctx, pageIndex, x, y)
	}
}

// onPageMouseMove moves the ghost stamp under the cursor
func (ep *EditorPage) onPageMouseMove(pageIndex int) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		img := ctx.JSSrc()
		ep.ghostVisible = true
		ep.ghostPage = pageIndex
		ep.ghostLeft = e.Get("offsetX").Float()
		ep.ghostTop = e.Get("offsetY").Float()
		ep.ghostHeight = displayHeight(
			float64(ep.heightPx),
			img.Get("naturalWidth").Float(),
			img.Get("clientWidth").Float(),
		)
	}
}

// onPageMouseLeave hides the ghost stamp
func (ep *EditorPage) onPageMouseLeave(ctx app.Context, e app.Event) {
	ep.ghostVisible = false
}

// placeStamp posts a placement and refreshes the page images on success
func (ep *EditorPage) placeStamp(ctx app.Context, pageIndex int, x, y float64) {
	if ep.placing {
		return
	}
	if ep.stampCounts[ep.variant] == 0 {
		ep.notice = fmt.Sprintf("No %s stamps uploaded yet. Add some on the Stamp Library page.", ep.variant)
		return
	}

	payload, err := json.Marshal(placementRequest{
		PageIndex: pageIndex,
		X:         x,
		Y:         y,
		Variant:   ep.variant,
		HeightPx:  ep.heightPx,
	})
	if err != nil {
		ep.error = fmt.Sprintf("Failed to encode placement: %v", err)
		return
	}

	ep.placing = true
	ep.notice = ""

	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/documents/"+ep.sessionID+"/placements"), map[string]interface{}{
			"method": "POST",
			"headers": map[string]interface{}{
				"Content-Type": "application/json",
			},
			"body": string(payload),
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
					ep.placing = false
					switch {
					case status == 201:
						ep.pageVersion++
						ep.fetchSession(ctx)
					case status == 409:
						ep.notice = "Document is busy, try again in a moment"
					default:
						if msg := jsonData.Get("error"); msg.Truthy() {
							ep.notice = msg.String()
						} else {
							ep.notice = fmt.Sprintf("Placement rejected (status: %d)", status)
						}
					}
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				ep.placing = false
				ep.error = "Network error"
			})
			return nil
		}))
	})
}

// postLogAction triggers undo or reset and refreshes on success
func (ep *EditorPage) postLogAction(ctx app.Context, endpoint string) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/documents/"+ep.sessionID+"/"+endpoint), map[string]interface{}{
			"method": "POST",
		})

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			status := response.Get("status").Int()

			ctx.Dispatch(func(ctx app.Context) {
				if status == 200 {
					ep.pageVersion++
					ep.fetchSession(ctx)
				} else {
					ep.notice = fmt.Sprintf("Request failed (status: %d)", status)
				}
			})

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				ep.error = "Network error"
			})
			return nil
		}))
	})
}

// onUndo removes the most recent placement
func (ep *EditorPage) onUndo(ctx app.Context, e app.Event) {
	ep.postLogAction(ctx, "undo")
}

// onReset clears every placement
func (ep *EditorPage) onReset(ctx app.Context, e app.Event) {
	ep.postLogAction(ctx, "reset")
}

// onExport starts the signed PDF export job
func (ep *EditorPage) onExport(ctx app.Context, e app.Event) {
	ep.notice = ""
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/documents/"+ep.sessionID+"/export"), map[string]interface{}{
			"method": "POST",
		})

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			status := response.Get("status").Int()

			ctx.Dispatch(func(ctx app.Context) {
				switch {
				case status == 202:
					ep.fetchSession(ctx)
				case status == 409:
					ep.notice = "An export is already running for this document"
				default:
					ep.notice = fmt.Sprintf("Export failed to start (status: %d)", status)
				}
			})

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				ep.error = "Network error"
			})
			return nil
		}))
	})
}

// onHeightChange follows the height slider
func (ep *EditorPage) onHeightChange(ctx app.Context, e app.Event) {
	if v, err := strconv.Atoi(ctx.JSSrc().Get("value").String()); err == nil {
		ep.heightPx = clampHeight(v)
	}
}

// ghostStampURL is the image the next placement would use. Empty when the
// selected variant has no stamps.
func (ep *EditorPage) ghostStampURL() string {
	count := ep.stampCounts[ep.variant]
	if count == 0 {
		return ""
	}
	idx := nextStampIndex(ep.session.VariantCounts[ep.variant], count)
	return BuildAPIURL(fmt.Sprintf("/api/stamps/%s/%d/image", ep.variant, idx))
}

// Render renders the editor page
func (ep *EditorPage) Render() app.UI {
	title := "Editor"
	if ep.session.SourceName != "" {
		title = "Signing " + ep.session.SourceName
	}

	var content app.UI
	switch {
	case ep.loading && !ep.loaded:
		content = app.Div().Class("loading").Body(app.Text("Loading document..."))
	case ep.error != "":
		content = app.Div().Class("error").Body(app.Text("Error: " + ep.error))
	case ep.session.Status == "rendering":
		content = app.Div().Class("loading").Body(
			app.Text(fmt.Sprintf("Rendering %d pages...", ep.session.PageCount)),
		)
	case ep.session.Status == "failed":
		content = app.Div().Class("error").Body(app.Text("Rendering failed: " + ep.session.Error))
	default:
		content = app.Div().Body(
			ep.renderToolbar(),
			ep.renderPages(),
		)
	}

	return app.Div().
		Class("editor-page").
		Body(
			app.H2().Text(title),
			app.If(ep.notice != "", func() app.UI {
				return app.Div().Class("warning").Body(app.Text(ep.notice))
			}),
			content,
		)
}

// renderToolbar renders the variant toggle, height slider and log actions
func (ep *EditorPage) renderToolbar() app.UI {
	exportText := "Export Signed PDF"
	if ep.session.Exporting {
		exportText = "Exporting..."
	}

	return app.Div().Class("editor-toolbar").Body(
		app.Div().Class("variant-toggle").Body(
			ep.renderVariantButton("signature", "Signature"),
			ep.renderVariantButton("initial", "Initials"),
		),
		app.Div().Class("height-control").Body(
			app.Label().For("stamp-height").Text(fmt.Sprintf("Stamp height: %d px", ep.heightPx)),
			app.Input().
				Type("range").
				ID("stamp-height").
				Min(1).
				Max(1000).
				Value(strconv.Itoa(ep.heightPx)).
				OnInput(ep.onHeightChange),
		),
		app.Div().Class("editor-actions").Body(
			app.Button().
				Class("btn-secondary").
				Disabled(ep.session.Placements == 0).
				OnClick(ep.onUndo).
				Body(app.Text("Undo")),
			app.Button().
				Class("btn-secondary").
				Disabled(ep.session.Placements == 0).
				OnClick(ep.onReset).
				Body(app.Text("Reset")),
			app.Button().
				Class("btn-primary").
				Disabled(ep.session.Exporting).
				OnClick(ep.onExport).
				Body(app.Text(exportText)),
			app.If(ep.session.ExportReady, func() app.UI {
				return app.A().
					Class("btn-download").
					Href(BuildAPIURL("/api/documents/"+ep.sessionID+"/export")).
					Download(ep.session.SignedName).
					Body(app.Text("Download " + ep.session.SignedName))
			}),
		),
	)
}

// renderVariantButton renders one stamp variant selector
func (ep *EditorPage) renderVariantButton(variant, label string) app.UI {
	class := "variant-button"
	if ep.variant == variant {
		class += " active"
	}
	return app.Button().
		Class(class).
		OnClick(func(ctx app.Context, e app.Event) {
			ep.variant = variant
			ep.ghostVisible = false
		}).
		Body(app.Text(fmt.Sprintf("%s (%d)", label, ep.stampCounts[variant])))
}

// renderPages renders every page surface in order
func (ep *EditorPage) renderPages() app.UI {
	return app.Div().Class("page-stack").Body(
		app.Range(ep.session.Pages).Slice(func(i int) app.UI {
			return ep.renderPageSurface(ep.session.Pages[i])
		}),
	)
}

// renderPageSurface renders one page image with its ghost overlay. The
// version query busts the browser cache after each placement change.
func (ep *EditorPage) renderPageSurface(page PageInfo) app.UI {
	src := BuildAPIURL(fmt.Sprintf("/api/documents/%s/pages/%d?v=%d", ep.sessionID, page.Index, ep.pageVersion))

	children := []app.UI{
		app.Img().
			Src(src).
			Class("page-canvas").
			Alt(fmt.Sprintf("Page %d", page.Index+1)).
			OnClick(ep.onPageClick(page.Index)).
			OnMouseMove(ep.onPageMouseMove(page.Index)).
			OnMouseLeave(ep.onPageMouseLeave),
	}

	if ep.ghostVisible && ep.ghostPage == page.Index {
		if ghostSrc := ep.ghostStampURL(); ghostSrc != "" {
			children = append(children, app.Div().
				Class("stamp-ghost").
				Style("left", fmt.Sprintf("%.0fpx", ep.ghostLeft)).
				Style("top", fmt.Sprintf("%.0fpx", ep.ghostTop)).
				Body(
					app.Img().
						Src(ghostSrc).
						Style("height", fmt.Sprintf("%.0fpx", ep.ghostHeight)),
				))
		}
	}

	return app.Div().
		Class("page-wrap").
		Body(
			app.Span().Class("page-number").Text(fmt.Sprintf("Page %d of %d", page.Index+1, ep.session.PageCount)),
			app.Div().Class("page-surface").Body(children...),
		)
}

// canvasPoint maps a click position on the scaled down page image back to
// canvas pixel coordinates
func canvasPoint(offsetX, offsetY, naturalWidth, clientWidth float64) (float64, float64) {
	scale := 1.0
	if naturalWidth > 0 && clientWidth > 0 {
		scale = naturalWidth / clientWidth
	}
	return offsetX * scale, offsetY * scale
}

// displayHeight converts a stamp height in canvas pixels to on screen CSS
// pixels for a page image scaled down to clientWidth
func displayHeight(heightPx, naturalWidth, clientWidth float64) float64 {
	if naturalWidth <= 0 || clientWidth <= 0 {
		return heightPx
	}
	return heightPx * clientWidth / naturalWidth
}

// nextStampIndex picks the library slot the next placement will draw.
// Stamps rotate round robin so repeated signatures vary naturally.
func nextStampIndex(placed, librarySize int) int {
	if librarySize <= 0 {
		return 0
	}
	return placed % librarySize
}

// clampHeight keeps slider values inside the accepted stamp height range
func clampHeight(v int) int {
	if v < 1 {
		return 1
	}
	if v > 1000 {
		return 1000
	}
	return v
}
