package pdfrenderer

import (
	"fmt"
	"image"
)

// RenderDPI is the fixed rasterization resolution. PDF pages are laid out in
// 72-unit points, so 150 DPI renders every page at a 150/72 (~2.08x) scale of
// its natural size. Placement coordinates and the exported PDF both live in
// this pixel space.
const RenderDPI = 150

// Renderer defines the interface for PDF to image conversion
type Renderer interface {
	// RenderPDF converts all pages of a PDF file to images
	// Returns a slice of images, one per page
	RenderPDF(filename string) ([]image.Image, error)

	// Close cleans up any resources used by the renderer
	Close() error
}

// NewRenderer creates a renderer by name: "fitz" (CGo and MuPDF) or
// "pdfium" (WebAssembly, no CGo)
func NewRenderer(kind string) (Renderer, error) {
	switch kind {
	case "fitz":
		return NewFitzRenderer()
	case "pdfium":
		return NewPDFiumRenderer()
	default:
		return nil, fmt.Errorf("unknown PDF renderer %q (want fitz or pdfium)", kind)
	}
}
