// Package pdfexport serializes a session's painted pages into the signed
// output PDF. Two backends exist: the raster exporter embeds each painted
// surface as a full-bleed image page, the overlay exporter stamps the
// original PDF so its vector content survives.
package pdfexport

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/drummonds/gosign/engine/placement"
)

// Stamp carries one stored stamp image for export
type Stamp struct {
	PNG    []byte
	Width  int
	Height int
}

// Document is everything an exporter may need: the uploaded source PDF on
// disk, the fully painted page surfaces in page order, and the placement log
// with the stamp libraries it refers to
type Document struct {
	SourcePath string
	Surfaces   []image.Image
	Placements []placement.Placement
	Stamps     map[string][]Stamp
}

// Exporter writes the signed PDF for a document to outPath
type Exporter interface {
	Export(doc Document, outPath string) error
}

// NewExporter creates an exporter by name: "raster" (image pages at the
// rasterization's pixel dimensions) or "overlay" (watermarks onto the
// original PDF)
func NewExporter(kind string) (Exporter, error) {
	switch kind {
	case "raster":
		return &RasterExporter{}, nil
	case "overlay":
		return &OverlayExporter{}, nil
	default:
		return nil, fmt.Errorf("unknown PDF exporter %q (want raster or overlay)", kind)
	}
}

// SignedName derives the output filename from the uploaded one, keeping the
// stem and appending the _signed suffix
func SignedName(sourceName string) string {
	stem := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	if stem == "" || stem == "." {
		stem = "document"
	}
	return stem + "_signed.pdf"
}
