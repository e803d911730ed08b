package pdfexport

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
)

// RasterExporter builds the signed PDF purely from the painted surfaces.
// Each canvas becomes one page whose point dimensions equal the surface's
// pixel dimensions, with the surface drawn edge to edge. Vector content from
// the source does not survive, but what you see on screen is exactly what
// the PDF shows.
type RasterExporter struct{}

var _ Exporter = (*RasterExporter)(nil)

func (e *RasterExporter) Export(doc Document, outPath string) error {
	if len(doc.Surfaces) == 0 {
		return errors.New("document has no rendered pages to export")
	}

	// The size passed to New only seeds the default page format. Pages are
	// created per surface below, so the output has no leading blank page.
	pdf := fpdf.New("P", "pt", "", "")

	for i, surface := range doc.Surfaces {
		bounds := surface.Bounds()
		w := float64(bounds.Dx())
		h := float64(bounds.Dy())
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, surface, imaging.PNG); err != nil {
			return fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}

		name := fmt.Sprintf("page-%d", i+1)
		options := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, options, &buf)
		pdf.ImageOptions(name, 0, 0, w, h, false, options, 0, "")
		if pdf.Err() {
			return fmt.Errorf("failed to embed page %d: %w", i+1, pdf.Error())
		}
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("failed to write signed PDF: %w", err)
	}
	return nil
}
