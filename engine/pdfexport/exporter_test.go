package pdfexport

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/drummonds/gosign/engine/placement"
)

func solidSurface(w, h int, c color.NRGBA) image.Image {
	return imaging.New(w, h, c)
}

func stampPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(w, h, c), imaging.PNG); err != nil {
		t.Fatalf("failed to encode stamp PNG: %v", err)
	}
	return buf.Bytes()
}

// createTestPDF writes a two page letter sized PDF and returns its path
func createTestPDF(t *testing.T, dir string) string {
	t.Helper()
	pdf := fpdf.New("P", "pt", "", "")
	for i := 0; i < 2; i++ {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: 612, Ht: 792})
	}
	path := filepath.Join(dir, "source.pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("failed to write test PDF: %v", err)
	}
	return path
}

func TestSignedName(t *testing.T) {
	cases := []struct {
		source string
		want   string
	}{
		{"contract.pdf", "contract_signed.pdf"},
		{"scan.PDF", "scan_signed.pdf"},
		{"report", "report_signed.pdf"},
		{"uploads/2024/lease.pdf", "lease_signed.pdf"},
		{"", "document_signed.pdf"},
	}
	for _, c := range cases {
		if got := SignedName(c.source); got != c.want {
			t.Errorf("SignedName(%q) = %q, want %q", c.source, got, c.want)
		}
	}
}

func TestNewExporter(t *testing.T) {
	if _, err := NewExporter("raster"); err != nil {
		t.Errorf("raster exporter should be available: %v", err)
	}
	if _, err := NewExporter("overlay"); err != nil {
		t.Errorf("overlay exporter should be available: %v", err)
	}
	if _, err := NewExporter("quantum"); err == nil {
		t.Error("expected error for unknown exporter kind")
	}
}

func TestRasterExportPagesMatchSurfaces(t *testing.T) {
	white := color.NRGBA{255, 255, 255, 255}
	doc := Document{
		Surfaces: []image.Image{
			solidSurface(300, 400, white),
			solidSurface(640, 360, white),
		},
	}
	outPath := filepath.Join(t.TempDir(), "out_signed.pdf")

	exporter := &RasterExporter{}
	if err := exporter.Export(doc, outPath); err != nil {
		t.Fatalf("raster export failed: %v", err)
	}

	ctx, err := api.ReadContextFile(outPath)
	if err != nil {
		t.Fatalf("failed to read exported PDF: %v", err)
	}
	if ctx.PageCount != 2 {
		t.Fatalf("expected 2 pages, got %d", ctx.PageCount)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		t.Fatalf("failed to read page dimensions: %v", err)
	}
	want := []struct{ w, h float64 }{{300, 400}, {640, 360}}
	for i, d := range dims {
		if math.Abs(d.Width-want[i].w) > 0.5 || math.Abs(d.Height-want[i].h) > 0.5 {
			t.Errorf("page %d dimensions = %.1fx%.1f, want %.0fx%.0f", i+1, d.Width, d.Height, want[i].w, want[i].h)
		}
	}
}

func TestRasterExportEmptyDocument(t *testing.T) {
	exporter := &RasterExporter{}
	err := exporter.Export(Document{}, filepath.Join(t.TempDir(), "out.pdf"))
	if err == nil {
		t.Error("expected error when exporting a document with no pages")
	}
}

func TestOverlayExportKeepsPageCount(t *testing.T) {
	dir := t.TempDir()
	sourcePath := createTestPDF(t, dir)

	blue := color.NRGBA{0, 0, 255, 255}
	doc := Document{
		SourcePath: sourcePath,
		Placements: []placement.Placement{
			{PageIndex: 0, X: 600, Y: 800, Variant: "signature", VariantIndex: 0, HeightPx: 120},
			{PageIndex: 1, X: 400, Y: 400, Variant: "signature", VariantIndex: 1, HeightPx: 90},
		},
		Stamps: map[string][]Stamp{
			"signature": {{PNG: stampPNG(t, 200, 80, blue), Width: 200, Height: 80}},
		},
	}
	outPath := filepath.Join(dir, "source_signed.pdf")

	exporter := &OverlayExporter{}
	if err := exporter.Export(doc, outPath); err != nil {
		t.Fatalf("overlay export failed: %v", err)
	}

	ctx, err := api.ReadContextFile(outPath)
	if err != nil {
		t.Fatalf("failed to read exported PDF: %v", err)
	}
	if ctx.PageCount != 2 {
		t.Errorf("expected 2 pages after overlay, got %d", ctx.PageCount)
	}
}

func TestOverlayExportNoPlacementsCopiesSource(t *testing.T) {
	dir := t.TempDir()
	sourcePath := createTestPDF(t, dir)
	outPath := filepath.Join(dir, "copy_signed.pdf")

	exporter := &OverlayExporter{}
	if err := exporter.Export(Document{SourcePath: sourcePath}, outPath); err != nil {
		t.Fatalf("overlay export failed: %v", err)
	}

	source, err := os.ReadFile(sourcePath)
	if err != nil {
		t.Fatalf("failed to read source: %v", err)
	}
	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !bytes.Equal(source, out) {
		t.Error("output should be a byte for byte copy of the source when nothing was placed")
	}
}
