package pdfexport

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/types"

	"github.com/drummonds/gosign/engine/placement"
	"github.com/drummonds/gosign/engine/pdfrenderer"
)

// OverlayExporter stamps the original PDF instead of rebuilding it from the
// rasterized canvases, so text stays selectable and vector content keeps its
// quality. Placements are recorded in canvas pixels at the fixed render DPI,
// which maps back to PDF points at 72/DPI.
type OverlayExporter struct{}

var _ Exporter = (*OverlayExporter)(nil)

func (e *OverlayExporter) Export(doc Document, outPath string) error {
	ctx, err := api.ReadContextFile(doc.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to read source PDF: %w", err)
	}
	pageDims, err := ctx.PageDims()
	if err != nil {
		return fmt.Errorf("failed to read page dimensions: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "gosign-overlay")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	stampPaths := make(map[string][]string, len(doc.Stamps))
	for variant, stamps := range doc.Stamps {
		paths := make([]string, len(stamps))
		for i, stamp := range stamps {
			path := filepath.Join(tempDir, fmt.Sprintf("%s-%d.png", variant, i))
			if err := os.WriteFile(path, stamp.PNG, 0644); err != nil {
				return fmt.Errorf("failed to write stamp image: %w", err)
			}
			paths[i] = path
		}
		stampPaths[variant] = paths
	}

	pxToPt := 72.0 / float64(pdfrenderer.RenderDPI)

	watermarks := map[int][]*model.Watermark{}
	for _, p := range doc.Placements {
		if p.PageIndex < 0 || p.PageIndex >= len(pageDims) {
			continue
		}
		stamps := doc.Stamps[p.Variant]
		idx, err := placement.SelectStamp(p.Variant, p.VariantIndex, len(stamps))
		if err != nil {
			continue
		}
		stamp := stamps[idx]
		if stamp.Height <= 0 {
			continue
		}

		// Watermarks anchor at the page center with y growing upwards,
		// placements at the canvas top left with y growing downwards.
		dim := pageDims[p.PageIndex]
		offX := p.X*pxToPt - dim.Width/2
		offY := dim.Height/2 - p.Y*pxToPt
		factor := float64(p.HeightPx) * pxToPt / float64(stamp.Height)

		desc := fmt.Sprintf("pos:c, off:%.2f %.2f, scalefactor:%.4f abs, rot:0, opacity:1", offX, offY, factor)
		wm, err := api.ImageWatermark(stampPaths[p.Variant][idx], desc, true, false, types.POINTS)
		if err != nil {
			return fmt.Errorf("failed to build stamp watermark: %w", err)
		}
		page := p.PageIndex + 1
		watermarks[page] = append(watermarks[page], wm)
	}

	if len(watermarks) == 0 {
		data, err := os.ReadFile(doc.SourcePath)
		if err != nil {
			return fmt.Errorf("failed to read source PDF: %w", err)
		}
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write signed PDF: %w", err)
		}
		return nil
	}

	if err := api.AddWatermarksMapFile(doc.SourcePath, outPath, watermarks, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("failed to write signed PDF: %w", err)
	}
	return nil
}
