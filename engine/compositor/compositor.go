// Package compositor repaints page surfaces. A surface holds no state of its
// own: every paint starts from the page's base raster and layers the page's
// placements over it in log order, optionally topped by one provisional
// preview placement under the pointer.
package compositor

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/drummonds/gosign/engine/placement"
)

// Library holds the decoded stamp images for each variant in library order
type Library map[string][]image.Image

// Paint redraws one page surface from scratch: the base image at the origin
// (fully overwriting prior pixels), each placement in log order, then the
// preview placement last so it shows on top. A placement whose variant has
// no stamp images is skipped rather than failing the whole repaint.
func Paint(base image.Image, library Library, placements []placement.Placement, preview *placement.Placement) *image.NRGBA {
	surface := imaging.Clone(base)

	for _, p := range placements {
		surface = drawStamp(surface, library, p)
	}
	if preview != nil {
		surface = drawStamp(surface, library, *preview)
	}

	return surface
}

// drawStamp blends one stamp onto the surface, centered on the placement's
// coordinates and scaled so its height equals the frozen HeightPx with the
// aspect ratio preserved
func drawStamp(surface *image.NRGBA, library Library, p placement.Placement) *image.NRGBA {
	stamps := library[p.Variant]
	idx, err := placement.SelectStamp(p.Variant, p.VariantIndex, len(stamps))
	if err != nil {
		return surface
	}
	if p.HeightPx <= 0 {
		return surface
	}

	// Height 0 would mean "keep aspect" to imaging, so pass it as the
	// fixed dimension and let the width follow
	resized := imaging.Resize(stamps[idx], 0, p.HeightPx, imaging.Lanczos)

	bounds := resized.Bounds()
	left := int(math.Round(p.X - float64(bounds.Dx())/2))
	top := int(math.Round(p.Y - float64(bounds.Dy())/2))

	return imaging.Overlay(surface, resized, image.Pt(left, top), 1.0)
}

// ToPNG encodes a painted surface for transport
func ToPNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeStamp turns stored stamp bytes back into a drawable image,
// transparency included
func DecodeStamp(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode stamp image: %w", err)
	}
	return img, nil
}
