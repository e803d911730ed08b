package placement

import "fmt"

// SelectStamp maps a placement's variant index onto a stamp library position.
// With K images in the variant's library the n-th placement (0-indexed) uses
// image n mod K, so successive placements cycle through every source image.
// The library size must be positive, a variant with no images cannot be
// placed.
func SelectStamp(variant string, index, librarySize int) (int, error) {
	if librarySize <= 0 {
		return 0, fmt.Errorf("variant %q has no stamp images", variant)
	}
	if index < 0 {
		return 0, fmt.Errorf("negative placement index %d for variant %q", index, variant)
	}
	return index % librarySize, nil
}
