package database

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"time"
)

// StampUpload is an incoming stamp file before decoding
type StampUpload struct {
	Name string
	Data []byte
}

// StampVariantSummary reports how many images a variant holds
type StampVariantSummary struct {
	Variant string `json:"variant"`
	Count   int    `json:"count"`
}

// ValidVariant reports whether the variant name is one the library accepts
func ValidVariant(variant string) bool {
	for _, v := range StampVariants {
		if v == variant {
			return true
		}
	}
	return false
}

// StoreStampSet decodes the uploaded files and replaces the variant's stored
// library with them. Saving is replace-all: prior entries for the variant are
// cleared before the new set is written, so the stored set always mirrors the
// last upload exactly.
func StoreStampSet(variant string, uploads []StampUpload, db Repository) ([]StampImage, error) {
	if !ValidVariant(variant) {
		return nil, fmt.Errorf("unknown stamp variant %q", variant)
	}
	if len(uploads) == 0 {
		return nil, errors.New("no stamp files supplied")
	}

	now := time.Now()
	stamps := make([]*StampImage, 0, len(uploads))
	for position, upload := range uploads {
		cfg, err := png.DecodeConfig(bytes.NewReader(upload.Data))
		if err != nil {
			return nil, fmt.Errorf("file %q is not a decodable PNG: %w", upload.Name, err)
		}
		newULID, err := CalculateUUID(now)
		if err != nil {
			Logger.Error("Cannot generate ULID for stamp", "name", upload.Name, "error", err)
			return nil, err
		}
		stamps = append(stamps, &StampImage{
			ULID:      newULID,
			Variant:   variant,
			Position:  position,
			Name:      upload.Name,
			PNG:       upload.Data,
			Width:     cfg.Width,
			Height:    cfg.Height,
			CreatedAt: now,
		})
	}

	if err := db.ReplaceStamps(variant, stamps); err != nil {
		Logger.Error("Unable to write stamp set to database", "variant", variant, "error", err)
		return nil, err
	}

	stored := make([]StampImage, 0, len(stamps))
	for _, s := range stamps {
		stored = append(stored, *s)
	}
	Logger.Info("Stored stamp set", "variant", variant, "count", len(stored))
	return stored, nil
}

// FetchStampSet fetches the full stored library for a variant in position
// order. An empty variant is not an error, the library simply starts empty.
func FetchStampSet(variant string, db Repository) ([]StampImage, error) {
	if !ValidVariant(variant) {
		return nil, fmt.Errorf("unknown stamp variant %q", variant)
	}
	stamps, err := db.GetStamps(variant)
	if err != nil {
		Logger.Error("Unable to fetch stamp set", "variant", variant, "error", err)
		return nil, err
	}
	return stamps, nil
}

// FetchStamp fetches a single stamp by variant and library position
func FetchStamp(variant string, position int, db Repository) (StampImage, int, error) {
	if !ValidVariant(variant) {
		return StampImage{}, http.StatusBadRequest, fmt.Errorf("unknown stamp variant %q", variant)
	}
	stamp, err := db.GetStamp(variant, position)
	if err != nil {
		Logger.Error("Unable to fetch stamp", "variant", variant, "position", position, "error", err)
		return StampImage{}, http.StatusNotFound, err
	}
	return *stamp, http.StatusOK, nil
}
