package engine

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/drummonds/gosign/database"
	"github.com/drummonds/gosign/engine/compositor"
	"github.com/labstack/echo/v4"
)

// stampInfo is the metadata shape for stored stamps, the PNG bytes stay
// behind the image route
type stampInfo struct {
	ULID      string    `json:"ulid"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"createdAt"`
}

// GetStampVariants returns the per-variant stamp counts
// @Summary Get stamp variants
// @Description Retrieve the stamp variants with how many images each one stores
// @Tags Stamps
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Variants with counts"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /stamps [get]
func (serverHandler *ServerHandler) GetStampVariants(c echo.Context) error {
	variants, err := serverHandler.DB.GetStampVariants()
	if err != nil {
		Logger.Error("Failed to get stamp variants", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve stamp variants",
		})
	}
	if variants == nil {
		variants = []database.StampVariantSummary{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"variants": variants,
		"count":    len(variants),
	})
}

// GetStampSet returns the stored stamps of one variant
// @Summary Get a variant's stamp set
// @Description Retrieve the stored stamp metadata for a variant in round-robin order. An empty set is a valid, usable answer.
// @Tags Stamps
// @Accept json
// @Produce json
// @Param variant path string true "Stamp variant (signature or initial)"
// @Success 200 {object} map[string]interface{} "Stamps in position order"
// @Failure 400 {object} map[string]interface{} "Unknown variant"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /stamps/{variant} [get]
func (serverHandler *ServerHandler) GetStampSet(c echo.Context) error {
	variant := c.Param("variant")
	if !database.ValidVariant(variant) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("Unknown stamp variant %q", variant),
		})
	}
	stamps, err := database.FetchStampSet(variant, serverHandler.DB)
	if err != nil {
		Logger.Error("Failed to fetch stamp set", "variant", variant, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve stamp set",
		})
	}
	infos := make([]stampInfo, 0, len(stamps))
	for _, stamp := range stamps {
		infos = append(infos, stampInfo{
			ULID:      stamp.ULID.String(),
			Name:      stamp.Name,
			Position:  stamp.Position,
			Width:     stamp.Width,
			Height:    stamp.Height,
			CreatedAt: stamp.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"variant": variant,
		"stamps":  infos,
		"count":   len(infos),
	})
}

// GetStampImage returns one stored stamp as raw PNG
// @Summary Get a stamp image
// @Description Retrieve the raw PNG bytes of one stamp, transparency intact
// @Tags Stamps
// @Produce png
// @Param variant path string true "Stamp variant"
// @Param position path int true "Round-robin position"
// @Success 200 {file} binary "The stamp PNG"
// @Failure 400 {object} map[string]interface{} "Unknown variant or bad position"
// @Failure 404 {object} map[string]interface{} "No stamp at that position"
// @Router /stamps/{variant}/{position}/image [get]
func (serverHandler *ServerHandler) GetStampImage(c echo.Context) error {
	variant := c.Param("variant")
	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid stamp position",
		})
	}
	stamp, httpStatus, err := database.FetchStamp(variant, position, serverHandler.DB)
	if err != nil {
		return c.JSON(httpStatus, map[string]interface{}{
			"error": err.Error(),
		})
	}
	return c.Blob(http.StatusOK, "image/png", stamp.PNG)
}

// GetStampThumbnail returns a stamp scaled down for the library grid
// @Summary Get a stamp thumbnail
// @Description Retrieve a stamp scaled to fit 240x120 for the stamps page grid
// @Tags Stamps
// @Produce png
// @Param variant path string true "Stamp variant"
// @Param position path int true "Round-robin position"
// @Success 200 {file} binary "Thumbnail PNG"
// @Failure 404 {object} map[string]interface{} "No stamp at that position"
// @Router /stamps/{variant}/{position}/thumbnail [get]
func (serverHandler *ServerHandler) GetStampThumbnail(c echo.Context) error {
	variant := c.Param("variant")
	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid stamp position",
		})
	}
	stamp, httpStatus, err := database.FetchStamp(variant, position, serverHandler.DB)
	if err != nil {
		return c.JSON(httpStatus, map[string]interface{}{
			"error": err.Error(),
		})
	}
	img, err := compositor.DecodeStamp(stamp.PNG)
	if err != nil {
		Logger.Error("Failed to decode stored stamp", "variant", variant, "position", position, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to decode stamp image",
		})
	}
	thumb := imaging.Fit(img, 240, 120, imaging.Lanczos)
	data, err := compositor.ToPNG(thumb)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to encode thumbnail",
		})
	}
	return c.Blob(http.StatusOK, "image/png", data)
}

// ReplaceStampSet replaces a variant's whole stamp library with the upload
// @Summary Replace a variant's stamp set
// @Description Upload one or more transparent PNGs, replacing everything previously stored for the variant. Saving is replace-all, the stored set always mirrors the last upload.
// @Tags Stamps
// @Accept multipart/form-data
// @Produce json
// @Param variant path string true "Stamp variant (signature or initial)"
// @Param files formData file true "PNG files in round-robin order"
// @Success 200 {object} map[string]interface{} "Stored count"
// @Failure 400 {object} map[string]interface{} "Unknown variant, empty upload or non-PNG file"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /stamps/{variant} [put]
func (serverHandler *ServerHandler) ReplaceStampSet(c echo.Context) error {
	variant := c.Param("variant")
	if !database.ValidVariant(variant) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("Unknown stamp variant %q", variant),
		})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid multipart upload",
		})
	}
	files := form.File["files"]
	if len(files) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "No files found in upload",
		})
	}

	uploads := make([]database.StampUpload, 0, len(files))
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			Logger.Error("Unable to open uploaded stamp", "name", fileHeader.Filename, "error", err)
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": fmt.Sprintf("Unable to read %q", fileHeader.Filename),
			})
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": fmt.Sprintf("Unable to read %q", fileHeader.Filename),
			})
		}
		uploads = append(uploads, database.StampUpload{Name: fileHeader.Filename, Data: data})
	}

	stored, err := database.StoreStampSet(variant, uploads, serverHandler.DB)
	if err != nil {
		Logger.Error("Failed to store stamp set", "variant", variant, "error", err)
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := serverHandler.Stamps.Reload(serverHandler.DB); err != nil {
		Logger.Error("Failed to reload stamp library", "error", err)
	}

	Logger.Info("Stamp set replaced", "variant", variant, "count", len(stored))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"variant": variant,
		"count":   len(stored),
	})
}

// DeleteStampSet clears a variant's stored stamps
// @Summary Delete a variant's stamp set
// @Description Remove every stored stamp of the variant
// @Tags Stamps
// @Accept json
// @Produce json
// @Param variant path string true "Stamp variant"
// @Success 200 {object} map[string]interface{} "Deleted count"
// @Failure 400 {object} map[string]interface{} "Unknown variant"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /stamps/{variant} [delete]
func (serverHandler *ServerHandler) DeleteStampSet(c echo.Context) error {
	variant := c.Param("variant")
	if !database.ValidVariant(variant) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("Unknown stamp variant %q", variant),
		})
	}
	deleted, err := serverHandler.DB.DeleteStamps(variant)
	if err != nil {
		Logger.Error("Failed to delete stamp set", "variant", variant, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to delete stamp set",
		})
	}
	if err := serverHandler.Stamps.Reload(serverHandler.DB); err != nil {
		Logger.Error("Failed to reload stamp library", "error", err)
	}
	Logger.Info("Stamp set deleted", "variant", variant, "count", deleted)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"variant": variant,
		"deleted": deleted,
	})
}
