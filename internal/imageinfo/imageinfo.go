// Package imageinfo reads basic facts about uploaded image bytes without
// converting or re-encoding them.
package imageinfo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/srwiley/oksvg"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const FormatSVG = "svg"

var ErrUnknownFormat = errors.New("unknown image format")

// Info describes an image. Width and Height are zero when the image carries
// no intrinsic size (e.g. an SVG with only a viewBox).
type Info struct {
	Format string
	Width  int
	Height int
}

// HasDimensions reports whether a pixel size is known.
func (i Info) HasDimensions() bool {
	return i.Width > 0 && i.Height > 0
}

func (i Info) String() string {
	if !i.HasDimensions() {
		return i.Format
	}
	return fmt.Sprintf("%s %d×%d", i.Format, i.Width, i.Height)
}

// Inspect identifies the format of data and reads its dimensions from the header.
func Inspect(data []byte) (Info, error) {
	if isSVGData(data) {
		return inspectSVG(data)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Info{}, ErrUnknownFormat
		}
		return Info{}, fmt.Errorf("failed to read image header: %w", err)
	}
	slog.Debug("imageinfo: decoded raster header",
		"format", format, "width", cfg.Width, "height", cfg.Height)
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

func inspectSVG(data []byte) (Info, error) {
	if w, h, ok := parseSvgExplicitSize(data); ok {
		return Info{Format: FormatSVG, Width: w, Height: h}, nil
	}

	// Without explicit width/height fall back to the viewBox reported by oksvg
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("failed to parse SVG: %w", err)
	}
	return Info{
		Format: FormatSVG,
		Width:  int(math.Round(icon.ViewBox.W)),
		Height: int(math.Round(icon.ViewBox.H)),
	}, nil
}
