package commands

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/jo-hoe/cardreader/internal/backend/commandstructure"
)

// GrayscaleCommand converts the image to 8 bit luminance and can optionally
// stretch the contrast so faint print on glossy cards reads better.
type GrayscaleCommand struct {
	name            string
	stretchContrast bool
}

// NewGrayscaleCommand creates the command from configuration parameters
func NewGrayscaleCommand(params map[string]any) (commandstructure.Command, error) {
	return &GrayscaleCommand{
		name:            "GrayscaleCommand",
		stretchContrast: commandstructure.GetBoolParam(params, "stretchContrast", false),
	}, nil
}

// Name returns the command name
func (c *GrayscaleCommand) Name() string {
	return c.name
}

// Execute converts the input to grayscale PNG
func (c *GrayscaleCommand) Execute(imageData []byte) ([]byte, error) {
	img, err := decodeImage(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	gray := toGray(img)
	if c.stretchContrast {
		lo, hi := lumaRange(gray)
		slog.Debug("GrayscaleCommand: stretching contrast", "min_luma", lo, "max_luma", hi)
		stretchLuma(gray, lo, hi)
	}

	out, err := encodePNG(gray)
	if err != nil {
		return nil, fmt.Errorf("failed to encode grayscale PNG image: %w", err)
	}
	return out, nil
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	gray := image.NewGray(image.Rect(0, 0, width, height))
	parallelFor(height, func(y int) {
		for x := 0; x < width; x++ {
			gray.SetGray(x, y, color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray))
		}
	})
	return gray
}

func lumaRange(gray *image.Gray) (uint8, uint8) {
	lo, hi := uint8(255), uint8(0)
	for _, v := range gray.Pix {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// stretchLuma maps [lo, hi] linearly onto [0, 255]; flat images are left alone
func stretchLuma(gray *image.Gray, lo, hi uint8) {
	if hi <= lo {
		return
	}
	span := float64(hi - lo)
	bounds := gray.Bounds()
	parallelFor(bounds.Dy(), func(y int) {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+bounds.Dx()]
		for i, v := range row {
			row[i] = uint8(float64(v-lo)*255.0/span + 0.5)
		}
	})
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("GrayscaleCommand", NewGrayscaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register GrayscaleCommand: %v", err))
	}
}
