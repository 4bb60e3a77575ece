package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/cardreader/internal/backend/commandstructure"
	"golang.org/x/image/draw"
)

// DefaultMaxDimension keeps requests to the recognition service within its
// payload limits while leaving business card text legible.
const DefaultMaxDimension = 2000

// MaxDimensionCommand downscales images whose longest side exceeds a limit,
// preserving the aspect ratio. Smaller images pass through unchanged.
type MaxDimensionCommand struct {
	name         string
	maxDimension int
}

// NewMaxDimensionCommand creates the command from configuration parameters
func NewMaxDimensionCommand(params map[string]any) (commandstructure.Command, error) {
	maxDimension := commandstructure.GetIntParam(params, "maxDimension", DefaultMaxDimension)
	return NewMaxDimensionCommandWithParams(maxDimension)
}

// NewMaxDimensionCommandWithParams creates the command from a concrete limit
func NewMaxDimensionCommandWithParams(maxDimension int) (*MaxDimensionCommand, error) {
	if maxDimension <= 0 {
		return nil, fmt.Errorf("maxDimension must be positive, got %d", maxDimension)
	}
	return &MaxDimensionCommand{
		name:         "MaxDimensionCommand",
		maxDimension: maxDimension,
	}, nil
}

// Name returns the command name
func (c *MaxDimensionCommand) Name() string {
	return c.name
}

// GetMaxDimension returns the configured bound
func (c *MaxDimensionCommand) GetMaxDimension() int {
	return c.maxDimension
}

// Execute downscales the input if needed; scaled output is PNG
func (c *MaxDimensionCommand) Execute(imageData []byte) ([]byte, error) {
	img, err := decodeImage(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	scaledWidth, scaledHeight, scaled := computeBoundedDimensions(width, height, c.maxDimension)
	if !scaled {
		slog.Debug("MaxDimensionCommand: image within bounds; skipping",
			"width", width, "height", height, "max_dimension", c.maxDimension)
		return imageData, nil
	}

	slog.Debug("MaxDimensionCommand: downscaling image",
		"width", width,
		"height", height,
		"scaled_width", scaledWidth,
		"scaled_height", scaledHeight)

	dst := image.NewRGBA(image.Rect(0, 0, scaledWidth, scaledHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)

	out, err := encodePNG(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scaled PNG image: %w", err)
	}
	return out, nil
}

// computeBoundedDimensions returns the size after fitting the longest side
// into maxDimension. Integer math keeps the longest side exact; the shorter
// side is truncated but never drops below one pixel.
func computeBoundedDimensions(width, height, maxDimension int) (int, int, bool) {
	longest := max(width, height)
	if longest <= maxDimension {
		return width, height, false
	}
	scaledWidth := max(1, width*maxDimension/longest)
	scaledHeight := max(1, height*maxDimension/longest)
	return scaledWidth, scaledHeight, true
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("MaxDimensionCommand", NewMaxDimensionCommand); err != nil {
		panic(fmt.Sprintf("failed to register MaxDimensionCommand: %v", err))
	}
}
