package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/cardreader/internal/backend/commandstructure"
)

const (
	orientationPortrait  = "portrait"
	orientationLandscape = "landscape"
)

// OrientationParams represents typed parameters for the orientation command
type OrientationParams struct {
	Orientation      string
	RotateWhenSquare bool
	Clockwise        bool
}

// NewOrientationParamsFromMap creates OrientationParams from a generic map.
// Business cards are printed landscape, so that is the default target.
func NewOrientationParamsFromMap(params map[string]any) (*OrientationParams, error) {
	orientation := commandstructure.GetStringParam(params, "orientation", orientationLandscape)
	if orientation != orientationPortrait && orientation != orientationLandscape {
		return nil, fmt.Errorf("invalid orientation: %s (must be 'portrait' or 'landscape')", orientation)
	}

	return &OrientationParams{
		Orientation:      orientation,
		RotateWhenSquare: commandstructure.GetBoolParam(params, "rotateWhenSquare", false),
		Clockwise:        commandstructure.GetBoolParam(params, "clockwise", true),
	}, nil
}

// OrientationCommand rotates photos taken in the wrong orientation by 90 degrees
type OrientationCommand struct {
	name   string
	params *OrientationParams
}

// NewOrientationCommand creates a new orientation command from configuration parameters
func NewOrientationCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewOrientationParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &OrientationCommand{
		name:   "OrientationCommand",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *OrientationCommand) Name() string {
	return c.name
}

// GetOrientation returns the configured orientation
func (c *OrientationCommand) GetOrientation() string {
	return c.params.Orientation
}

// GetParams returns the typed parameters
func (c *OrientationCommand) GetParams() *OrientationParams {
	return c.params
}

// Execute rotates the input when it does not match the target orientation; rotated output is PNG
func (c *OrientationCommand) Execute(imageData []byte) ([]byte, error) {
	img, err := decodeImage(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width == height {
		if !c.params.RotateWhenSquare {
			slog.Debug("OrientationCommand: image is square; no rotation performed")
			return imageData, nil
		}
	} else {
		isPortrait := height > width
		if isPortrait == (c.params.Orientation == orientationPortrait) {
			slog.Debug("OrientationCommand: already in target orientation",
				"width", width, "height", height, "orientation", c.params.Orientation)
			return imageData, nil
		}
	}

	slog.Debug("OrientationCommand: rotating image 90 degrees",
		"width", width, "height", height, "clockwise", c.params.Clockwise)

	out, err := encodePNG(rotate90(img, c.params.Clockwise))
	if err != nil {
		return nil, fmt.Errorf("failed to encode rotated PNG image: %w", err)
	}
	return out, nil
}

// rotate90 returns img rotated by a quarter turn
func rotate90(img image.Image, clockwise bool) *image.RGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	rotated := image.NewRGBA(image.Rect(0, 0, height, width))

	parallelFor(height, func(y int) {
		for x := 0; x < width; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			if clockwise {
				// (x,y) -> (height-1-y, x)
				rotated.Set(height-1-y, x, c)
			} else {
				// (x,y) -> (y, width-1-x)
				rotated.Set(y, width-1-x, c)
			}
		}
	})
	return rotated
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("OrientationCommand", NewOrientationCommand); err != nil {
		panic(fmt.Sprintf("failed to register OrientationCommand: %v", err))
	}
}
