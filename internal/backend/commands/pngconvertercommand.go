package commands

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/cardreader/internal/backend/commandstructure"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// PngConverterCommand decodes any supported raster format and re-encodes it
// as PNG. Every later command in the pipeline expects PNG input.
type PngConverterCommand struct {
	name string
}

// NewPngConverterCommand creates a PNG converter; it takes no parameters
func NewPngConverterCommand(params map[string]any) (commandstructure.Command, error) {
	return NewPngConverterCommandDirect(), nil
}

// NewPngConverterCommandDirect creates a PNG converter without going through the registry
func NewPngConverterCommandDirect() *PngConverterCommand {
	return &PngConverterCommand{name: "PngConverterCommand"}
}

// Name returns the command name
func (c *PngConverterCommand) Name() string {
	return c.name
}

// Execute converts the input to PNG, passing PNG input through untouched
func (c *PngConverterCommand) Execute(imageData []byte) ([]byte, error) {
	if hasCorrectPngSignature(imageData) {
		slog.Debug("PngConverterCommand: PNG detected; returning original bytes")
		return imageData, nil
	}

	img, currentFormat, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	slog.Debug("PngConverterCommand: decoded raster image",
		"current_format", currentFormat,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	out, err := encodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}
	return out, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("PngConverterCommand", NewPngConverterCommand); err != nil {
		panic(fmt.Sprintf("failed to register PngConverterCommand: %v", err))
	}
}
