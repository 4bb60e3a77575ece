package commands

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestNewOrientationCommand_Params(t *testing.T) {
	tests := []struct {
		name     string
		params   map[string]any
		expected string
	}{
		{"portrait", map[string]any{"orientation": "portrait"}, "portrait"},
		{"landscape", map[string]any{"orientation": "landscape"}, "landscape"},
		{"default is landscape", map[string]any{}, "landscape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, err := NewOrientationCommand(tt.params)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			orientationCmd, ok := command.(*OrientationCommand)
			if !ok {
				t.Fatal("Expected command to be *OrientationCommand")
			}
			if orientationCmd.GetOrientation() != tt.expected {
				t.Errorf("Expected orientation '%s', got '%s'", tt.expected, orientationCmd.GetOrientation())
			}
			if !orientationCmd.GetParams().Clockwise {
				t.Error("Expected clockwise rotation by default")
			}
		})
	}

	if _, err := NewOrientationCommand(map[string]any{"orientation": "diagonal"}); err == nil {
		t.Error("Expected error for invalid orientation")
	}
}

func TestOrientationCommand_AlreadyLandscape(t *testing.T) {
	data := makePNG(t, 6, 3)
	command, _ := NewOrientationCommand(map[string]any{})
	out, err := command.Execute(data)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("Expected landscape input to be returned unchanged")
	}
}

func TestOrientationCommand_Square_NoRotateByDefault(t *testing.T) {
	data := makePNG(t, 3, 3)
	command, _ := NewOrientationCommand(map[string]any{})
	out, err := command.Execute(data)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("Expected square input to be returned unchanged")
	}
}

func TestOrientationCommand_RotatesPortraitClockwise(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 2; x++ {
			src.SetRGBA(x, y, color.RGBA{128, 128, 128, 255})
		}
	}
	red := color.RGBA{255, 0, 0, 255}
	src.SetRGBA(0, 0, red)
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode: %v", err)
	}

	command, _ := NewOrientationCommand(map[string]any{"orientation": "landscape"})
	out, err := command.Execute(buf.Bytes())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Fatalf("Expected 3x2 after rotation, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
	// clockwise: (0,0) -> (height-1, 0) = (2, 0)
	r, g, b, _ := img.At(2, 0).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("Expected red at (2,0), got %v", img.At(2, 0))
	}
}

func TestRotate90_CounterClockwise(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 3))
	blue := color.RGBA{0, 0, 255, 255}
	src.SetRGBA(0, 0, blue)

	rotated := rotate90(src, false)
	if rotated.Bounds().Dx() != 3 || rotated.Bounds().Dy() != 2 {
		t.Fatalf("Expected 3x2, got %v", rotated.Bounds())
	}
	// counterclockwise: (0,0) -> (0, width-1) = (0, 1)
	if rotated.RGBAAt(0, 1) != blue {
		t.Errorf("Expected blue at (0,1), got %v", rotated.RGBAAt(0, 1))
	}
}

func TestOrientationCommand_AcceptsJPEGAndGIF(t *testing.T) {
	command, _ := NewOrientationCommand(map[string]any{"orientation": "landscape"})

	landscape := makeJPEG(t, 8, 4)
	out, err := command.Execute(landscape)
	if err != nil {
		t.Fatalf("Execute failed on landscape JPEG: %v", err)
	}
	if !bytes.Equal(out, landscape) {
		t.Error("Expected landscape JPEG to be returned unchanged")
	}

	out, err = command.Execute(makeGIF(t, 4, 8))
	if err != nil {
		t.Fatalf("Execute failed on portrait GIF: %v", err)
	}
	b := decodeBounds(t, out)
	if b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("Expected 8x4 PNG after rotation, got %dx%d", b.Dx(), b.Dy())
	}
}
