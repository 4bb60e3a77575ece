//go:build tesseract

package tesseract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"

	"github.com/jo-hoe/cardreader/internal/backend/recognition"
)

const EngineName = "tesseract"

// DefaultLanguages covers the latin and traditional chinese text found on
// most cards
var DefaultLanguages = []string{"eng", "chi_tra"}

func init() {
	recognition.RegisterEngine(EngineName, func(opts recognition.EngineOptions) (recognition.Recognizer, error) {
		return NewEngine(opts.Languages), nil
	})
}

type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

func NewEngine(languages []string) *Engine {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &Engine{
		languages:     languages,
		clientFactory: gosseract.NewClient,
	}
}

func (e *Engine) Recognize(ctx context.Context, png []byte) recognition.RecognitionOutcome {
	if err := ctx.Err(); err != nil {
		return recognition.RecognitionFailed(err)
	}

	text, err := e.recognize(png)
	if err != nil {
		slog.Error("tesseract recognition failed", "languages", e.languages, "error", err)
		return recognition.RecognitionFailed(err)
	}
	return recognition.Recognized(text)
}

func (e *Engine) recognize(png []byte) (string, error) {
	client := e.clientFactory()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
