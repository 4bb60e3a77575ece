package gemini

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jo-hoe/cardreader/internal/backend/database"
	"github.com/jo-hoe/cardreader/internal/backend/recognition"
	"github.com/jo-hoe/cardreader/internal/backend/resilience"
)

const (
	operationRecognize = "gemini.recognize"
	operationClassify  = "gemini.classify"
)

// Client talks to the Gemini generateContent REST endpoint. It serves both as
// recognizer (image to text) and classifier (text to card fields).
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

var (
	_ recognition.Recognizer = (*Client)(nil)
	_ recognition.Classifier = (*Client)(nil)
)

func New(cfg Config) *Client {
	cfg = cfg.WithDefaults()
	if cfg.APIKey == "" {
		slog.Warn("gemini api key is not configured, recognition requests will be rejected")
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   resilience.NewExecutor(cfg.Resilience, classifyError),
	}
}

func (c *Client) Recognize(ctx context.Context, png []byte) recognition.RecognitionOutcome {
	request := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: recognizePrompt},
				{InlineData: &inlineData{
					MimeType: "image/png",
					Data:     base64.StdEncoding.EncodeToString(png),
				}},
			},
		}},
	}

	text, err := c.generateContent(ctx, operationRecognize, request)
	if err != nil {
		slog.Error("gemini recognition failed", "model", c.model, "error", err)
		return recognition.RecognitionFailed(err)
	}
	outcome := recognition.Recognized(text)
	slog.Debug("gemini recognition finished", "status", outcome.Status.String(), "length", len(text))
	return outcome
}

func (c *Client) Classify(ctx context.Context, text string) recognition.ClassificationOutcome {
	if strings.TrimSpace(text) == "" {
		return recognition.Classified(database.Analyzed{})
	}

	request := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: buildClassifyPrompt(text)}},
		}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}

	answer, err := c.generateContent(ctx, operationClassify, request)
	if err != nil {
		slog.Error("gemini classification failed", "model", c.model, "error", err)
		return recognition.ClassificationFailed(err)
	}

	analyzed, err := parseAnalyzed(answer)
	if err != nil {
		slog.Warn("gemini classification answer unusable", "error", err, "answer", answer)
		return recognition.ClassificationFailed(err)
	}
	return recognition.Classified(analyzed)
}
