package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jo-hoe/cardreader/internal/backend/database"
)

var ErrNoJSONObject = errors.New("response contains no JSON object")

// extractJSONObject returns the text between the first '{' and the last '}'
func extractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// parseAnalyzed reads the card fields from a model answer that may wrap the
// JSON object in prose or code fences
func parseAnalyzed(raw string) (database.Analyzed, error) {
	object, ok := extractJSONObject(raw)
	if !ok {
		return database.Analyzed{}, ErrNoJSONObject
	}
	var analyzed database.Analyzed
	if err := json.Unmarshal([]byte(object), &analyzed); err != nil {
		return database.Analyzed{}, fmt.Errorf("parse classification json: %w", err)
	}
	return analyzed, nil
}
