package recognition

import (
	"strings"

	"github.com/jo-hoe/cardreader/internal/backend/database"
)

// OutcomeStatus tags the result of a call to a recognition service
type OutcomeStatus int

const (
	OutcomeOK OutcomeStatus = iota
	// OutcomeEmpty means the service answered but produced nothing usable
	OutcomeEmpty
	OutcomeFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RecognitionOutcome is the result of extracting text from an image
type RecognitionOutcome struct {
	Status OutcomeStatus
	Err    error
	text   string
}

// Recognized wraps recognized text; whitespace-only text is empty
func Recognized(text string) RecognitionOutcome {
	if strings.TrimSpace(text) == "" {
		return RecognitionOutcome{Status: OutcomeEmpty}
	}
	return RecognitionOutcome{Status: OutcomeOK, text: text}
}

func RecognitionFailed(err error) RecognitionOutcome {
	return RecognitionOutcome{Status: OutcomeFailed, Err: err}
}

// Text returns the recognized text, or "" unless the outcome is OK
func (o RecognitionOutcome) Text() string {
	if o.Status != OutcomeOK {
		return ""
	}
	return o.text
}

// ClassificationOutcome is the result of splitting text into card fields
type ClassificationOutcome struct {
	Status   OutcomeStatus
	Err      error
	analyzed database.Analyzed
}

func Classified(analyzed database.Analyzed) ClassificationOutcome {
	if analyzed.IsEmpty() {
		return ClassificationOutcome{Status: OutcomeEmpty}
	}
	return ClassificationOutcome{Status: OutcomeOK, analyzed: analyzed}
}

func ClassificationFailed(err error) ClassificationOutcome {
	return ClassificationOutcome{Status: OutcomeFailed, Err: err}
}

// Analyzed returns the classified fields; all fields are empty unless the
// outcome is OK
func (o ClassificationOutcome) Analyzed() database.Analyzed {
	if o.Status != OutcomeOK {
		return database.Analyzed{}
	}
	return o.analyzed
}
