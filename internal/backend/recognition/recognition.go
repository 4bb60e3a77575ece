package recognition

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Recognizer extracts the text printed on a card image (PNG bytes).
// Failures are reported through the outcome, never as a panic or error.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte) RecognitionOutcome
}

// Classifier splits recognized text into the card fields
type Classifier interface {
	Classify(ctx context.Context, text string) ClassificationOutcome
}

// EngineOptions configures locally running recognition engines
type EngineOptions struct {
	Languages []string
}

type EngineFactory func(opts EngineOptions) (Recognizer, error)

var (
	enginesMu sync.RWMutex
	engines   = make(map[string]EngineFactory)
)

// RegisterEngine makes a recognizer available by name. Engines register
// themselves from init functions.
func RegisterEngine(name string, factory EngineFactory) {
	enginesMu.Lock()
	defer enginesMu.Unlock()

	if name == "" || factory == nil {
		panic("recognition: engine name and factory must be set")
	}
	if _, exists := engines[name]; exists {
		panic(fmt.Sprintf("recognition: engine %q registered twice", name))
	}
	engines[name] = factory
}

// NewEngine creates the recognizer registered under name
func NewEngine(name string, opts EngineOptions) (Recognizer, error) {
	enginesMu.RLock()
	factory, ok := engines[name]
	enginesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("recognition engine %q is not available (registered: %v)", name, EngineNames())
	}
	engine, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("create recognition engine %q: %w", name, err)
	}
	return engine, nil
}

// EngineNames lists registered engines in sorted order
func EngineNames() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()

	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
