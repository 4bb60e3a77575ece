package commandstructure

// Command is a single preprocessing step applied to an uploaded image before
// it is handed to the recognition engine. Implementations receive and return
// encoded image bytes.
type Command interface {
	Name() string
	Execute(imageData []byte) ([]byte, error)
}

// CommandFactory builds a command from its configuration parameters
type CommandFactory func(params map[string]any) (Command, error)

// CommandConfig names a registered command together with its parameters
type CommandConfig struct {
	Name   string
	Params map[string]any
}
