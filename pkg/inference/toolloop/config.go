package toolloop

// LoopConfig configures the dialogue loop.
type LoopConfig struct {
	// MaxIterations caps the number of model calls within one Run.
	MaxIterations int
	// SystemPrompt is sent ahead of the history unless the history already
	// starts with a system message.
	SystemPrompt string
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxIterations: 10,
	}
}

func (c LoopConfig) WithMaxIterations(maxIterations int) LoopConfig {
	c.MaxIterations = maxIterations
	return c
}

func (c LoopConfig) WithSystemPrompt(prompt string) LoopConfig {
	c.SystemPrompt = prompt
	return c
}
