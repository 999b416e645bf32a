package tools

import "time"

// ToolConfig controls how tool calls are executed.
type ToolConfig struct {
	MaxParallelTools int           `json:"max_parallel_tools" yaml:"max_parallel_tools"`
	ExecutionTimeout time.Duration `json:"execution_timeout" yaml:"execution_timeout"`
}

// DefaultToolConfig returns a sensible default configuration
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		MaxParallelTools: 4,
		ExecutionTimeout: 60 * time.Second,
	}
}

func (tc ToolConfig) WithMaxParallelTools(maxParallel int) ToolConfig {
	tc.MaxParallelTools = maxParallel
	return tc
}

func (tc ToolConfig) WithExecutionTimeout(timeout time.Duration) ToolConfig {
	tc.ExecutionTimeout = timeout
	return tc
}

func (tc ToolConfig) maxParallel() int {
	if tc.MaxParallelTools <= 1 {
		return 1
	}
	return tc.MaxParallelTools
}
