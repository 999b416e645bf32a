package settings

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultTavilyBaseURL = "https://api.tavily.com"
)

// APISettings holds provider credentials and endpoints.
type APISettings struct {
	OpenAIAPIKey  string `yaml:"openai-api-key,omitempty"`
	OpenAIBaseURL string `yaml:"openai-base-url,omitempty"`
	TavilyAPIKey  string `yaml:"tavily-api-key,omitempty"`
	TavilyBaseURL string `yaml:"tavily-base-url,omitempty"`
}

func NewAPISettings() *APISettings {
	return &APISettings{
		OpenAIBaseURL: DefaultOpenAIBaseURL,
		TavilyBaseURL: DefaultTavilyBaseURL,
	}
}
