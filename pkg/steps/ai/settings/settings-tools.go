package settings

import "time"

// LoopSettings bounds a single dialogue run.
type LoopSettings struct {
	MaxIterations    int           `yaml:"max-iterations,omitempty"`
	MaxParallelTools int           `yaml:"max-parallel-tools,omitempty"`
	ToolTimeout      time.Duration `yaml:"tool-timeout,omitempty"`
}

func NewLoopSettings() *LoopSettings {
	return &LoopSettings{
		MaxIterations:    10,
		MaxParallelTools: 4,
		ToolTimeout:      60 * time.Second,
	}
}

type DownloadSettings struct {
	Dir                string        `yaml:"dir,omitempty"`
	Timeout            time.Duration `yaml:"timeout,omitempty"`
	MaxBytes           int64         `yaml:"max-bytes,omitempty"`
	AllowHTTP          bool          `yaml:"allow-http,omitempty"`
	AllowLocalNetworks bool          `yaml:"allow-local-networks,omitempty"`
}

func NewDownloadSettings() *DownloadSettings {
	return &DownloadSettings{
		Dir:       ".",
		Timeout:   15 * time.Second,
		MaxBytes:  50 << 20,
		AllowHTTP: true,
	}
}

type WikipediaSettings struct {
	Language string `yaml:"language,omitempty"`
	MaxDocs  int    `yaml:"max-docs,omitempty"`
	// BaseURL overrides https://<language>.wikipedia.org
	BaseURL string `yaml:"base-url,omitempty"`
	// MaxChars truncates each page extract
	MaxChars int `yaml:"max-chars,omitempty"`
}

func NewWikipediaSettings() *WikipediaSettings {
	return &WikipediaSettings{
		Language: "en",
		MaxDocs:  2,
		MaxChars: 4000,
	}
}

// SiteURL returns the wiki root for the configured language.
func (s *WikipediaSettings) SiteURL() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	lang := s.Language
	if lang == "" {
		lang = "en"
	}
	return "https://" + lang + ".wikipedia.org"
}

type SearchSettings struct {
	MaxResults int `yaml:"max-results,omitempty"`
}

func NewSearchSettings() *SearchSettings {
	return &SearchSettings{MaxResults: 3}
}

type YouTubeSettings struct {
	Languages []string `yaml:"languages,omitempty"`
	BaseURL   string   `yaml:"base-url,omitempty"`
}

func NewYouTubeSettings() *YouTubeSettings {
	return &YouTubeSettings{
		Languages: []string{"en"},
		BaseURL:   "https://www.youtube.com",
	}
}

type UploadSettings struct {
	Dir string `yaml:"dir,omitempty"`
}

func NewUploadSettings() *UploadSettings {
	return &UploadSettings{Dir: "uploads"}
}
