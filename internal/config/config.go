package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "America/Sao_Paulo"
	configPathEnv   = "AUDITORIUM_CONFIG"
	githubTokenEnv  = "GITHUB_TOKEN"
	githubRepoEnv   = "GITHUB_REPO"
	githubPathEnv   = "GITHUB_FILEPATH"
	githubBranchEnv = "GITHUB_BRANCH"
	geminiKeyEnv    = "GEMINI_API_KEY"
	openAIKeyEnv    = "OPENAI_API_KEY"
	logLevelEnv     = "LOG_LEVEL"

	BackendGitHub = "github"
	BackendSQLite = "sqlite"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultGeminiModel    = "gemini-2.5-flash-lite"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
)

// ErrMissingConfig marks configuration that must be present before serving.
var ErrMissingConfig = errors.New("missing required configuration")

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Model     ModelConfig     `yaml:"model"`
	Log       LogConfig       `yaml:"log"`
	Advisor   AdvisorConfig   `yaml:"advisor"`
	Reference ReferenceConfig `yaml:"reference"`
	Language  LanguageConfig  `yaml:"language"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig describes the web surface.
type ServerConfig struct {
	Addr            string         `yaml:"addr"`
	Timezone        string         `yaml:"timezone"`
	ShutdownTimeout time.Duration  `yaml:"shutdownTimeout"`
	location        *time.Location `yaml:"-"`
}

// Location resolves the timezone used for form defaults and timestamp parsing.
func (s ServerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ModelConfig points at the classifier artifact.
type ModelConfig struct {
	FileID      string        `yaml:"fileId"`
	CachePath   string        `yaml:"cachePath"`
	DownloadURL string        `yaml:"downloadUrl"`
	DriveAPIKey string        `yaml:"driveApiKey"`
	Timeout     time.Duration `yaml:"timeout"`
	Progress    bool          `yaml:"progress"`
}

// LogConfig describes where submissions are appended.
type LogConfig struct {
	Backend         string        `yaml:"backend"`
	Repository      string        `yaml:"repository"`
	Path            string        `yaml:"path"`
	Branch          string        `yaml:"branch"`
	Token           string        `yaml:"token"`
	BaseURL         string        `yaml:"baseUrl"`
	SQLitePath      string        `yaml:"sqlitePath"`
	Timeout         time.Duration `yaml:"timeout"`
	ConflictRetries int           `yaml:"conflictRetries"`
}

// AdvisorConfig defines how to contact the generative provider.
type AdvisorConfig struct {
	Provider     string        `yaml:"provider"`
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Publication  string        `yaml:"publication"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ReferenceConfig controls the optional comparison dataset.
type ReferenceConfig struct {
	DatasetPath string  `yaml:"datasetPath"`
	MinScore    float64 `yaml:"minScore"`
	Limit       int     `yaml:"limit"`
}

// LanguageConfig controls headline language detection.
type LanguageConfig struct {
	Enabled   *bool    `yaml:"enabled"`
	Expected  string   `yaml:"expected"`
	Languages []string `yaml:"languages"`
}

// IsEnabled reports whether detection runs; it is on unless set to false.
func (l LanguageConfig) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An empty path falls back to AUDITORIUM_CONFIG, then to defaults only.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.Advisor.Provider = strings.ToLower(strings.TrimSpace(cfg.Advisor.Provider))
	cfg.applyEnvOverrides()
	cfg.resolveAdvisor()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports every missing required setting for the selected backends.
func (c Config) Validate() error {
	var missing []string

	switch c.Log.Backend {
	case BackendGitHub:
		if c.Log.Token == "" {
			missing = append(missing, "log.token ("+githubTokenEnv+")")
		}
		if c.Log.Repository == "" {
			missing = append(missing, "log.repository ("+githubRepoEnv+")")
		}
		if c.Log.Path == "" {
			missing = append(missing, "log.path ("+githubPathEnv+")")
		}
	case BackendSQLite:
		if c.Log.SQLitePath == "" {
			missing = append(missing, "log.sqlitePath")
		}
	default:
		return fmt.Errorf("config: unknown log backend %q", c.Log.Backend)
	}

	switch c.Advisor.Provider {
	case ProviderGemini:
		if c.Advisor.APIKey == "" {
			missing = append(missing, "advisor.apiKey ("+geminiKeyEnv+")")
		}
	case ProviderOpenAI:
		if c.Advisor.APIKey == "" {
			missing = append(missing, "advisor.apiKey ("+openAIKeyEnv+")")
		}
	default:
		return fmt.Errorf("config: unknown advisor provider %q", c.Advisor.Provider)
	}

	if c.Model.FileID == "" && c.Model.CachePath == "" {
		missing = append(missing, "model.fileId")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(githubTokenEnv); v != "" {
		c.Log.Token = v
	}
	if v := os.Getenv(githubRepoEnv); v != "" {
		c.Log.Repository = v
	}
	if v := os.Getenv(githubPathEnv); v != "" {
		c.Log.Path = v
	}
	if v := os.Getenv(githubBranchEnv); v != "" {
		c.Log.Branch = v
	}

	switch c.Advisor.Provider {
	case ProviderGemini:
		if v := os.Getenv(geminiKeyEnv); v != "" {
			c.Advisor.APIKey = v
		}
	case ProviderOpenAI:
		if v := os.Getenv(openAIKeyEnv); v != "" {
			c.Advisor.APIKey = v
		}
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) resolveAdvisor() {
	switch c.Advisor.Provider {
	case ProviderGemini:
		if c.Advisor.Model == "" {
			c.Advisor.Model = defaultGeminiModel
		}
	case ProviderOpenAI:
		if c.Advisor.Model == "" {
			c.Advisor.Model = defaultOpenAIModel
		}
		if c.Advisor.Endpoint == "" {
			c.Advisor.Endpoint = defaultOpenAIEndpoint
		}
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Server.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("config: unknown timezone %s: %w", tz, err)
	}
	c.Server.location = loc
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.Timezone != "" {
		base.Server.Timezone = override.Server.Timezone
	}
	if override.Server.ShutdownTimeout > 0 {
		base.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}

	if override.Model.FileID != "" {
		base.Model.FileID = override.Model.FileID
	}
	if override.Model.CachePath != "" {
		base.Model.CachePath = override.Model.CachePath
	}
	if override.Model.DownloadURL != "" {
		base.Model.DownloadURL = override.Model.DownloadURL
	}
	if override.Model.DriveAPIKey != "" {
		base.Model.DriveAPIKey = override.Model.DriveAPIKey
	}
	if override.Model.Timeout > 0 {
		base.Model.Timeout = override.Model.Timeout
	}
	base.Model.Progress = base.Model.Progress || override.Model.Progress

	if override.Log.Backend != "" {
		base.Log.Backend = override.Log.Backend
	}
	if override.Log.Repository != "" {
		base.Log.Repository = override.Log.Repository
	}
	if override.Log.Path != "" {
		base.Log.Path = override.Log.Path
	}
	if override.Log.Branch != "" {
		base.Log.Branch = override.Log.Branch
	}
	if override.Log.Token != "" {
		base.Log.Token = override.Log.Token
	}
	if override.Log.BaseURL != "" {
		base.Log.BaseURL = override.Log.BaseURL
	}
	if override.Log.SQLitePath != "" {
		base.Log.SQLitePath = override.Log.SQLitePath
	}
	if override.Log.Timeout > 0 {
		base.Log.Timeout = override.Log.Timeout
	}
	if override.Log.ConflictRetries > 0 {
		base.Log.ConflictRetries = override.Log.ConflictRetries
	}

	if override.Advisor.Provider != "" {
		base.Advisor.Provider = override.Advisor.Provider
	}
	if override.Advisor.Endpoint != "" {
		base.Advisor.Endpoint = override.Advisor.Endpoint
	}
	if override.Advisor.Model != "" {
		base.Advisor.Model = override.Advisor.Model
	}
	if override.Advisor.APIKey != "" {
		base.Advisor.APIKey = override.Advisor.APIKey
	}
	if override.Advisor.SystemPrompt != "" {
		base.Advisor.SystemPrompt = override.Advisor.SystemPrompt
	}
	if override.Advisor.Publication != "" {
		base.Advisor.Publication = override.Advisor.Publication
	}
	if override.Advisor.Timeout > 0 {
		base.Advisor.Timeout = override.Advisor.Timeout
	}

	if override.Reference.DatasetPath != "" {
		base.Reference.DatasetPath = override.Reference.DatasetPath
	}
	if override.Reference.MinScore > 0 {
		base.Reference.MinScore = override.Reference.MinScore
	}
	if override.Reference.Limit > 0 {
		base.Reference.Limit = override.Reference.Limit
	}

	if override.Language.Enabled != nil {
		base.Language.Enabled = override.Language.Enabled
	}
	if override.Language.Expected != "" {
		base.Language.Expected = override.Language.Expected
	}
	if len(override.Language.Languages) > 0 {
		base.Language.Languages = override.Language.Languages
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Addr:            ":8080",
			Timezone:        defaultTimezone,
			ShutdownTimeout: 10 * time.Second,
		},
		Model: ModelConfig{
			FileID:      "1PRruXA-oB_tR-dFG-o2_Oad8heHO-unz",
			CachePath:   "modelo_classificacao_v2.json",
			DownloadURL: "https://drive.google.com/uc",
			Timeout:     5 * time.Minute,
		},
		Log: LogConfig{
			Backend: BackendGitHub,
			Branch:  "main",
			Timeout: 15 * time.Second,
		},
		Advisor: AdvisorConfig{
			Provider:    ProviderGemini,
			Publication: "G1",
			Timeout:     30 * time.Second,
		},
		Reference: ReferenceConfig{
			DatasetPath: "bd_modelpred.csv",
			MinScore:    0.80,
			Limit:       3,
		},
		Language: LanguageConfig{
			Expected:  "portuguese",
			Languages: []string{"portuguese", "english", "spanish"},
		},
	}
}
