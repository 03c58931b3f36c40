package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider names for embedding and generation.
const (
	ProviderOpenAI    = "openai"
	ProviderLangchain = "langchain"
)

// Corpus sources.
const (
	SourceFiles  = "files"
	SourceBadger = "badger"
)

// Ranker backends.
const (
	RankerFlat  = "flat"
	RankerRedis = "redis"
)

// Config holds the platepick configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Cache      CacheConfig      `yaml:"cache"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CorpusConfig locates the restaurant corpus.
type CorpusConfig struct {
	Source         string `yaml:"source"` // files (default), badger
	AttributesPath string `yaml:"attributes_path"`
	VectorsPath    string `yaml:"vectors_path"`
	BadgerDir      string `yaml:"badger_dir"`
}

// RetrievalConfig holds hybrid retrieval settings.
type RetrievalConfig struct {
	SemanticPoolSize int    `yaml:"semantic_pool_size"`
	DefaultTopK      int    `yaml:"default_top_k"`
	Ranker           string `yaml:"ranker"` // flat (default), redis
	IndexName        string `yaml:"index_name"`
	IndexAlgorithm   string `yaml:"index_algorithm"` // HNSW (default), FLAT
	HNSWM            int    `yaml:"hnsw_m"`
	HNSWEFConstruct  int    `yaml:"hnsw_ef_construction"`
}

// DatabaseConfig holds Redis/Valkey connection settings used by the cache and the redis ranker.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds query encoder settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	QueryInstruction string `yaml:"query_instruction"`
}

// GenerationConfig holds LLM settings.
type GenerationConfig struct {
	Provider     string  `yaml:"provider"`
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	SystemPrompt string  `yaml:"system_prompt"` // empty keeps the built-in prompt
}

// CacheConfig controls the query embedding cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
}

// PipelineConfig bounds concurrent external calls.
type PipelineConfig struct {
	MaxInFlight int `yaml:"max_in_flight"`
}

// NeedsDatabase reports whether any configured component talks to Redis/Valkey.
func (c *Config) NeedsDatabase() bool {
	return c.Cache.Enabled || c.Retrieval.Ranker == RankerRedis
}

// Load reads configuration from a YAML file by environment name (local, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes data, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Corpus.Source == "" {
		c.Corpus.Source = SourceFiles
	}
	if c.Retrieval.SemanticPoolSize <= 0 {
		c.Retrieval.SemanticPoolSize = 5000
	}
	if c.Retrieval.DefaultTopK <= 0 {
		c.Retrieval.DefaultTopK = 5
	}
	if c.Retrieval.Ranker == "" {
		c.Retrieval.Ranker = RankerFlat
	}
	if c.Retrieval.IndexName == "" {
		c.Retrieval.IndexName = "platepick:restaurants"
	}
	if c.Retrieval.IndexAlgorithm == "" {
		c.Retrieval.IndexAlgorithm = "HNSW"
	}
	if c.Retrieval.HNSWM <= 0 {
		c.Retrieval.HNSWM = 16
	}
	if c.Retrieval.HNSWEFConstruct <= 0 {
		c.Retrieval.HNSWEFConstruct = 200
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOpenAI
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "BAAI/bge-small-en-v1.5"
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = ProviderOpenAI
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "llama-3.1-8b-instant"
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = 0.7
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 1024
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 30
	}
	if c.Pipeline.MaxInFlight <= 0 {
		c.Pipeline.MaxInFlight = 16
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Corpus.Source {
	case SourceFiles:
		if c.Corpus.AttributesPath == "" || c.Corpus.VectorsPath == "" {
			return fmt.Errorf("corpus.attributes_path and corpus.vectors_path are required for source %q", SourceFiles)
		}
	case SourceBadger:
		if c.Corpus.BadgerDir == "" {
			return fmt.Errorf("corpus.badger_dir is required for source %q", SourceBadger)
		}
	default:
		return fmt.Errorf("corpus.source must be %q or %q, got %q", SourceFiles, SourceBadger, c.Corpus.Source)
	}

	switch c.Retrieval.Ranker {
	case RankerFlat, RankerRedis:
	default:
		return fmt.Errorf("retrieval.ranker must be %q or %q, got %q", RankerFlat, RankerRedis, c.Retrieval.Ranker)
	}
	switch strings.ToUpper(c.Retrieval.IndexAlgorithm) {
	case "HNSW", "FLAT":
	default:
		return fmt.Errorf("retrieval.index_algorithm must be HNSW or FLAT, got %q", c.Retrieval.IndexAlgorithm)
	}

	if c.NeedsDatabase() && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required when the cache or the redis ranker is enabled")
	}

	if err := validateProvider("embedding", c.Embedding.Provider, c.Embedding.APIKey); err != nil {
		return err
	}
	if err := validateProvider("generation", c.Generation.Provider, c.Generation.APIKey); err != nil {
		return err
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be within [0, 2], got %g", c.Generation.Temperature)
	}
	return nil
}

// validateProvider rejects unknown providers and a remote provider without credentials.
// The langchain provider targets local OpenAI-compatible servers and needs no key.
func validateProvider(section, provider, apiKey string) error {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return fmt.Errorf("%s.api_key is required for provider %q", section, provider)
		}
	case ProviderLangchain:
	default:
		return fmt.Errorf("%s.provider must be %q or %q, got %q", section, ProviderOpenAI, ProviderLangchain, provider)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
