package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// NLP configuration
	NLP NLPConfig `mapstructure:"nlp"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Vector store configuration
	Vector VectorConfig `mapstructure:"vector"`

	// Graph store configuration
	Graph GraphConfig `mapstructure:"graph"`

	// Web search configuration
	Web WebConfig `mapstructure:"web"`

	// Rerank configuration
	Rerank RerankConfig `mapstructure:"rerank"`

	// Orchestrator configuration
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// NLPConfig holds NLP configuration
type NLPConfig struct {
	// Models is a map of model configurations (e.g. "default", "router", "answer")
	Models map[string]NLPModelConfig `mapstructure:"models"`

	// RouterRules defines which model serves which usage
	RouterRules []RouterRule `mapstructure:"router_rules"`

	// Retry configures retries of transient LLM errors
	Retry RetryConfig `mapstructure:"retry"`
}

// NLPModelConfig holds configuration for a specific model
type NLPModelConfig struct {
	Provider    string  `mapstructure:"provider"` // openai (any OpenAI-compatible endpoint)
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// RouterRule defines a rule for routing requests
type RouterRule struct {
	Usage    string `mapstructure:"usage"`    // Usage tag to match (router, answer, chitchat...)
	Provider string `mapstructure:"provider"` // Model key to use
	Fallback string `mapstructure:"fallback"` // Fallback model key
}

// RetryConfig holds LLM retry settings
type RetryConfig struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"` // openai
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	CacheSize int    `mapstructure:"cache_size"`
}

// VectorConfig holds vector store configuration
type VectorConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Provider    string `mapstructure:"provider"` // milvus, badger
	Address     string `mapstructure:"address"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Collection  string `mapstructure:"collection"`
	TextField   string `mapstructure:"text_field"`
	VectorField string `mapstructure:"vector_field"`
	Metric      string `mapstructure:"metric"` // COSINE, IP, L2
	Path        string `mapstructure:"path"`   // badger directory
	// OverFetchFactor multiplies top_k for the initial similarity search before reranking
	OverFetchFactor int `mapstructure:"over_fetch_factor"`
}

// GraphConfig holds graph store configuration
type GraphConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	MaxRows  int    `mapstructure:"max_rows"`
}

// WebConfig holds web search configuration
type WebConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Provider   string        `mapstructure:"provider"` // duckduckgo, serper, bing
	Endpoint   string        `mapstructure:"endpoint"`
	APIKey     string        `mapstructure:"api_key"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// RerankConfig holds relevance scorer configuration
type RerankConfig struct {
	Provider       string        `mapstructure:"provider"` // reranker, openai, local, mock
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	Timeout        time.Duration `mapstructure:"timeout"`
	// RerankMerged scores merged evidence across backends uniformly
	RerankMerged bool `mapstructure:"rerank_merged"`
}

// OrchestratorConfig holds the answer pipeline settings
type OrchestratorConfig struct {
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	BackendTimeout      time.Duration `mapstructure:"backend_timeout"`
	EnableDecomposition bool          `mapstructure:"enable_decomposition"`
	MaxSubQueries       int           `mapstructure:"max_sub_queries"`
	DefaultTopK         int           `mapstructure:"default_top_k"`
	MaxTopK             int           `mapstructure:"max_top_k"`
	RouteCacheSize      int           `mapstructure:"route_cache_size"`
	BackendBreaker      bool          `mapstructure:"backend_breaker"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("nlp.models.default.provider", "openai")
	viper.SetDefault("nlp.models.default.model", "gpt-4o-mini")
	viper.SetDefault("nlp.models.default.temperature", 0.1)
	viper.SetDefault("nlp.models.default.max_tokens", 1024)
	viper.SetDefault("nlp.retry.max_retries", 2)
	viper.SetDefault("nlp.retry.initial_delay", time.Second)
	viper.SetDefault("nlp.retry.max_delay", 10*time.Second)

	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.cache_size", 1024)

	// Vector store defaults
	viper.SetDefault("vector.enabled", true)
	viper.SetDefault("vector.provider", "milvus")
	viper.SetDefault("vector.address", "localhost:19530")
	viper.SetDefault("vector.collection", "mineral_rag_collection")
	viper.SetDefault("vector.text_field", "text")
	viper.SetDefault("vector.vector_field", "vector")
	viper.SetDefault("vector.metric", "COSINE")
	viper.SetDefault("vector.over_fetch_factor", 10)

	// Graph store defaults
	viper.SetDefault("graph.enabled", true)
	viper.SetDefault("graph.uri", "bolt://localhost:7687")
	viper.SetDefault("graph.username", "neo4j")
	viper.SetDefault("graph.database", "neo4j")
	viper.SetDefault("graph.max_rows", 100)

	// Web search defaults
	viper.SetDefault("web.enabled", true)
	viper.SetDefault("web.provider", "duckduckgo")
	viper.SetDefault("web.max_results", 3)
	viper.SetDefault("web.timeout", 8*time.Second)

	viper.SetDefault("rerank.provider", "local")
	viper.SetDefault("rerank.model", "BAAI/bge-reranker-base")
	viper.SetDefault("rerank.max_concurrency", 5)
	viper.SetDefault("rerank.timeout", 10*time.Second)

	viper.SetDefault("orchestrator.request_timeout", 60*time.Second)
	viper.SetDefault("orchestrator.backend_timeout", 10*time.Second)
	viper.SetDefault("orchestrator.max_sub_queries", 3)
	viper.SetDefault("orchestrator.default_top_k", 3)
	viper.SetDefault("orchestrator.max_top_k", 10)
	viper.SetDefault("orchestrator.route_cache_size", 512)

	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	// Telemetry defaults
	home, err := os.UserHomeDir()
	if err == nil {
		defaultPath := fmt.Sprintf("%s/.multirag/telemetry", home)
		viper.SetDefault("telemetry.parquet_path", defaultPath)
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// Initialize Models map if nil
	if config.NLP.Models == nil {
		config.NLP.Models = make(map[string]NLPModelConfig)
	}

	// API keys apply to every OpenAI model that does not set its own
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		for name, m := range config.NLP.Models {
			if m.APIKey == "" {
				m.APIKey = apiKey
				config.NLP.Models[name] = m
			}
		}
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		m := config.NLP.Models["default"]
		m.BaseURL = baseURL
		config.NLP.Models["default"] = m
	}

	// Graph credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Graph.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Graph.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Graph.Password = pass
	}

	if addr := os.Getenv("MILVUS_ADDRESS"); addr != "" {
		config.Vector.Address = addr
	}

	// Web search credentials
	if key := os.Getenv("SERPER_API_KEY"); key != "" && strings.EqualFold(config.Web.Provider, "serper") {
		config.Web.APIKey = key
	}
	if key := os.Getenv("BING_API_KEY"); key != "" && strings.EqualFold(config.Web.Provider, "bing") {
		config.Web.APIKey = key
	}

	if url := os.Getenv("RERANKER_URL"); url != "" {
		config.Rerank.BaseURL = url
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
			config.Server.Port = p
		}
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}

// Validate checks the configuration for values the application cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if _, ok := c.NLP.Models["default"]; !ok {
		errs = append(errs, errors.New("nlp.models.default is required"))
	}
	if c.Orchestrator.MaxTopK > 0 && c.Orchestrator.DefaultTopK > c.Orchestrator.MaxTopK {
		errs = append(errs, fmt.Errorf("orchestrator.default_top_k (%d) exceeds max_top_k (%d)",
			c.Orchestrator.DefaultTopK, c.Orchestrator.MaxTopK))
	}
	if c.Vector.Enabled {
		switch strings.ToLower(c.Vector.Provider) {
		case "milvus":
			if c.Vector.Address == "" {
				errs = append(errs, errors.New("vector.address is required for milvus"))
			}
		case "badger":
			if c.Vector.Path == "" {
				errs = append(errs, errors.New("vector.path is required for badger"))
			}
		default:
			errs = append(errs, fmt.Errorf("unsupported vector.provider: %q", c.Vector.Provider))
		}
	}
	if c.Graph.Enabled && c.Graph.URI == "" {
		errs = append(errs, errors.New("graph.uri is required when graph is enabled"))
	}
	if c.Web.Enabled {
		switch strings.ToLower(c.Web.Provider) {
		case "duckduckgo":
		case "serper", "bing":
			if c.Web.APIKey == "" {
				errs = append(errs, fmt.Errorf("web.api_key is required for %s", c.Web.Provider))
			}
		default:
			errs = append(errs, fmt.Errorf("unsupported web.provider: %q", c.Web.Provider))
		}
	}
	return errors.Join(errs...)
}
