package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("NEO4J_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.NLP.Models["default"].Model)
	assert.Equal(t, "sk-test", cfg.NLP.Models["default"].APIKey)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "secret", cfg.Graph.Password)
	assert.Equal(t, 10, cfg.Vector.OverFetchFactor)
	assert.Equal(t, 100, cfg.Graph.MaxRows)
	assert.Equal(t, 3, cfg.Web.MaxResults)
	assert.Equal(t, 10*time.Second, cfg.Orchestrator.BackendTimeout)
	assert.Equal(t, 60*time.Second, cfg.Orchestrator.RequestTimeout)
	assert.False(t, cfg.Orchestrator.EnableDecomposition)

	assert.NoError(t, cfg.Validate())
}

func TestServerPortFromEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8000},
			NLP:    NLPConfig{Models: map[string]NLPModelConfig{"default": {Model: "m"}}},
			Vector: VectorConfig{Enabled: true, Provider: "badger", Path: "/tmp/v"},
			Web:    WebConfig{Enabled: true, Provider: "duckduckgo"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "no default model", mutate: func(c *Config) { c.NLP.Models = nil }, wantErr: "nlp.models.default"},
		{name: "badger without path", mutate: func(c *Config) { c.Vector.Path = "" }, wantErr: "vector.path"},
		{name: "unknown vector provider", mutate: func(c *Config) { c.Vector.Provider = "faiss" }, wantErr: "vector.provider"},
		{name: "serper without key", mutate: func(c *Config) { c.Web.Provider = "serper" }, wantErr: "web.api_key"},
		{name: "graph without uri", mutate: func(c *Config) { c.Graph.Enabled = true }, wantErr: "graph.uri"},
		{
			name: "default top k above max",
			mutate: func(c *Config) {
				c.Orchestrator.DefaultTopK = 20
				c.Orchestrator.MaxTopK = 10
			},
			wantErr: "default_top_k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
