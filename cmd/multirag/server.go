package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/multirag/pkg/config"
	"github.com/soundprediction/multirag/pkg/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the multirag HTTP server",
	Long: `Start the multirag HTTP server.

The server provides endpoints for:
- Answering questions (POST /v1/chat)
- Health, readiness and liveness checks
- Prometheus metrics (/metrics)

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8000, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "release", "Server mode (debug, release, test)")

	addPipelineFlags(serverCmd)
}

// addPipelineFlags registers the flags shared by every command that builds
// the engine.
func addPipelineFlags(cmd *cobra.Command) {
	// NLP flags
	cmd.Flags().String("nlp-model", "gpt-4o-mini", "NLP model")
	cmd.Flags().String("nlp-api-key", "", "NLP API key")
	cmd.Flags().String("nlp-base-url", "", "NLP base URL")
	cmd.Flags().Float32("nlp-temperature", 0.1, "NLP temperature")
	cmd.Flags().Int("nlp-max-tokens", 1024, "NLP max tokens")

	// Embedding flags
	cmd.Flags().String("embedding-model", "text-embedding-3-small", "Embedding model")
	cmd.Flags().String("embedding-api-key", "", "Embedding API key")
	cmd.Flags().String("embedding-base-url", "", "Embedding base URL")

	// Backend flags
	cmd.Flags().String("vector-provider", "milvus", "Vector store provider (milvus, badger)")
	cmd.Flags().String("vector-address", "localhost:19530", "Milvus address")
	cmd.Flags().String("vector-path", "", "Badger directory for the embedded vector store")
	cmd.Flags().String("graph-uri", "bolt://localhost:7687", "Neo4j URI")
	cmd.Flags().String("web-provider", "duckduckgo", "Web search provider (duckduckgo, serper, bing)")
	cmd.Flags().Bool("no-vector", false, "Do not configure the vector backend")
	cmd.Flags().Bool("no-graph", false, "Do not configure the graph backend")
	cmd.Flags().Bool("no-web", false, "Do not configure the web backend")

	// Pipeline flags
	cmd.Flags().Duration("request-timeout", 60*time.Second, "Timeout of a whole answer")
	cmd.Flags().Duration("backend-timeout", 10*time.Second, "Timeout of a single backend call")
	cmd.Flags().Bool("decompose", false, "Split compound questions into sub-queries")
	cmd.Flags().String("rerank-provider", "local", "Relevance scorer (reranker, openai, embedding, local, mock)")

	// Telemetry flags
	cmd.Flags().String("telemetry-parquet-path", "", "Path to directory for telemetry (errors and token usage)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, closeLog := setupLogger(cfg)
	defer closeLog()

	app, err := buildApp(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer app.Close()

	srv := server.New(cfg, app.Client, app.Metrics, log)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("Received signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		log.Info("Server stopped gracefully")
		return nil
	}
}

// loadConfig loads the configuration, applies flags and validates it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	overrideConfigWithFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	// Server flags
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("mode") {
		cfg.Server.Mode, _ = flags.GetString("mode")
	}

	// NLP flags
	if cfg.NLP.Models == nil {
		cfg.NLP.Models = make(map[string]config.NLPModelConfig)
	}
	if flags.Changed("nlp-model") {
		m := cfg.NLP.Models["default"]
		m.Model, _ = flags.GetString("nlp-model")
		cfg.NLP.Models["default"] = m
	}
	if flags.Changed("nlp-api-key") {
		m := cfg.NLP.Models["default"]
		m.APIKey, _ = flags.GetString("nlp-api-key")
		cfg.NLP.Models["default"] = m
	}
	if flags.Changed("nlp-base-url") {
		m := cfg.NLP.Models["default"]
		m.BaseURL, _ = flags.GetString("nlp-base-url")
		cfg.NLP.Models["default"] = m
	}
	if flags.Changed("nlp-temperature") {
		m := cfg.NLP.Models["default"]
		m.Temperature, _ = flags.GetFloat32("nlp-temperature")
		cfg.NLP.Models["default"] = m
	}
	if flags.Changed("nlp-max-tokens") {
		m := cfg.NLP.Models["default"]
		m.MaxTokens, _ = flags.GetInt("nlp-max-tokens")
		cfg.NLP.Models["default"] = m
	}

	// Embedding flags
	if flags.Changed("embedding-model") {
		cfg.Embedding.Model, _ = flags.GetString("embedding-model")
	}
	if flags.Changed("embedding-api-key") {
		cfg.Embedding.APIKey, _ = flags.GetString("embedding-api-key")
	}
	if flags.Changed("embedding-base-url") {
		cfg.Embedding.BaseURL, _ = flags.GetString("embedding-base-url")
	}

	// Backend flags
	if flags.Changed("vector-provider") {
		cfg.Vector.Provider, _ = flags.GetString("vector-provider")
	}
	if flags.Changed("vector-address") {
		cfg.Vector.Address, _ = flags.GetString("vector-address")
	}
	if flags.Changed("vector-path") {
		cfg.Vector.Path, _ = flags.GetString("vector-path")
	}
	if flags.Changed("graph-uri") {
		cfg.Graph.URI, _ = flags.GetString("graph-uri")
	}
	if flags.Changed("web-provider") {
		cfg.Web.Provider, _ = flags.GetString("web-provider")
	}
	if v, _ := flags.GetBool("no-vector"); v {
		cfg.Vector.Enabled = false
	}
	if v, _ := flags.GetBool("no-graph"); v {
		cfg.Graph.Enabled = false
	}
	if v, _ := flags.GetBool("no-web"); v {
		cfg.Web.Enabled = false
	}

	// Pipeline flags
	if flags.Changed("request-timeout") {
		cfg.Orchestrator.RequestTimeout, _ = flags.GetDuration("request-timeout")
	}
	if flags.Changed("backend-timeout") {
		cfg.Orchestrator.BackendTimeout, _ = flags.GetDuration("backend-timeout")
	}
	if flags.Changed("decompose") {
		cfg.Orchestrator.EnableDecomposition, _ = flags.GetBool("decompose")
	}
	if flags.Changed("rerank-provider") {
		cfg.Rerank.Provider, _ = flags.GetString("rerank-provider")
	}

	// Telemetry flags
	if flags.Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = flags.GetString("telemetry-parquet-path")
	}
}
