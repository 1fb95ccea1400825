package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/multirag/pkg/embedder"
	"github.com/soundprediction/multirag/pkg/utils"
	"github.com/soundprediction/multirag/pkg/vectorstore"
)

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load documents into the embedded vector store",
	Long: `Embed documents and store them in the embedded Badger vector store.

The input is a YAML list of documents:

  - id: gypsum-1
    text: Gypsum is a soft sulfate mineral composed of calcium sulfate dihydrate.
    metadata:
      source: minerals.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().String("vector-path", "", "Badger directory of the embedded vector store")
	seedCmd.Flags().Int("batch-size", 32, "Documents embedded per request")
	seedCmd.Flags().String("embedding-model", "text-embedding-3-small", "Embedding model")
	seedCmd.Flags().String("embedding-api-key", "", "Embedding API key")
	seedCmd.Flags().String("embedding-base-url", "", "Embedding base URL")
}

// seedDocument is one entry of the seed file.
type seedDocument struct {
	ID       string         `yaml:"id"`
	Text     string         `yaml:"text"`
	Metadata map[string]any `yaml:"metadata"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Vector.Path == "" {
		return fmt.Errorf("vector path is required (--vector-path or vector.path)")
	}
	log, closeLog := setupLogger(cfg)
	defer closeLog()

	docs, err := readSeedFile(args[0])
	if err != nil {
		return err
	}

	emb, err := embedder.NewOpenAIEmbedder(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	defer emb.Close()

	store, err := vectorstore.OpenBadgerStore(cfg.Vector.Path, log)
	if err != nil {
		return err
	}
	defer store.Close()

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	ctx := cmd.Context()
	stored := 0
	for _, batch := range utils.Batch(docs, batchSize) {
		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Text
		}
		vectors, err := emb.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed documents: %w", err)
		}

		out := make([]vectorstore.Document, len(batch))
		for i, d := range batch {
			out[i] = vectorstore.Document{ID: d.ID, Text: d.Text, Vector: vectors[i], Metadata: d.Metadata}
		}
		if err := store.Upsert(ctx, out); err != nil {
			return err
		}
		stored += len(out)
		log.Info("Stored documents", "count", stored, "total", len(docs))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d documents in %s\n", stored, cfg.Vector.Path)
	return nil
}

// readSeedFile parses a YAML document list. Documents without an id get a
// random one; documents without text are skipped.
func readSeedFile(path string) ([]seedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var docs []seedDocument
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	out := docs[:0]
	for _, d := range docs {
		d.Text = strings.TrimSpace(d.Text)
		if d.Text == "" {
			continue
		}
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		out = append(out, d)
	}
	return out, nil
}
