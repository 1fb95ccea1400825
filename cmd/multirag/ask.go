package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/multirag/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question",
	Long: `Answer a single question and print the answer, the evidence it was based on
and the reasoning trace.

Examples:
  multirag ask "What is the chemical formula of gypsum?"
  multirag ask --web --output yaml "Latest lithium discoveries"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().Int("top-k", 3, "Evidence items per backend (1-10)")
	askCmd.Flags().Bool("vector", true, "Query the vector backend if routed")
	askCmd.Flags().Bool("graph", true, "Query the graph backend if routed")
	askCmd.Flags().Bool("web", false, "Query the web backend if routed")
	askCmd.Flags().StringP("output", "o", "text", "Output format (text, json, yaml)")

	addPipelineFlags(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if err := types.ValidateQuery(query); err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("output")
	if format != "text" && format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported output format: %q", format)
	}

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

	opts := types.DefaultAnswerOptions()
	opts.TopK, _ = cmd.Flags().GetInt("top-k")
	opts.EnableVector, _ = cmd.Flags().GetBool("vector")
	opts.EnableGraph, _ = cmd.Flags().GetBool("graph")
	opts.EnableWeb, _ = cmd.Flags().GetBool("web")

	result := app.Client.Answer(cmd.Context(), query, opts)
	return writeResult(cmd.OutOrStdout(), result, format)
}

// writeResult prints result in the requested format.
func writeResult(w io.Writer, result *types.AnswerResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Fprintln(w, result.Answer)
	fmt.Fprintln(w)
	if len(result.Evidence) > 0 {
		fmt.Fprintf(w, "Sources (%d):\n", len(result.Evidence))
		for i, e := range result.Evidence {
			score := ""
			if e.Score != nil {
				score = fmt.Sprintf(" score=%.3f", *e.Score)
			}
			fmt.Fprintf(w, "  %d. [%s]%s %s\n", i+1, e.Kind, score, firstLine(e.Text, 100))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "Trace:")
	for _, line := range result.Trace {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintf(w, "\npath=%s request_id=%s latency=%s\n", result.Path, result.RequestID, result.Latency)
	return nil
}

func firstLine(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
