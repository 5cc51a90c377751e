package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roasbeef/critic/internal/knowledge"
	"github.com/spf13/cobra"
)

var ingestTags []string

var ingestCmd = &cobra.Command{
	Use:   "ingest <rules.md> [more.md...]",
	Short: "Ingest markdown rule documents into the knowledge base",
	Long: `Parse one or more markdown files into rule documents and replace the
knowledge base with them. Each heading-delimited section becomes one rule
document. Ingestion is all-or-nothing: if any document fails to embed or
persist, the previous corpus is left intact.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringSliceVar(
		&ingestTags, "tag", nil,
		"Tag to apply to every ingested rule (repeatable)",
	)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var rules []knowledge.RuleDocument
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		// The file stem tags every rule from that file, so reviews
		// can be traced back to the rule set they drew from.
		stem := strings.TrimSuffix(
			filepath.Base(path), filepath.Ext(path),
		)
		tags := append([]string{stem}, ingestTags...)

		fileRules := knowledge.ParseRules(src, tags...)
		if len(fileRules) == 0 {
			return fmt.Errorf("no rule sections found in %s", path)
		}

		rules = append(rules, fileRules...)
	}

	know := knowledge.NewStore(
		knowledge.NewHashingEmbedder(knowledge.DefaultEmbeddingDim),
		store,
	)
	if err := know.Ingest(cmd.Context(), rules); err != nil {
		return fmt.Errorf("ingesting rules: %w", err)
	}

	fmt.Printf("Ingested %d rule documents from %d file(s)\n",
		know.Len(), len(args))

	return nil
}
