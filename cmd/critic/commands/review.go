package commands

import (
	"errors"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/critic/internal/analysis"
	"github.com/roasbeef/critic/internal/changeset"
	"github.com/roasbeef/critic/internal/engine"
	"github.com/roasbeef/critic/internal/knowledge"
	"github.com/roasbeef/critic/internal/learner"
	"github.com/roasbeef/critic/internal/retrieval"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review <owner/repo#number>",
	Short: "Run a full review cycle for a pull request",
	Long: `Run one review cycle: resolve the PR's change set, retrieve relevant
review rules, pick a reasoning strategy, generate the review while static
analysis runs, and record the outcome so future strategy choices improve.

A PR that does not exist is rejected immediately without touching the
knowledge base or the strategy selector.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	if len(cfg.Generator) == 0 {
		return errors.New("no generator command configured, set " +
			"generator in the config file")
	}
	if cfg.PatchDir == "" {
		return errors.New("no patch directory configured, set " +
			"patch_dir in the config file or pass --patch-dir")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()

	// Knowledge base, loaded from the persisted corpus.
	embedder := knowledge.NewHashingEmbedder(knowledge.DefaultEmbeddingDim)
	know := knowledge.NewStore(embedder, store)
	if err := know.Load(ctx); err != nil {
		return fmt.Errorf("loading knowledge base: %w", err)
	}

	// Strategy selector, recovered from the persisted learning state.
	seed := fn.None[int64]()
	if cfg.Seed != 0 {
		seed = fn.Some(cfg.Seed)
	}
	selector := learner.NewSelector(learner.Config{
		Epsilon: cfg.Epsilon,
		Store:   store,
		Seed:    seed,
	})
	if err := selector.Load(ctx); err != nil {
		return fmt.Errorf("loading selector state: %w", err)
	}

	// Per-language static analysis adapters.
	adapters := make(map[string]analysis.Adapter, len(cfg.Analyzers))
	for lang, command := range cfg.Analyzers {
		adapters[lang] = &analysis.ExecAdapter{Command: command}
	}

	eng, err := engine.New(engine.Config{
		Resolver: changeset.NewPatchDirResolver(cfg.PatchDir),
		Retriever: retrieval.NewRetriever(
			know, embedder, retrieval.Config{
				TopK:           cfg.TopK,
				RelevanceFloor: cfg.RelevanceFloor,
			},
		),
		Selector:        selector,
		Merger:          analysis.NewMerger(adapters),
		Generator:       &engine.ExecGenerator{Command: cfg.Generator},
		Results:         store,
		GenerateRetries: fn.Some(cfg.GenerateRetries),
		GenerateTimeout: fn.Some(cfg.GenerateTimeout),
	})
	if err != nil {
		return err
	}

	outcome, err := eng.Review(ctx, ref)
	if err != nil {
		return err
	}

	return printOutcome(outcome)
}

// printOutcome renders a review outcome to stdout. Rejections and
// failures map to a non-zero exit via the returned error.
func printOutcome(outcome engine.Outcome) error {
	switch o := outcome.(type) {
	case engine.Rejected:
		return fmt.Errorf("review rejected: %s", o.Reason)

	case engine.Failed:
		return fmt.Errorf("review failed: %w", o.Err)

	case engine.Completed:
		printResult(o.Result)

		if o.LearningErr != nil {
			fmt.Printf("\nwarning: learning state was not "+
				"persisted: %v\n", o.LearningErr)
		}
		if o.PersistErr != nil {
			fmt.Printf("\nwarning: review was not stored: %v\n",
				o.PersistErr)
		}

		return nil

	default:
		return fmt.Errorf("unknown outcome type %T", outcome)
	}
}

func printResult(res *engine.ReviewResult) {
	fmt.Printf("Review %s (%s/%s#%d)\n", res.ID, res.Ref.Owner,
		res.Ref.Repo, res.Ref.Number)
	fmt.Printf("Bucket: %s  Strategy: %s  Signal: %.2f\n",
		res.BucketKey, res.StrategyUsed, res.OutcomeSignal)

	if res.Verdict != nil {
		fmt.Printf("Verdict: %s (confidence %.2f) %s\n",
			res.Verdict.Decision, res.Verdict.Confidence,
			res.Verdict.Summary)
	}

	if len(res.ContextUsed.Documents) > 0 {
		fmt.Printf("\nRules applied:\n")
		for _, doc := range res.ContextUsed.Documents {
			fmt.Printf("  [%s] score=%.3f\n", doc.Document.ID,
				doc.Score)
		}
	}

	if len(res.Findings) > 0 {
		fmt.Printf("\nStatic analysis findings:\n")
		for _, f := range res.Findings {
			fmt.Printf("  %s:%d [%s] %s: %s\n", f.File, f.Line,
				f.Severity, f.RuleID, f.Message)
		}
	}

	fmt.Printf("\n%s\n", res.GeneratedText)
}
