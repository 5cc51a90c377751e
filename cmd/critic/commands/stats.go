package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/roasbeef/critic/internal/strategy"
	"github.com/spf13/cobra"
)

var statsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learned strategy statistics and recent reviews",
	Long: `Show the per-bucket strategy statistics the selector has learned so
far, followed by the most recent stored reviews.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVar(
		&statsLimit, "limit", 10,
		"Number of recent reviews to show",
	)
}

func runStats(cmd *cobra.Command, args []string) error {
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

	ctx := cmd.Context()

	state, err := store.LoadSelectorState(ctx)
	if err != nil {
		return fmt.Errorf("loading selector state: %w", err)
	}

	if len(state) == 0 {
		fmt.Println("No learning state recorded yet.")
	} else {
		buckets := make([]string, 0, len(state))
		for bucket := range state {
			buckets = append(buckets, bucket)
		}
		sort.Strings(buckets)

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "BUCKET\tSTRATEGY\tTRIALS\tAVG REWARD")

		for _, bucket := range buckets {
			arms := state[bucket]
			for _, strat := range strategy.All() {
				stats, ok := arms[strat]
				if !ok || stats.Trials == 0 {
					continue
				}

				avg, _ := stats.Average()
				fmt.Fprintf(w, "%s\t%s\t%d\t%.3f\n", bucket,
					strat, stats.Trials, avg)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	reviews, err := store.ListReviews(ctx, statsLimit)
	if err != nil {
		return fmt.Errorf("listing reviews: %w", err)
	}

	if len(reviews) == 0 {
		return nil
	}

	fmt.Printf("\nRecent reviews:\n")
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tPR\tSTRATEGY\tSIGNAL\tFINDINGS")
	for _, r := range reviews {
		fmt.Fprintf(w, "%s\t%s/%s#%d\t%s\t%.2f\t%d\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.Owner,
			r.Repo, r.Number, r.Strategy, r.OutcomeSignal,
			r.NumFindings)
	}

	return w.Flush()
}
