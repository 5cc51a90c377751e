package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over stored review text",
	Long: `Search stored reviews using FTS5 query syntax, e.g. "word1 word2" for
AND or "word1 OR word2" for OR.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(
		&searchLimit, "limit", 20,
		"Maximum number of results to show",
	)
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	query := strings.Join(args, " ")
	results, err := store.SearchReviews(cmd.Context(), query, searchLimit)
	if err != nil {
		return fmt.Errorf("searching reviews: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No matching reviews.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tPR\tSTRATEGY\tSIGNAL\tID")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s/%s#%d\t%s\t%.2f\t%s\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.Owner,
			r.Repo, r.Number, r.Strategy, r.OutcomeSignal, r.ID)
	}

	return w.Flush()
}
