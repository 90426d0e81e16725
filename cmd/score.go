package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/demo"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/scorer"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Explain opportunity scores",
	Long: `Re-score businesses and print each fired factor with its points.

Missing website 30, missing socials 20, rating below 3.5 15 (or below 4.0 5),
fewer than 10 reviews 20 (or fewer than 50 10), missing email 10, and neither
website nor socials 5. The total is capped at 100. A zero rating counts as no
rating.

Examples:
  # Explain the scores of an export
  score --file leads.json

  # Explain the sample dataset
  score --demo`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("file", "", `JSON file of businesses ("-" for stdin)`)
	f.Bool("demo", false, "score the built-in sample dataset")
	scoreCmd.MarkFlagsMutuallyExclusive("file", "demo")
	scoreCmd.MarkFlagsOneRequired("file", "demo")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")
	useDemo, _ := cmd.Flags().GetBool("demo")

	var (
		list []model.Business
		err  error
	)
	if useDemo {
		list = demo.Businesses()
	} else {
		list, err = readBusinesses(path)
		if err != nil {
			return err
		}
	}

	return printBreakdowns(os.Stdout, list)
}

func printBreakdowns(w io.Writer, list []model.Business) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, b := range list {
		contributions, total := scorer.Breakdown(b)
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\t%d/%d\n", b.Title, total, scorer.MaxScore)
		for _, c := range contributions {
			fmt.Fprintf(tw, "  %s\t+%d\n", c.Factor, c.Points)
		}
		if len(contributions) == 0 {
			fmt.Fprintln(tw, "  no opportunity factors\t")
		}
	}
	return eris.Wrap(tw.Flush(), "write breakdown")
}
