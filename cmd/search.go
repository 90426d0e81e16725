package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/search"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/view"
)

var searchCmd = &cobra.Command{
	Use:         "search <text>",
	Annotations: map[string]string{configMode: "search"},
	Short:       "Search for local businesses and score them",
	Long: `Interpret a free-text search, fetch matching businesses, score each
one's digital opportunity and look up contact emails.

Filters in the text ("without a website", "rated above 4") apply to the view
unless overridden by flags. When no places key is configured or the provider
cannot be reached, sample data is shown with a notice.

Examples:
  # Dentists in Colombo, highest opportunity first
  search "dentists in Colombo" --sort opportunity

  # Three pages of bakeries without a website, exported to Excel
  search "bakeries in Kandy" --pages 3 --no-website --format xlsx --output leads.xlsx

  # Save every result to the lead tracker
  search "gyms in Galle" --save`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.Int("pages", 1, "number of result pages to fetch")
	f.String("sort", "relevance", "sort order: relevance, rating, reviews or opportunity")
	f.Float64("min-rating", 0, "minimum rating")
	f.Bool("has-website", false, "only businesses with a website")
	f.Bool("no-website", false, "only businesses without a website")
	f.Bool("open-now", false, "only businesses that are open now")
	f.Bool("has-socials", false, "only businesses with a social profile")
	f.Bool("no-socials", false, "only businesses without a social profile")
	f.Int("page", 1, "page of the filtered view to print")
	f.Int("per-page", 0, "businesses per printed page (0=all)")
	f.String("format", formatTable, "output format: table, csv, xlsx or json")
	f.String("output", "", "output file path (default: stdout)")
	f.Bool("save", false, "save the displayed businesses to the lead tracker")

	searchCmd.MarkFlagsMutuallyExclusive("has-website", "no-website")
	searchCmd.MarkFlagsMutuallyExclusive("has-socials", "no-socials")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pages, _ := cmd.Flags().GetInt("pages")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	save, _ := cmd.Flags().GetBool("save")
	page, _ := cmd.Flags().GetInt("page")
	perPage, _ := cmd.Flags().GetInt("per-page")
	sortFlag, _ := cmd.Flags().GetString("sort")

	if pages < 1 {
		return eris.Errorf("search: --pages must be at least 1 (got %d)", pages)
	}
	if err := validFormat(format); err != nil {
		return err
	}
	sortKey, err := view.ParseSortKey(sortFlag)
	if err != nil {
		return err
	}

	env := initSearch(cfg)
	session := env.NewSession(cfg)
	log := zap.L().With(zap.String("command", "search"), zap.String("session", session.ID()))

	snap, err := session.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return eris.Wrap(err, "search")
	}
	if snap.Notice != "" {
		fmt.Fprintln(os.Stderr, snap.Notice)
	}

	for i := 1; i < pages && snap.HasMore; i++ {
		next, err := session.LoadMore(ctx)
		if err != nil {
			if errors.Is(err, search.ErrNoActiveSearch) {
				break
			}
			log.Warn("could not load more results", zap.Int("page", i+1), zap.Error(err))
			fmt.Fprintf(os.Stderr, "Stopped after %d page(s): %v\n", i, err)
			break
		}
		snap = next
	}

	log.Info("search complete",
		zap.String("category", snap.Query.Category),
		zap.String("location", snap.Query.Location),
		zap.Int("results", len(snap.Results)),
		zap.Bool("demo", snap.Demo),
	)

	list := view.Present(snap.Results, searchFilters(cmd, snap.Query.Filters), sortKey)
	totalPages := 0
	if perPage > 0 {
		list, totalPages = view.Paginate(list, page, perPage)
	}

	if err := writeOutput(list, format, outputPath); err != nil {
		return err
	}
	if totalPages > 0 && format == formatTable {
		fmt.Fprintf(os.Stderr, "Page %d of %d\n", page, totalPages)
	}

	if save {
		if snap.Demo {
			fmt.Fprintln(os.Stderr, "Not saving sample data to the lead tracker.")
			return nil
		}
		return saveLeads(ctx, list)
	}
	return nil
}

// searchFilters starts from the interpreted filters and applies any flag the
// user set explicitly.
func searchFilters(cmd *cobra.Command, qf model.QueryFilters) view.Filters {
	f := view.FromQuery(qf)
	flags := cmd.Flags()
	if flags.Changed("min-rating") {
		f.MinRating, _ = flags.GetFloat64("min-rating")
	}
	if flags.Changed("has-website") {
		f.HasWebsite, _ = flags.GetBool("has-website")
		if f.HasWebsite {
			f.NoWebsite = false
		}
	}
	if flags.Changed("no-website") {
		f.NoWebsite, _ = flags.GetBool("no-website")
		if f.NoWebsite {
			f.HasWebsite = false
		}
	}
	if flags.Changed("open-now") {
		f.OpenNow, _ = flags.GetBool("open-now")
	}
	if flags.Changed("has-socials") {
		f.HasSocials, _ = flags.GetBool("has-socials")
		if f.HasSocials {
			f.NoSocials = false
		}
	}
	if flags.Changed("no-socials") {
		f.NoSocials, _ = flags.GetBool("no-socials")
		if f.NoSocials {
			f.HasSocials = false
		}
	}
	return f
}

func saveLeads(ctx context.Context, list []model.Business) error {
	tracker, st, err := openTracker(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	for _, b := range list {
		if _, err := tracker.Save(ctx, b); err != nil {
			return eris.Wrapf(err, "save lead %q", b.Title)
		}
	}
	fmt.Fprintf(os.Stderr, "Saved %d leads\n", len(list))
	return nil
}
