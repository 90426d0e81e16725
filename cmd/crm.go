package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/crm"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
)

var crmCmd = &cobra.Command{
	Use:   "crm",
	Short: "Track saved leads",
	Long: `Manage the lead tracker. Leads are keyed by "title|address" exactly as
shown by "crm list".`,
	Annotations: map[string]string{configMode: "crm"},
}

var crmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved leads, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		statusFlag, _ := cmd.Flags().GetString("status")
		format, _ := cmd.Flags().GetString("format")
		outputPath, _ := cmd.Flags().GetString("output")

		if err := validFormat(format); err != nil {
			return err
		}
		var status crm.Status
		if statusFlag != "" {
			s, err := crm.ParseStatus(statusFlag)
			if err != nil {
				return err
			}
			status = s
		}

		tracker, st, err := openTracker(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		entries, err := tracker.List(cmd.Context(), status)
		if err != nil {
			return err
		}

		if format == formatTable && outputPath == "" {
			return writeLeadTable(os.Stdout, entries)
		}
		list := make([]model.Business, len(entries))
		for i, e := range entries {
			list[i] = e.Business
		}
		return writeOutput(list, format, outputPath)
	},
}

var crmSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save businesses from a JSON export",
	Long: `Save businesses from a file written by "search --format json" (or stdin
with --file -). Existing leads keep their status, notes and saved time; the
business details are replaced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		statusFlag, _ := cmd.Flags().GetString("status")

		var status crm.Status
		if statusFlag != "" {
			s, err := crm.ParseStatus(statusFlag)
			if err != nil {
				return err
			}
			status = s
		}

		list, err := readBusinesses(path)
		if err != nil {
			return err
		}

		tracker, st, err := openTracker(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		for _, b := range list {
			if _, err := tracker.Save(cmd.Context(), b); err != nil {
				return eris.Wrapf(err, "save lead %q", b.Title)
			}
			if status != "" {
				if _, err := tracker.SetStatus(cmd.Context(), b.Key(), status); err != nil {
					return err
				}
			}
		}
		fmt.Printf("Saved %d leads\n", len(list))
		return nil
	},
}

var crmStatusCmd = &cobra.Command{
	Use:   "status <key> <status>",
	Short: "Set a lead's status",
	Long:  "Set a lead's status: " + statusNames() + ".",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := crm.ParseStatus(args[1])
		if err != nil {
			return err
		}
		tracker, st, err := openTracker(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		e, err := tracker.SetStatus(cmd.Context(), args[0], status)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", e.Business.Title, e.Status)
		return nil
	},
}

var crmNoteCmd = &cobra.Command{
	Use:   "note <key> <text>",
	Short: "Replace a lead's notes",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker, st, err := openTracker(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		e, err := tracker.SetNotes(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("%s: notes updated\n", e.Business.Title)
		return nil
	},
}

var crmRemoveCmd = &cobra.Command{
	Use:     "rm <key>",
	Aliases: []string{"remove"},
	Short:   "Remove a lead",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker, st, err := openTracker(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := tracker.Remove(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Removed", args[0])
		return nil
	},
}

func init() {
	crmListCmd.Flags().String("status", "", "only leads with this status")
	crmListCmd.Flags().String("format", formatTable, "output format: table, csv, xlsx or json")
	crmListCmd.Flags().String("output", "", "output file path (default: stdout)")

	crmSaveCmd.Flags().String("file", "", `JSON file of businesses ("-" for stdin)`)
	crmSaveCmd.Flags().String("status", "", "status to give every saved lead")
	_ = crmSaveCmd.MarkFlagRequired("file")

	crmCmd.AddCommand(crmListCmd, crmSaveCmd, crmStatusCmd, crmNoteCmd, crmRemoveCmd)
	rootCmd.AddCommand(crmCmd)
}

func readBusinesses(path string) ([]model.Business, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	var list []model.Business
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}
	for i, b := range list {
		if strings.TrimSpace(b.Title) == "" {
			return nil, eris.Errorf("parse %s: business %d has no title", path, i)
		}
	}
	return list, nil
}

func writeLeadTable(w io.Writer, entries []crm.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSTATUS\tSCORE\tSAVED\tNOTES")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			e.Business.Key(), e.Status, e.Business.OpportunityScore,
			e.SavedAt.Format("2006-01-02"), orDash(firstLine(e.Notes)),
		)
	}
	return eris.Wrap(tw.Flush(), "write table")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func statusNames() string {
	names := make([]string, len(crm.Statuses))
	for i, s := range crm.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
