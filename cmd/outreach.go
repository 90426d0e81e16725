package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/outreach"
)

var outreachCmd = &cobra.Command{
	Use:         "outreach <key>",
	Annotations: map[string]string{configMode: "crm"},
	Short:       "Draft an outreach message for a saved lead",
	Long: `Draft an email, WhatsApp message or call script for a saved lead, built
around its top opportunity factors. The sender defaults to outreach.sender_name
and outreach.agency from config.

Examples:
  outreach "Lakeside Family Dental|42 Galle Rd, Colombo 03" --kind whatsapp`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kindFlag, _ := cmd.Flags().GetString("kind")
		name, _ := cmd.Flags().GetString("name")
		agency, _ := cmd.Flags().GetString("agency")

		kind, err := outreach.ParseKind(kindFlag)
		if err != nil {
			return err
		}
		tracker, st, err := openTracker(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		entry, err := tracker.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		from := outreach.Sender{Name: cfg.Outreach.SenderName, Agency: cfg.Outreach.Agency}
		if name != "" {
			from.Name = name
		}
		if agency != "" {
			from.Agency = agency
		}

		msg, err := outreach.Compose(kind, entry.Business, from)
		if err != nil {
			return err
		}
		if msg.Subject != "" {
			fmt.Printf("Subject: %s\n\n", msg.Subject)
		}
		fmt.Println(msg.Body)
		return nil
	},
}

func init() {
	outreachCmd.Flags().String("kind", string(outreach.KindEmail), "message kind: email, whatsapp or call")
	outreachCmd.Flags().String("name", "", "sender name (overrides config)")
	outreachCmd.Flags().String("agency", "", "sender agency (overrides config)")
	rootCmd.AddCommand(outreachCmd)
}
