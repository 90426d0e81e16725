package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/config"
)

// configMode is the command annotation naming the config.Validate mode a
// command and its children run under. Commands without one skip validation.
const configMode = "bizfinder/config-mode"

var (
	cfg      *config.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "bizfinder",
	Short: "Local business lead finder",
	Long:  "Searches a places provider for local businesses, scores each one's digital opportunity, finds contact emails, and tracks leads.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		if mode := modeOf(cmd); mode != "" {
			return cfg.Validate(mode)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// modeOf returns the nearest configMode annotation up the command tree.
func modeOf(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if mode := c.Annotations[configMode]; mode != "" {
			return mode
		}
	}
	return ""
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
