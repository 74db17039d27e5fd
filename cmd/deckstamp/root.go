package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deckstamp/internal/config"
	"deckstamp/internal/deck"
	"deckstamp/internal/logging"
)

type commandContext struct {
	cfg      *config.AppConfig
	logLevel string
	binary   string
	marker   string
}

func (c *commandContext) config() *config.AppConfig {
	if c.cfg == nil {
		c.cfg = config.Load()
		if c.binary != "" {
			c.cfg.Render.Binary = c.binary
		}
		if c.marker != "" {
			c.cfg.Annotation.Marker = c.marker
		}
	}
	return c.cfg
}

func (c *commandContext) logger(cmd *cobra.Command) *zap.Logger {
	loc, err := time.LoadLocation(c.config().Timezone)
	if err != nil {
		loc = time.UTC
	}
	return logging.NewWithWriter(cmd.ErrOrStderr(), c.logLevel, loc)
}

func (c *commandContext) annotator() (*deck.Annotator, error) {
	return deck.NewAnnotator(deck.ConfigFrom(c.config().Annotation))
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "deckstamp",
		Short:         "Stamp a name onto every slide of a PowerPoint deck",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "warn", "Log level written to stderr")
	rootCmd.PersistentFlags().StringVar(&ctx.binary, "soffice", "", "Conversion engine executable (overrides RENDER_BINARY)")
	rootCmd.PersistentFlags().StringVar(&ctx.marker, "marker", "", "Label shape name (overrides ANNOTATION_MARKER)")

	rootCmd.AddCommand(newStampCommand(ctx))
	rootCmd.AddCommand(newAnnotateCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))

	return rootCmd
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
