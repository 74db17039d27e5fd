package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"deckstamp/internal/deck"
	"deckstamp/internal/pipeline"
	"deckstamp/internal/render"
)

func newStampCommand(ctx *commandContext) *cobra.Command {
	var name, out string

	cmd := &cobra.Command{
		Use:   "stamp <deck.pptx>",
		Short: "Stamp a label onto every slide and convert the deck to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config()
			logger := ctx.logger(cmd)
			defer func() { _ = logger.Sync() }()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			annotator, err := ctx.annotator()
			if err != nil {
				return err
			}
			renderer, err := render.New(render.Config{
				Binary:        cfg.Render.Binary,
				Timeout:       cfg.Render.Timeout,
				MaxConcurrent: 1,
			}, render.WithLogger(logger))
			if err != nil {
				return err
			}
			orch, err := pipeline.New(pipeline.Config{
				MaxUploadBytes: cfg.MaxUploadBytes,
				TempDir:        cfg.Render.TempDir,
			}, annotator, renderer, render.NewProber(cfg.Render.Binary, 0), pipeline.WithLogger(logger))
			if err != nil {
				return err
			}

			res, err := orch.Process(cmd.Context(), pipeline.Request{
				Filename: filepath.Base(args[0]),
				Label:    name,
				Data:     data,
			})
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(filepath.Dir(args[0]), res.DownloadName)
			}
			if err := os.WriteFile(out, res.PDF, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d slides labelled)\n", out, res.Slides)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Label to stamp onto each slide")
	cmd.Flags().StringVarP(&out, "out", "o", "", "PDF destination (default: <stem>__named.pdf next to the input)")
	return cmd
}

func newAnnotateCommand(ctx *commandContext) *cobra.Command {
	var name, out string

	cmd := &cobra.Command{
		Use:   "annotate <deck.pptx>",
		Short: "Stamp a label onto every slide and write the annotated deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			annotator, err := ctx.annotator()
			if err != nil {
				return err
			}
			res, err := annotator.Annotate(data, name)
			if err != nil {
				return err
			}
			if out == "" {
				stem := pipeline.Stem(pipeline.SanitizeFilename(filepath.Base(args[0])))
				out = filepath.Join(filepath.Dir(args[0]), stem+"__named.pptx")
			}
			if err := os.WriteFile(out, res.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d slides labelled, %d replaced)\n", out, res.Slides, res.Replaced)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Label to stamp onto each slide")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Destination (default: <stem>__named.pptx next to the input)")
	return cmd
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <deck.pptx>",
		Short: "List the label shapes found on each slide as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			slides, err := deck.Inspect(data, ctx.config().Annotation.Marker)
			if err != nil {
				return err
			}
			return writeJSON(cmd, slides)
		},
	}
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the conversion engine can be found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := render.NewProber(ctx.config().Render.Binary, 0).Check()
			if err := writeJSON(cmd, st); err != nil {
				return err
			}
			if !st.Available {
				return errors.New("conversion engine unavailable")
			}
			return nil
		},
	}
}
