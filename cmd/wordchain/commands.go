package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/CTAG07/wordchain/pkg/registry"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

// readInput reads the named file, or stdin when path is empty or "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func newTrainCmd(opts *rootOptions) *cobra.Command {
	var (
		model  string
		mode   string
		file   string
		create bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model from a file or stdin",
		Example: `
  # Train sentences from a text file
  wordchain train --model chat --file corpus.txt

  # Train one token sequence per line, creating the model if needed
  cat results.txt | wordchain train --model games --mode sequence --create`,
		RunE: func(cmd *cobra.Command, args []string) error {
			trainMode, err := registry.ParseTrainMode(mode)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, file)
			if err != nil {
				return fmt.Errorf("failed to read training data: %w", err)
			}

			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				if create {
					names, err := a.registry.Names(ctx)
					if err != nil {
						return err
					}
					if !slices.Contains(names, model) {
						if err := a.registry.Create(ctx, model, a.cm.Get().SeedExample); err != nil {
							return err
						}
					}
				}
				if err := a.registry.Train(ctx, model, trainMode, string(data)); err != nil {
					return err
				}
				if err := a.registry.Save(ctx, model); err != nil {
					return err
				}
				stats, err := a.registry.Stats(ctx, model)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "trained %s: %d messages, %d tokens, vocabulary %d\n",
					model, stats.Messages, stats.TotalWeight, stats.VocabularySize)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Name of the model to train (required)")
	cmd.Flags().StringVar(&mode, "mode", string(registry.ModeText), "Training mode: text, sentence or sequence")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Training data file (default stdin)")
	cmd.Flags().BoolVar(&create, "create", false, "Create the model if it does not exist")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		model   string
		seed    string
		length  int
		gapFill bool
		count   int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sequences from a model",
		Example: `
  # Generate three sentences
  wordchain generate --model chat --count 3

  # Continue a seed with exactly eight tokens
  wordchain generate --model chat --seed "ich weiss" --length 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				if !cmd.Flags().Changed("gap-fill") {
					gapFill = a.cm.Get().Generation.GapFill
				}
				var seedTokens []string
				if seed != "" {
					seedTokens = []string{seed}
				}
				for i := 0; i < count; i++ {
					text, err := a.registry.Generate(cmd.Context(), model, seedTokens, a.generateOptions(length, gapFill)...)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), text)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Name of the model to generate from (required)")
	cmd.Flags().StringVarP(&seed, "seed", "s", "", "Seed text to continue")
	cmd.Flags().IntVarP(&length, "length", "l", 0, "Exact number of tokens to generate (0 runs until the end marker)")
	cmd.Flags().BoolVar(&gapFill, "gap-fill", false, "Improvise from the vocabulary when a context is unknown")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of sequences to generate")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var model, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a model as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				var buf bytes.Buffer
				if err := a.registry.Export(cmd.Context(), model, &buf); err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err := buf.WriteTo(cmd.OutOrStdout())
					return err
				}
				if err := atomic.WriteFile(output, &buf); err != nil {
					return fmt.Errorf("failed to write export file: %w", err)
				}
				a.logger.Info("Model exported", "model_name", model, "path", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Name of the model to export (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var model, input string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a model from JSON produced by export",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, input)
			if err != nil {
				return fmt.Errorf("failed to read model data: %w", err)
			}
			return withApp(opts, func(a *app) error {
				if err := a.registry.Import(cmd.Context(), model, bytes.NewReader(data)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", model)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Name for the imported model (required)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file (default stdin)")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newModelsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List, create and remove models",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				models, err := a.store.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, m := range models {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tmessages=%d\ttokens=%d\tmean_length=%.2f\n",
						m.Name, m.Messages, m.TotalWeight, m.MeanLength)
				}
				return nil
			})
		},
	}

	var seedExample bool
	createCmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				if !cmd.Flags().Changed("seed-example") {
					seedExample = a.cm.Get().SeedExample
				}
				if err := a.registry.Create(cmd.Context(), args[0], seedExample); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", args[0])
				return nil
			})
		},
	}
	createCmd.Flags().BoolVar(&seedExample, "seed-example", false, "Pre-fill the model with the built-in example sentences")

	removeCmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				if err := a.registry.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(listCmd, createCmd, removeCmd)
	return cmd
}
