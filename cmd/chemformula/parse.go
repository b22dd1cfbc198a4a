package main

import (
	"fmt"

	"github.com/martinemde/chemformula/formula"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newParseCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <formula>...",
		Short: "Parse formulas and print their atom counts",
		Long:  "Parse each formula argument and print its atom counts in first-seen order. Stops at the first invalid formula.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, v, args)
		},
	}
}

func runParse(cmd *cobra.Command, v *viper.Viper, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	colorize, err := useColor(v.GetString("color"), stderr)
	if err != nil {
		return err
	}
	enc, err := newRecordEncoder(stdout, v.GetString("format"), len(args) > 1)
	if err != nil {
		return err
	}

	for _, src := range args {
		counts, err := formula.Parse(src)
		if err != nil {
			renderDiagnostic(stderr, src, err, colorize)
			_ = enc.Close()
			return &reportedError{fmt.Errorf("parsing %q: %w", src, err)}
		}
		verbosef(v, stderr, "[parse] %s: %d distinct atoms\n", src, counts.Len())
		if err := enc.Encode(record{Formula: src, Counts: counts}); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return enc.Close()
}
