package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRootCmd builds the command tree with its own viper instance, so every
// invocation sees only its own flags and environment.
func newRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "chemformula",
		Short:         "Chemical formula parser",
		Long:          "chemformula parses chemical formulas such as Mg2[CH4{NNi2(Li2O4)5}14]3 into per-atom counts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	initConfig(v)

	rootCmd.PersistentFlags().StringP("format", "f", "text", "Output format: text, json, yaml or msgpack")
	rootCmd.PersistentFlags().String("color", "auto", "Color diagnostics: auto, always or never")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	_ = v.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = v.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
	_ = v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(newParseCmd(v), newBatchCmd(v), newServeCmd(v))
	return rootCmd
}

func initConfig(v *viper.Viper) {
	v.SetEnvPrefix("CHEMFORMULA")
	v.AutomaticEnv()
}

// verbosef writes progress to stderr when verbose output is enabled.
func verbosef(v *viper.Viper, w io.Writer, format string, args ...any) {
	if v.GetBool("verbose") {
		fmt.Fprintf(w, format, args...)
	}
}
