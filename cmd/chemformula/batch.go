package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/martinemde/chemformula/formula"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// batchEntry is one formula to parse in a batch.
type batchEntry struct {
	Name string `toml:"name"`
	Text string `toml:"text"`
}

// manifest is the TOML batch input:
//
//	[[formula]]
//	name = "water"
//	text = "H2O"
type manifest struct {
	Formulas []batchEntry `toml:"formula"`
}

// maxLineBytes bounds a single formula line read from stdin.
const maxLineBytes = 64 << 20

type batchResult struct {
	counts *formula.AtomCount
	err    error
}

func newBatchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Parse many formulas concurrently",
		Long: "Parse formulas from a TOML manifest (--manifest) or one per line from stdin. " +
			"Blank lines and lines starting with # are skipped. Results are printed in input order.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, v)
		},
	}

	cmd.Flags().String("manifest", "", "TOML manifest with [[formula]] entries (default: read stdin)")
	cmd.Flags().Bool("keep-going", false, "Report every invalid formula instead of stopping at the first")
	cmd.Flags().IntP("workers", "j", 0, "Concurrent parsers (default: GOMAXPROCS)")

	_ = v.BindPFlag("workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func runBatch(cmd *cobra.Command, v *viper.Viper) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	manifestPath, _ := cmd.Flags().GetString("manifest")
	keepGoing, _ := cmd.Flags().GetBool("keep-going")

	colorize, err := useColor(v.GetString("color"), stderr)
	if err != nil {
		return err
	}
	enc, err := newRecordEncoder(stdout, v.GetString("format"), true)
	if err != nil {
		return err
	}

	var entries []batchEntry
	if manifestPath != "" {
		entries, err = readManifest(manifestPath)
	} else {
		entries, err = readLines(cmd.InOrStdin())
	}
	if err != nil {
		return err
	}

	workers := v.GetInt("workers")
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]batchResult, len(entries))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)
	for i, entry := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			counts, err := formula.Parse(entry.Text)
			results[i] = batchResult{counts: counts, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}
	verbosef(v, stderr, "[batch] parsed %d formulas with %d workers\n", len(entries), workers)

	failed := 0
	for i, entry := range entries {
		res := results[i]
		if res.err != nil {
			failed++
			if entry.Name != "" {
				fmt.Fprintf(stderr, "%s:\n", entry.Name)
			}
			renderDiagnostic(stderr, entry.Text, res.err, colorize)
			if !keepGoing {
				_ = enc.Close()
				return &reportedError{fmt.Errorf("parsing %q: %w", entry.Text, res.err)}
			}
			continue
		}
		if err := enc.Encode(record{Name: entry.Name, Formula: entry.Text, Counts: res.counts}); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if failed > 0 {
		return &reportedError{fmt.Errorf("%d of %d formulas failed to parse", failed, len(entries))}
	}
	return nil
}

func readManifest(path string) ([]batchEntry, error) {
	var m manifest
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("reading manifest: unknown keys %v", undecoded)
	}
	return m.Formulas, nil
}

// readLines reads one formula per line. It refuses to wait on an
// interactive terminal.
func readLines(r io.Reader) ([]batchEntry, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, errors.New("no input: pipe formulas on stdin or pass --manifest")
	}

	var entries []batchEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, batchEntry{Text: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return entries, nil
}
