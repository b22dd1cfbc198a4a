package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/martinemde/chemformula/formula"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// runCLI executes the command tree with args and returns stdout, stderr and
// the command error.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestParseCommandText(t *testing.T) {
	stdout, _, err := runCLI(t, "", "parse", "Mg2[CH4{NNi2(Li2O4)5}14]3")
	require.NoError(t, err)
	assert.Equal(t, "{Mg: 2, C: 3, H: 12, N: 42, Ni: 84, Li: 420, O: 840}\n", stdout)
}

func TestParseCommandLabelsMultipleFormulas(t *testing.T) {
	stdout, _, err := runCLI(t, "", "parse", "H2O", "O2H2")
	require.NoError(t, err)
	assert.Equal(t, "H2O\t{H: 2, O: 1}\nO2H2\t{O: 2, H: 2}\n", stdout)
}

func TestParseCommandJSON(t *testing.T) {
	stdout, _, err := runCLI(t, "", "parse", "--format", "json", "H2O")
	require.NoError(t, err)
	assert.Equal(t, `{"formula":"H2O","counts":{"H":2,"O":1}}`+"\n", stdout)
}

func TestParseCommandYAML(t *testing.T) {
	stdout, _, err := runCLI(t, "", "parse", "-f", "yaml", "O2H")
	require.NoError(t, err)
	assert.Equal(t, "formula: O2H\ncounts:\n    O: 2\n    H: 1\n", stdout)
}

func TestParseCommandMsgpack(t *testing.T) {
	stdout, _, err := runCLI(t, "", "parse", "-f", "msgpack", "CH4")
	require.NoError(t, err)

	var rec record
	require.NoError(t, msgpack.Unmarshal([]byte(stdout), &rec))
	assert.Equal(t, "CH4", rec.Formula)
	require.NotNil(t, rec.Counts)
	assert.Equal(t, "{C: 1, H: 4}", rec.Counts.String())
}

func TestParseCommandDiagnostic(t *testing.T) {
	stdout, stderr, err := runCLI(t, "", "parse", "--color", "never", "H2O", "Na(OH")
	require.Error(t, err)
	assert.True(t, isReported(err))
	assert.Equal(t, formula.KindUnmatchedBracket, formula.Kind(err))

	assert.Equal(t, "H2O\t{H: 2, O: 1}\n", stdout)
	assert.Equal(t,
		"error: offset 5: missing closing bracket for '(' opened at offset 2\n"+
			"  Na(OH\n"+
			"       ^\n",
		stderr)
}

func TestParseCommandColorAlways(t *testing.T) {
	_, stderr, err := runCLI(t, "", "parse", "--color", "always", "NaOH)")
	require.Error(t, err)
	assert.Contains(t, stderr, "\x1b[")
	assert.Contains(t, stderr, "NaOH)")
}

func TestParseCommandBadFlags(t *testing.T) {
	_, _, err := runCLI(t, "", "parse", "--format", "xml", "H2O")
	require.Error(t, err)
	assert.False(t, isReported(err))
	assert.Contains(t, err.Error(), "unknown output format")

	_, _, err = runCLI(t, "", "parse", "--color", "sometimes", "H2O")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown color mode")

	_, _, err = runCLI(t, "", "parse")
	require.Error(t, err)
}

func TestParseCommandFormatFromEnv(t *testing.T) {
	t.Setenv("CHEMFORMULA_FORMAT", "json")
	stdout, _, err := runCLI(t, "", "parse", "H2O")
	require.NoError(t, err)
	assert.Equal(t, `{"formula":"H2O","counts":{"H":2,"O":1}}`+"\n", stdout)
}

func TestParseCommandVerbose(t *testing.T) {
	_, stderr, err := runCLI(t, "", "parse", "-v", "H2O")
	require.NoError(t, err)
	assert.Contains(t, stderr, "[parse] H2O: 2 distinct atoms")
}

func TestBatchCommandStdin(t *testing.T) {
	input := "H2O\n\n# comment\n  CO2  \nMg2[CH4{NNi2(Li2O4)5}14]3\n"
	stdout, _, err := runCLI(t, input, "batch", "-j", "2")
	require.NoError(t, err)
	assert.Equal(t,
		"H2O\t{H: 2, O: 1}\n"+
			"CO2\t{C: 1, O: 2}\n"+
			"Mg2[CH4{NNi2(Li2O4)5}14]3\t{Mg: 2, C: 3, H: 12, N: 42, Ni: 84, Li: 420, O: 840}\n",
		stdout)
}

func TestBatchCommandPreservesInputOrder(t *testing.T) {
	var lines []string
	var want strings.Builder
	for i := 1; i <= 200; i++ {
		f := fmt.Sprintf("(CH2)%dO", i)
		lines = append(lines, f)
		fmt.Fprintf(&want, "%s\t{C: %d, H: %d, O: 1}\n", f, i, 2*i)
	}
	stdout, _, err := runCLI(t, strings.Join(lines, "\n"), "batch", "--workers", "8")
	require.NoError(t, err)
	assert.Equal(t, want.String(), stdout)
}

func TestBatchCommandStopsAtFirstFailure(t *testing.T) {
	stdout, stderr, err := runCLI(t, "H2O\nNaOH)\nCO2\nNa(OH\n", "batch", "--color", "never")
	require.Error(t, err)
	assert.True(t, isReported(err))
	assert.Equal(t, formula.KindTrailingInput, formula.Kind(err))

	assert.Equal(t, "H2O\t{H: 2, O: 1}\n", stdout)
	assert.Contains(t, stderr, "offset 4")
	assert.NotContains(t, stderr, "offset 5")
}

func TestBatchCommandKeepGoing(t *testing.T) {
	stdout, stderr, err := runCLI(t, "H2O\nNaOH)\nCO2\nNa(OH\n", "batch", "--keep-going", "--color", "never")
	require.Error(t, err)
	assert.True(t, isReported(err))
	assert.Contains(t, err.Error(), "2 of 4 formulas failed")

	assert.Equal(t, "H2O\t{H: 2, O: 1}\nCO2\t{C: 1, O: 2}\n", stdout)
	assert.Contains(t, stderr, "offset 4")
	assert.Contains(t, stderr, "offset 5")
}

func TestBatchCommandLongLine(t *testing.T) {
	long := strings.Repeat("H", 200_000)
	stdout, _, err := runCLI(t, long+"\nO2\n", "batch")
	require.NoError(t, err)
	assert.Equal(t, long+"\t{H: 200000}\nO2\t{O: 2}\n", stdout)
}

func TestBatchCommandManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formulas.toml")
	manifest := `
[[formula]]
name = "water"
text = "H2O"

[[formula]]
name = "glucose"
text = "C6H12O6"

[[formula]]
text = "NaCl"
`
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	stdout, _, err := runCLI(t, "", "batch", "--manifest", path)
	require.NoError(t, err)
	assert.Equal(t,
		"water\t{H: 2, O: 1}\n"+
			"glucose\t{C: 6, H: 12, O: 6}\n"+
			"NaCl\t{Na: 1, Cl: 1}\n",
		stdout)

	stdout, _, err = runCLI(t, "", "batch", "--manifest", path, "-f", "json")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `{"name":"water","formula":"H2O","counts":{"H":2,"O":1}}`, lines[0])
	assert.Equal(t, `{"formula":"NaCl","counts":{"Na":1,"Cl":1}}`, lines[2])
}

func TestBatchCommandManifestNamesFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formulas.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[formula]]\nname = \"broken\"\ntext = \"H2O+\"\n"), 0o644))

	_, stderr, err := runCLI(t, "", "batch", "--manifest", path, "--color", "never")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(stderr, "broken:\nerror: offset 3"))
}

func TestBatchCommandManifestUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formulas.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[formula]]\nformula = \"H2O\"\n"), 0o644))

	_, _, err := runCLI(t, "", "batch", "--manifest", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
}

func TestBatchCommandYAMLDocuments(t *testing.T) {
	stdout, _, err := runCLI(t, "H2O\nCO2\n", "batch", "-f", "yaml")
	require.NoError(t, err)

	dec := yaml.NewDecoder(strings.NewReader(stdout))
	var formulas []string
	for {
		var doc struct {
			Formula string `yaml:"formula"`
		}
		err := dec.Decode(&doc)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		formulas = append(formulas, doc.Formula)
	}
	assert.Equal(t, []string{"H2O", "CO2"}, formulas)
}

func TestUseColor(t *testing.T) {
	on, err := useColor("always", &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, on)

	on, err = useColor("auto", &bytes.Buffer{})
	require.NoError(t, err)
	assert.False(t, on, "non-terminal writers are never colored in auto mode")

	t.Setenv("NO_COLOR", "1")
	on, err = useColor("auto", os.Stderr)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestRenderDiagnosticNonASCII(t *testing.T) {
	var buf bytes.Buffer
	src := "H2O日"
	_, err := formula.Parse(src)
	require.Error(t, err)

	renderDiagnostic(&buf, src, err, false)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "     ^", lines[2])
}

func TestRenderDiagnosticWithoutPosition(t *testing.T) {
	var buf bytes.Buffer
	renderDiagnostic(&buf, "H2O", fmt.Errorf("boom"), false)
	assert.Equal(t, "error: boom\n", buf.String())
}

func TestServeHandlesRequestsUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, viper.New(), io.Discard)
	}()

	url := "http://" + ln.Addr().String() + "/formulas"
	resp, err := http.Post(url, "application/json", strings.NewReader(`{"formula":"H2O"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Counts json.RawMessage `json:"counts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, `{"H":2,"O":1}`, string(body.Counts))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
