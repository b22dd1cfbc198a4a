package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/martinemde/chemformula/formula"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// reportedError marks an error whose diagnostic has already been written,
// so main only needs to set the exit status.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func isReported(err error) bool {
	var reported *reportedError
	return errors.As(err, &reported)
}

// useColor resolves the color mode ("auto", "always" or "never") for w.
func useColor(mode string, w io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "", "auto":
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("unknown color mode %q (want auto, always or never)", mode)
	}
}

// renderDiagnostic writes err with the offending formula and a caret under
// the reported offset:
//
//	error: offset 5: missing closing bracket for '(' opened at offset 2
//	  Na(OH
//	       ^
func renderDiagnostic(w io.Writer, src string, err error, colorize bool) {
	errColor := color.New(color.FgRed, color.Bold)
	caretColor := color.New(color.FgGreen, color.Bold)
	if colorize {
		errColor.EnableColor()
		caretColor.EnableColor()
	} else {
		errColor.DisableColor()
		caretColor.DisableColor()
	}

	fmt.Fprintf(w, "%s %s\n", errColor.Sprint("error:"), err)

	pos, ok := formula.ErrorPosition(err)
	if !ok {
		return
	}
	offset := min(max(pos.Offset, 0), len(src))
	indent := runewidth.StringWidth(src[:offset])

	fmt.Fprintf(w, "  %s\n", src)
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", indent), caretColor.Sprint("^"))
}
