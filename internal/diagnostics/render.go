package diagnostics

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

const (
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
	colorReset  = "\033[0m"
)

// Render writes diagnostics in file:line:col form, one related line per
// secondary location, followed by a summary. Colour is used only when w is
// a terminal.
func Render(w io.Writer, diags []*DiagnosticError) error {
	color := isTerminal(w)
	errs, warns := 0, 0
	for _, d := range diags {
		sev, on := d.Severity.String(), colorRed
		if d.IsWarning() {
			warns++
			on = colorYellow
		} else {
			errs++
		}
		if color {
			sev = on + sev + colorReset
		}
		if _, err := fmt.Fprintf(w, "%s: %s %s: %s\n", d.Location, sev, d.Code, d.Message); err != nil {
			return err
		}
		for _, r := range d.Related {
			line := fmt.Sprintf("  related: %s (%s)", r.Location, r.Message)
			if color {
				line = colorDim + line + colorReset
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, Summary(errs, warns))
	return err
}

// Summary formats the error and warning counts.
func Summary(errs, warns int) string {
	return fmt.Sprintf("%s %s, %s %s",
		humanize.Comma(int64(errs)), plural(errs, "error"),
		humanize.Comma(int64(warns)), plural(warns, "warning"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
