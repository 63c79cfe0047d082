package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/horizons/pkg/domain"
)

// Reporter writes the human-facing outcome line. Colors are applied only
// when the writer is a terminal; piped output stays plain.
type Reporter struct {
	out   *termenv.Output
	quiet bool
}

// NewReporter builds a Reporter for w.
func NewReporter(w io.Writer, quiet bool) *Reporter {
	profile := termenv.Ascii
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		profile = termenv.EnvColorProfile()
	}
	return &Reporter{
		out:   termenv.NewOutput(w, termenv.WithProfile(profile)),
		quiet: quiet,
	}
}

// Report writes the outcome of one invocation.
func (r *Reporter) Report(o domain.Outcome) {
	if o.Failed() {
		if r.quiet {
			return
		}
		mark := r.out.String("✗").Foreground(r.out.Color("1"))
		kind := r.out.String(string(o.ErrorKind)).Bold()
		fmt.Fprintf(r.out, "%s %s: %s\n", mark, kind, o.Detail)
		return
	}

	if r.quiet {
		fmt.Fprintln(r.out, o.Path)
		return
	}
	mark := r.out.String("✓").Foreground(r.out.Color("2"))
	fmt.Fprintf(r.out, "%s wrote %s (remote %s)\n", mark, o.Path, o.Artifact)
}

// Fail reports an error that never reached the dialogue, e.g. a bad
// configuration file.
func (r *Reporter) Fail(err error) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.out, "%s %s\n", r.out.String("✗").Foreground(r.out.Color("1")), err)
}

// Interrupted reports a user-initiated abort.
func (r *Reporter) Interrupted() {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.out, "%s interrupted\n", r.out.String("✗").Foreground(r.out.Color("3")))
}
