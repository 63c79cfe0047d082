package cli

import (
	"context"
	"io"
	"log/slog"

	horizons "github.com/aretw0/horizons"
	"github.com/aretw0/horizons/internal/config"
	"github.com/aretw0/horizons/internal/logging"
	"github.com/aretw0/horizons/pkg/domain"
)

// FetchParams collects everything the fetch command gathered from flags
// and arguments. Empty fields fall back to the configuration file.
type FetchParams struct {
	ConfigPath string

	Object   string
	Elements string
	Dest     string

	Center     string
	Start      string
	Stop       string
	Step       string
	Quantities string
	Email      string

	TimeoutSeconds int

	Debug bool
	Quiet bool
}

// RunFetch loads settings, runs one complete fetch and reports the
// outcome on stdout. A non-nil return means the fetch did not produce an
// artifact; the caller decides the exit code.
func RunFetch(ctx context.Context, p FetchParams, stdout io.Writer) error {
	reporter := NewReporter(stdout, p.Quiet)

	settings, err := config.Load(p.ConfigPath)
	if err != nil {
		reporter.Fail(err)
		return err
	}
	if p.Email != "" {
		settings.Email = p.Email
	}
	if p.TimeoutSeconds > 0 {
		settings.TimeoutSeconds = p.TimeoutSeconds
	}

	req := settings.ApplyDefaults(domain.Request{
		Object:     p.Object,
		Elements:   p.Elements,
		Center:     p.Center,
		Start:      p.Start,
		Stop:       p.Stop,
		Step:       p.Step,
		Quantities: p.Quantities,
	})
	ov, err := settings.DecodeOverrides()
	if err != nil {
		reporter.Fail(err)
		return err
	}

	logger := logging.NewNop()
	if p.Debug {
		logger = logging.New(slog.LevelDebug)
	}

	client := horizons.New(
		horizons.WithDialogueAddr(settings.HorizonsAddr),
		horizons.WithTransferAddr(settings.FTPAddr),
		horizons.WithTransferDir(settings.FTPDir),
		horizons.WithEmail(settings.Email),
		horizons.WithTimeout(settings.Timeout()),
		horizons.WithLogger(logger),
	)

	sc := NewSignalContext(ctx)
	defer sc.Cancel()

	res, err := client.Fetch(sc, req, ov, p.Dest)
	if err != nil {
		if sc.Signal() != nil {
			reporter.Interrupted()
			return err
		}
		kind := domain.KindOf(err)
		if kind == "" {
			// Rejected before any connection was opened.
			reporter.Fail(err)
			return err
		}
		reporter.Report(domain.Outcome{
			ErrorKind: kind,
			Detail:    err.Error(),
		})
		return err
	}
	reporter.Report(domain.Outcome{
		Path:     res.Path,
		Artifact: res.Artifact,
		Trace:    res.Trace,
	})
	return nil
}
