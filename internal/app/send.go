package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/tonylturner/dccverify/internal/protocol"
	"github.com/tonylturner/dccverify/internal/session"
	"github.com/tonylturner/dccverify/internal/ui"
)

// SendOptions configures a single exchange.
type SendOptions struct {
	CommonOptions
	Lines  []string
	Expect string // empty accepts any answer
	Copy   bool   // put the transcript on the clipboard
}

// RunSend probes the station's feedback mode, then sends each line and
// prints what came back. It returns the outcomes in order.
func RunSend(opts SendOptions) ([]session.Outcome, error) {
	opts.defaults()
	if len(opts.Lines) == 0 {
		return nil, fmt.Errorf("no command line given")
	}
	cfg, err := loadConfig(opts.CommonOptions)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	defer logger.Close()

	ctx, cancel := signalContext(logger)
	defer cancel()

	st, err := openStation(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	mode, err := st.session.Probe(ctx)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	fmt.Fprintf(opts.Stdout, "# station feedback: %s\n", mode)

	exp := session.Expectation(opts.Expect)

	var transcript strings.Builder
	outs := make([]session.Outcome, 0, len(opts.Lines))
	for _, line := range opts.Lines {
		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			return outs, err
		}
		out, err := st.session.Check(ctx, cmd, exp)
		if err != nil {
			return outs, err
		}
		outs = append(outs, out)

		status := "PASS"
		if !out.Passed {
			status = "FAIL"
		}
		if out.TimedOut {
			status += " (timeout)"
		}
		fmt.Fprintf(opts.Stdout, "%q --> %q --> %q  %s in %s\n", cmd.Line(), out.Echo, out.Response, status, out.RTT.Round(time.Microsecond))
		transcript.WriteString(ui.FormatTranscript(cmd.Line(), out.Echo, out.Response))
	}

	if opts.Copy {
		if err := ui.CopyToClipboard(transcript.String()); err != nil {
			logger.Error("%v", err)
		} else {
			fmt.Fprintln(opts.Stdout, "# transcript copied to clipboard")
		}
	}
	for _, out := range outs {
		if !out.Passed {
			return outs, ErrCasesFailed
		}
	}
	return outs, nil
}
