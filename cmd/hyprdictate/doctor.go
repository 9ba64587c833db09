package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/leonardotrapani/hyprdictate/internal/bus"
	"github.com/leonardotrapani/hyprdictate/internal/config"
	"github.com/leonardotrapani/hyprdictate/internal/deps"
	"github.com/leonardotrapani/hyprdictate/internal/glossary"
	"github.com/leonardotrapani/hyprdictate/internal/recording"
	"github.com/leonardotrapani/hyprdictate/internal/tui"
	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the configuration, external tools and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			ep, err := bus.DefaultEndpoint()
			if err != nil {
				return err
			}
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), cfg, path, ep)
		},
	}
}

func requirementsFor(cfg *config.Config) deps.Requirements {
	req := deps.Requirements{
		Transcriber:    cfg.Transcription.Executable,
		OutputBackends: cfg.Output.Backends,
	}
	if cfg.PostProcessing.Enabled {
		req.PostProcessor = cfg.PostProcessing.Executable
	}
	return req
}

// runDoctor prints a report and fails when something the daemon needs is
// missing.
func runDoctor(ctx context.Context, out io.Writer, cfg *config.Config, path string, ep bus.Endpoint) error {
	var problems []string
	check := func(ok bool, label, detail string) {
		line := fmt.Sprintf("%s %s", tui.Mark(ok), label)
		if detail != "" {
			line += " " + tui.StyleMuted.Render(detail)
		}
		fmt.Fprintln(out, line)
		if !ok {
			problems = append(problems, label)
		}
	}

	fmt.Fprintln(out, tui.StyleHeader.Render("Configuration"))
	fmt.Fprintln(out, tui.KeyValue("File", path))
	for _, line := range tui.SummaryLines(cfg) {
		fmt.Fprintln(out, line)
	}
	verr := cfg.Validate()
	check(verr == nil, "configuration is valid", errString(verr))
	fmt.Fprintln(out)

	fmt.Fprintln(out, tui.StyleHeader.Render("Tools"))
	for _, s := range deps.CheckAll(ctx, deps.Tools(requirementsFor(cfg))) {
		detail := s.Path
		if s.Version != "" {
			detail += " (" + s.Version + ")"
		}
		if !s.Installed {
			detail = "not found"
		}
		label := fmt.Sprintf("%s for %s", s.Name, s.Purpose)
		if s.Required {
			check(s.Installed, label, detail)
		} else {
			fmt.Fprintf(out, "%s %s %s\n", tui.Mark(s.Installed), label, tui.StyleMuted.Render(detail))
		}
	}
	if err := recording.CheckPipeWireAvailable(ctx); err != nil {
		check(false, "PipeWire is running", err.Error())
	} else {
		check(true, "PipeWire is running", "")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, tui.StyleHeader.Render("Models"))
	check(fileExists(cfg.Transcription.Model), "speech model", cfg.Transcription.Model)
	if cfg.PostProcessing.Enabled {
		check(fileExists(cfg.PostProcessing.Model), "language model", cfg.PostProcessing.Model)
		if cfg.PostProcessing.GlossaryFile != "" {
			g, err := glossary.Load(cfg.PostProcessing.GlossaryFile)
			detail := fmt.Sprintf("%d entries", g.Len())
			if err != nil {
				detail = err.Error()
			}
			check(err == nil, "glossary", detail)
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, tui.StyleHeader.Render("Daemon"))
	if resp, err := ep.SendCommand(bus.CmdStatus); err == nil {
		_, fields := bus.ParseReply(resp)
		fmt.Fprintf(out, "%s running, state %s\n", tui.Mark(true), fields["state"])
	} else if errors.Is(err, bus.ErrNotRunning) {
		fmt.Fprintf(out, "%s not running %s\n", tui.Mark(false), tui.StyleMuted.Render("(start it with: hyprdictate serve)"))
	} else {
		fmt.Fprintf(out, "%s %v\n", tui.Mark(false), err)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%d problem(s) found", len(problems))
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
