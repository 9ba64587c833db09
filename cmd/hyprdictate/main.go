package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/leonardotrapani/hyprdictate/internal/bus"
	"github.com/leonardotrapani/hyprdictate/internal/config"
	"github.com/leonardotrapani/hyprdictate/internal/daemon"
	"github.com/leonardotrapani/hyprdictate/internal/tui"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hyprdictate",
		Short: "Local push-to-talk dictation for Wayland/Hyprland",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			tui.UseTerminalProfile()
			// the daemon always logs; one-shot commands only with -v
			if !verbose && cmd.Name() != "serve" {
				log.SetOutput(io.Discard)
			}
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/hyprdictate/config.toml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")

	root.AddCommand(
		serveCmd(),
		toggleCmd(),
		cancelCmd(),
		statusCmd(),
		versionCmd(),
		stopCmd(),
		configureCmd(),
		modelCmd(),
		transcribeCmd(),
		historyCmd(),
		glossaryCmd(),
		doctorCmd(),
	)
	return root
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return config.ExpandHome(configPath), nil
	}
	return config.GetConfigPath()
}

func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			mgr, err := config.NewManagerFromFile(path)
			if err != nil {
				return err
			}
			if err := mgr.GetConfig().Validate(); err != nil {
				return fmt.Errorf("invalid configuration %s: %w", path, err)
			}

			d, err := daemon.New(mgr, daemon.Options{Version: version})
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

// controlCmd sends one control byte to the daemon and prints its reply.
func controlCmd(use, short string, code byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, err := bus.DefaultEndpoint()
			if err != nil {
				return err
			}
			resp, err := ep.SendCommand(code)
			if err != nil {
				return fmt.Errorf("%s: %w", use, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp)
			if status, _ := bus.ParseReply(resp); status == "ERR" {
				return errors.New(resp)
			}
			return nil
		},
	}
}

func toggleCmd() *cobra.Command {
	return controlCmd("toggle", "Start recording, or stop and transcribe", bus.CmdToggle)
}

func cancelCmd() *cobra.Command {
	return controlCmd("cancel", "Discard the recording or cancel the running dictation", bus.CmdCancel)
}

func statusCmd() *cobra.Command {
	return controlCmd("status", "Get the daemon's current state", bus.CmdStatus)
}

func stopCmd() *cobra.Command {
	return controlCmd("stop", "Stop the daemon", bus.CmdQuit)
}

func versionCmd() *cobra.Command {
	cmd := controlCmd("version", "Print client and daemon versions", bus.CmdVersion)
	inner := cmd.RunE
	cmd.RunE = func(c *cobra.Command, args []string) error {
		fmt.Fprintf(c.OutOrStdout(), "hyprdictate %s (protocol %s)\n", version, bus.ProtoVer)
		err := inner(c, args)
		if errors.Is(err, bus.ErrNotRunning) {
			fmt.Fprintln(c.OutOrStdout(), "daemon not running")
			return nil
		}
		return err
	}
	return cmd
}
