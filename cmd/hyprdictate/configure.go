package main

import (
	"errors"
	"fmt"
	"os/exec"
	"slices"

	"github.com/leonardotrapani/hyprdictate/internal/config"
	"github.com/leonardotrapani/hyprdictate/internal/models"
	"github.com/leonardotrapani/hyprdictate/internal/tui"
	"github.com/spf13/cobra"
)

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration for hyprdictate.
This will guide you through setting up:
- The transcription tool, model and language
- Local post-processing and the glossary
- Recording, output backends and notifications`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	cfg, err := config.LoadFile(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg = config.DefaultConfig()
	} else if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dataDir, err := config.GetDataDir()
	if err != nil {
		return err
	}

	result, err := tui.Run(cfg, models.DefaultStore(dataDir))
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := config.Save(result.Config, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.StyleSuccess.Render("Configuration saved successfully!"))
	fmt.Println()
	showNextSteps(result.Config, path)
	return nil
}

func showNextSteps(cfg *config.Config, path string) {
	serviceRunning := exec.Command("systemctl", "--user", "is-active", "--quiet", "hyprdictate.service").Run() == nil

	fmt.Println("Next Steps:")
	step := 1
	if cfg.Transcription.Model == "" {
		fmt.Printf("%d. Download a speech model: hyprdictate model download base.en\n", step)
		step++
	}
	if slices.Contains(cfg.Output.Backends, "ydotool") {
		fmt.Printf("%d. Ensure ydotoold is running\n", step)
		step++
	}
	if !serviceRunning {
		fmt.Printf("%d. Start the daemon: hyprdictate serve (or systemctl --user start hyprdictate.service)\n", step)
	} else {
		fmt.Printf("%d. Changes apply to the next dictation, no restart needed\n", step)
	}
	step++
	fmt.Printf("%d. Bind a key to: hyprdictate toggle\n", step)
	fmt.Println()
	fmt.Printf("Config file location: %s\n", path)
}
