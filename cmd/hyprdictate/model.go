package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/leonardotrapani/hyprdictate/internal/config"
	"github.com/leonardotrapani/hyprdictate/internal/models"
	"github.com/leonardotrapani/hyprdictate/internal/tui"
	"github.com/spf13/cobra"
)

func modelStore() (models.Store, error) {
	dataDir, err := config.GetDataDir()
	if err != nil {
		return models.Store{}, err
	}
	return models.DefaultStore(dataDir), nil
}

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage local speech and language models",
	}

	cmd.AddCommand(modelListCmd())
	cmd.AddCommand(modelDownloadCmd())
	cmd.AddCommand(modelRemoveCmd())

	return cmd
}

func modelListCmd() *cobra.Command {
	var typeFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List downloadable models",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := modelStore()
			if err != nil {
				return err
			}
			return runModelList(cmd.OutOrStdout(), store, typeFilter)
		},
	}

	cmd.Flags().StringVar(&typeFilter, "type", "", "filter by type: transcription, post-processing")
	return cmd
}

func runModelList(out io.Writer, store models.Store, typeFilter string) error {
	var kinds []models.Kind
	switch strings.ToLower(typeFilter) {
	case "":
		kinds = []models.Kind{models.Transcription, models.PostProcessing}
	case "transcription":
		kinds = []models.Kind{models.Transcription}
	case "post-processing", "llm":
		kinds = []models.Kind{models.PostProcessing}
	default:
		return fmt.Errorf("invalid type: %s (use 'transcription' or 'post-processing')", typeFilter)
	}

	for _, kind := range kinds {
		fmt.Fprintf(out, "\n%s:\n", tui.StyleLabel.Render(string(kind)))
		for _, m := range models.List(kind) {
			prefix := "  [ ]"
			if store.IsInstalled(m.ID) {
				prefix = "  [x]"
			}
			line := fmt.Sprintf("%s %s - %s [%s]", prefix, m.ID, m.Name, m.Size)
			if !m.Multilingual {
				line += " english only"
			}
			fmt.Fprintln(out, line)
		}
	}
	fmt.Fprintf(out, "\nmodels directory: %s\n", store.Dir)
	return nil
}

func modelDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <model-id>",
		Short: "Download a model into the models directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := modelStore()
			if err != nil {
				return err
			}
			return runModelDownload(cmd.Context(), cmd.OutOrStdout(), models.NewDownloader(store), args[0])
		},
	}
}

func runModelDownload(ctx context.Context, out io.Writer, d *models.Downloader, id string) error {
	info, ok := models.Get(id)
	if !ok {
		return fmt.Errorf("unknown model: %s (see hyprdictate model list)", id)
	}

	if d.Store.IsInstalled(id) {
		path, _ := d.Store.Path(id)
		fmt.Fprintf(out, "model '%s' is already installed at %s\n", id, path)
		return nil
	}

	fmt.Fprintf(out, "downloading %s (%s)...\n", id, info.Size)

	var lastPercent int
	err := d.Download(ctx, id, func(downloaded, total int64) {
		if total > 0 {
			percent := int(downloaded * 100 / total)
			if percent >= lastPercent+10 {
				fmt.Fprintf(out, "%d%% ", percent)
				lastPercent = percent
			}
		}
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	path, _ := d.Store.Path(id)
	fmt.Fprintf(out, "\ndownload complete: %s\n", path)
	key := "transcription.model"
	if info.Kind == models.PostProcessing {
		key = "post_processing.model"
	}
	fmt.Fprintf(out, "set %s = %q in your config to use it\n", key, path)
	return nil
}

func modelRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <model-id>",
		Short: "Remove a downloaded model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := modelStore()
			if err != nil {
				return err
			}
			if err := store.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model '%s' removed successfully\n", args[0])
			return nil
		},
	}
}
