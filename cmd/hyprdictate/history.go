package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/leonardotrapani/hyprdictate/internal/config"
	"github.com/leonardotrapani/hyprdictate/internal/history"
	"github.com/leonardotrapani/hyprdictate/internal/tui"
	"github.com/spf13/cobra"
)

func openHistory() (*history.Store, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		// history is still readable before the first configure
		cfg = config.DefaultConfig()
	}
	file, err := cfg.HistoryFile()
	if err != nil {
		return nil, err
	}
	return history.Open(file)
}

// withHistory opens the store for the duration of fn.
func withHistory(fn func(*history.Store) error) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past dictations",
	}
	cmd.AddCommand(historyListCmd(), historyShowCmd(), historyPruneCmd())
	return cmd
}

func historyListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent dictations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(func(s *history.Store) error {
				return runHistoryList(cmd.Context(), cmd.OutOrStdout(), s, limit)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of entries")
	return cmd
}

func runHistoryList(ctx context.Context, out io.Writer, s *history.Store, limit int) error {
	entries, err := s.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "no dictations yet")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %s  %s\n",
			tui.StyleMuted.Render(shortID(e.ID)),
			e.CreatedAt.Format(time.DateTime),
			truncate(e.Text, 60))
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func historyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one dictation (an id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(func(s *history.Store) error {
				return runHistoryShow(cmd.Context(), cmd.OutOrStdout(), s, args[0])
			})
		},
	}
}

func runHistoryShow(ctx context.Context, out io.Writer, s *history.Store, id string) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, tui.KeyValue("ID", e.ID))
	fmt.Fprintln(out, tui.KeyValue("Date", e.CreatedAt.Format(time.DateTime)))
	fmt.Fprintln(out, tui.KeyValue("Language", e.Language))
	fmt.Fprintln(out, tui.KeyValue("Audio", fmt.Sprintf("%.1fs", e.AudioSeconds)))
	fmt.Fprintln(out, tui.KeyValue("Transcription", e.Transcription.String()))
	if e.PostProcessed {
		pp := fmt.Sprintf("%s, mode %s", e.PostProcessing, e.Mode)
		if e.UsedFallback {
			pp += ", " + tui.StyleWarning.Render("fell back to transcript")
		}
		fmt.Fprintln(out, tui.KeyValue("Post-processing", pp))
		fmt.Fprintln(out)
		fmt.Fprintln(out, tui.StyleLabel.Render("Transcript"))
		fmt.Fprintln(out, e.Transcript)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, tui.StyleLabel.Render("Text"))
	fmt.Fprintln(out, e.Text)
	return nil
}

func historyPruneCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest dictations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative")
			}
			return withHistory(func(s *history.Store) error {
				n, err := s.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 100, "entries to keep")
	return cmd
}
