package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/leonardotrapani/hyprdictate/internal/glossary"
	"github.com/leonardotrapani/hyprdictate/internal/tui"
	"github.com/spf13/cobra"
)

func glossaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glossary",
		Short: "Inspect the post-processing glossary",
	}
	cmd.AddCommand(glossaryCheckCmd())
	return cmd
}

func glossaryCheckCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Parse a glossary file and report what the daemon will use",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				path = cfg.PostProcessing.GlossaryFile
			}
			if path == "" {
				return errors.New("no glossary file configured (post_processing.glossary_file)")
			}
			return runGlossaryCheck(cmd.OutOrStdout(), path, list)
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print every entry")
	return cmd
}

func runGlossaryCheck(out io.Writer, path string, list bool) error {
	g, err := glossary.Load(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, tui.KeyValue("File", path))
	fmt.Fprintln(out, tui.KeyValue("Entries", fmt.Sprintf("%d", g.Len())))
	if g.Len() >= glossary.MaxEntries {
		fmt.Fprintln(out, tui.StyleWarning.Render(
			fmt.Sprintf("only the first %d entries are used, the rest of the file is ignored", glossary.MaxEntries)))
	}

	if list {
		fmt.Fprintln(out)
		for _, e := range g.Entries() {
			fmt.Fprintf(out, "  %s = %s\n", e.Key, e.Value)
		}
	}
	return nil
}
