package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/report-review/internal/prompts"
)

func newInitPromptsCmd(a *app) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init-prompts [dir]",
		Short: "Write the shipped prompt templates for editing",
		Long: `Writes individual/prompt.yaml and aggregate/prompt.yaml under dir (default
"prompts"). Pass the directory to analyze or serve with --prompts-dir. Existing
files are kept unless --force is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := "prompts"
			if len(args) == 1 {
				dir = args[0]
			}
			written, err := prompts.WriteDefaults(dir, overwrite)
			if err != nil {
				return err
			}
			if len(written) == 0 {
				_, _ = fmt.Fprintf(a.stdout, "Prompt templates already exist in %s (use --force to overwrite)\n", dir)
				return nil
			}
			for _, path := range written {
				_, _ = fmt.Fprintf(a.stdout, "Wrote %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "force", false, "Overwrite existing templates")
	return cmd
}
