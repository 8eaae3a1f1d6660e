package main

import (
	"fmt"

	"github.com/kitextech/ESPNanopb/internal/prompt"
	"github.com/kitextech/ESPNanopb/internal/release"
	"github.com/spf13/cobra"
)

func publishCmd() *cobra.Command {
	var flags tagFlags
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Generate the schema, copy the artifacts and tag the library",
		Long: "Run the schema generator, copy the generated artifacts into the destination " +
			"directory, list the library tags and optionally create and push a new annotated tag.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runStages(cmd, flags.asker(cmd))
			printSummary(cmd, report)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Run the schema generator only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runStages(cmd, nil, release.StageGenerate)
			return err
		},
	}
}

func distributeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distribute",
		Short: "Copy the generated artifacts into the destination directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runStages(cmd, nil, release.StageDistribute)
			printSummary(cmd, report)
			return err
		},
	}
}

func tagCmd() *cobra.Command {
	var flags tagFlags
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "List tags and optionally create and push a new annotated tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runStages(cmd, flags.asker(cmd), release.StagePublish)
			printSummary(cmd, report)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func printSummary(cmd *cobra.Command, report release.Report) {
	out := cmd.OutOrStdout()
	for _, c := range report.Copied {
		fmt.Fprintf(out, "copied %s -> %s (%d bytes)\n", c.Name, c.Destination, c.Bytes)
	}
	if report.Tag == nil {
		return
	}
	switch {
	case report.Tag.Pushed:
		fmt.Fprintf(out, "tag %s pushed\n", report.Tag.Request.Name)
	case report.Tag.Request.Action == prompt.ActionSkip && report.Tag.Request.Name != "":
		fmt.Fprintln(out, "tagging skipped")
	}
}
