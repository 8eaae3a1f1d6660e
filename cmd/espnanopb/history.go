package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/kitextech/ESPNanopb/internal/journal"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, err := workDir()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(repoRoot)
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return fmt.Errorf("journal is disabled in config")
			}
			db, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			runs, err := journal.NewStore(db).ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func renderHistory(runs []journal.RunRecord) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		stages := make([]string, 0, len(run.Stages))
		for _, st := range run.Stages {
			stages = append(stages, st.Stage+":"+st.Status)
		}
		rows = append(rows, []string{
			run.RunID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Mode,
			run.Status,
			run.Tag,
			strings.Join(stages, " "),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "STARTED", "MODE", "STATUS", "TAG", "STAGES").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Rows(rows...)
	return t.Render()
}
