package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var sourcesSyncFlags struct {
	file string
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Управление источниками",
}

var sourcesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Загрузить источники из YAML-файла",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		path := sourcesSyncFlags.file
		if path == "" {
			path = a.Config.SourcesFile
		}
		if path == "" {
			return fmt.Errorf("не указан файл источников (--file или SOURCES_FILE)")
		}
		saved, err := a.SyncSources(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Синхронизировано источников: %d\n", len(saved))
		return nil
	},
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать источники и их статусы",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sources, err := a.Store.ListSources(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPROVIDER\tACTIVE\tAUTO\tSTATUS\tLAST FETCHED")
		for _, src := range sources {
			last := "-"
			if src.LastFetchedAt != nil {
				last = src.LastFetchedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\t%s\n", src.ID, src.Provider, src.Active, src.AutoFetchEnabled, src.Status, last)
		}
		return w.Flush()
	},
}

func init() {
	sourcesSyncCmd.Flags().StringVarP(&sourcesSyncFlags.file, "file", "f", "", "YAML-файл источников")
	sourcesCmd.AddCommand(sourcesSyncCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
}
