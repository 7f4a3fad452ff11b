package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"devfeed/internal/domain"
)

var runFlags struct {
	source   string
	provider string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Запустить прогон источника, провайдера или всех источников",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.source, "source", "", "идентификатор источника (запускается даже если выключен)")
	f.StringVar(&runFlags.provider, "provider", "", "тип провайдера")
	runCmd.MarkFlagsMutuallyExclusive("source", "provider")
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var results []domain.RunResult
	switch {
	case runFlags.source != "":
		res, err := a.Runner.RunSource(ctx, runFlags.source)
		if err != nil {
			return err
		}
		results = []domain.RunResult{res}
	case runFlags.provider != "":
		provider, ok := domain.ParseProviderType(runFlags.provider)
		if !ok {
			return fmt.Errorf("неизвестный провайдер %q", runFlags.provider)
		}
		results, err = a.Runner.RunProvider(ctx, provider)
		if err != nil {
			return err
		}
	default:
		results, err = a.Runner.RunAll(ctx)
		if err != nil {
			printResults(cmd.OutOrStdout(), results)
			return err
		}
	}
	printResults(cmd.OutOrStdout(), results)
	for _, res := range results {
		if res.Err != nil {
			return errors.New("часть источников завершилась ошибкой")
		}
	}
	return nil
}

func printResults(out io.Writer, results []domain.RunResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, "Нет источников для запуска")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tPROVIDER\tCREATED\tSKIPPED\tSTATUS")
	for _, res := range results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", res.SourceID, res.Provider, res.Created, res.Skipped, res.Status)
	}
	_ = w.Flush()
}
