package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Удалить элементы старше самого длинного срока хранения",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		days, err := a.Retention.RetentionDays(ctx)
		if err != nil {
			return err
		}
		deleted, err := a.Retention.Sweep(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Срок хранения: %d дн., удалено: %d\n", days, deleted)
		return nil
	},
}
