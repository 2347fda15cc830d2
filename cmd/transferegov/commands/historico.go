package commands

import (
	"os"
	"transferegov-backend/internal/components/chrono"

	"github.com/spf13/cobra"
)

var (
	historyLimit    *int
	historyConvenio *string
)

func init() {
	historyLimit = historyCmd.Flags().IntP("limit", "n", 20, "How many runs to list.")
	historyConvenio = historyCmd.Flags().String("convenio", "", "List the stored rows of this instrument instead of the runs.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "historico [--limit <n>] [--convenio <numero_convenio>]",
	Short: "Lists the latest stored runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		if *historyConvenio != "" {
			rows, err := a.store.Instruments(ctx, *historyConvenio)
			if err != nil {
				return err
			}
			renderStoredInstruments(os.Stdout, rows)
			return nil
		}

		runs, err := a.service.History(ctx, *historyLimit)
		if err != nil {
			return err
		}
		clock, err := chrono.NewStandardImpl()
		if err != nil {
			return err
		}
		renderHistory(os.Stdout, runs, clock.Location())
		return nil
	},
}
