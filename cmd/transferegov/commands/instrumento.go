package commands

import (
	"os"
	"transferegov-backend/internal/scrapers/transferegov"

	"github.com/spf13/cobra"
)

var (
	instrumentEnvironment *string
	instrumentJson        *bool
)

func init() {
	instrumentEnvironment = instrumentCmd.Flags().String("environment", "", "homolog or production, the configured environment when empty.")
	instrumentJson = instrumentCmd.Flags().Bool("json", false, "Print the outcome as json.")
	rootCmd.AddCommand(instrumentCmd)
}

var instrumentCmd = &cobra.Command{
	Use:   "instrumento <numero_convenio> [--environment <env>] [--json]",
	Short: "Lists the procurement processes of an instrument.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		env, err := transferegov.ParseEnvironment(*instrumentEnvironment, "")
		if err != nil {
			return err
		}
		run, outcome, err := a.service.Instrument(ctx, transferegov.InstrumentQuery{
			NumeroConvenio: args[0],
			Environment:    env,
		})
		if err != nil {
			return err
		}

		if *instrumentJson {
			return writeJson(os.Stdout, outcome)
		}
		renderRun(os.Stdout, run)
		renderInstruments(os.Stdout, outcome.Results)
		renderErrors(os.Stdout, outcome.Errors)
		return nil
	},
}
