package commands

import (
	"os"
	"transferegov-backend/internal/scrapers/transferegov"

	"github.com/spf13/cobra"
)

var (
	entityQuery       transferegov.EntityQuery
	entityEnvironment *string
	entityJson        *bool
)

func init() {
	flags := entityCmd.Flags()
	flags.StringVar(&entityQuery.CNPJ, "cnpj", "", "CNPJ of the entity.")
	flags.StringVar(&entityQuery.Nome, "nome", "", "Name, or part of the name, of the entity.")
	flags.StringVar(&entityQuery.UF, "uf", "", "Two letter state.")
	flags.StringVar(&entityQuery.Municipio, "municipio", "", "Municipality, as listed by the portal.")
	flags.StringVar(&entityQuery.Categoria, "categoria", "", "Category, as listed by the portal.")
	flags.StringSliceVar(&entityQuery.AreasAtuacao, "area", nil, "Area of activity, may be repeated.")
	entityEnvironment = flags.String("environment", "", "homolog or production, the configured environment when empty.")
	entityJson = flags.Bool("json", false, "Print the outcome as json.")
	entityCmd.MarkFlagsOneRequired("cnpj", "nome", "uf", "municipio", "categoria", "area")
	rootCmd.AddCommand(entityCmd)
}

var entityCmd = &cobra.Command{
	Use:   "entidade [--cnpj <cnpj>] [--nome <nome>] [--uf <uf>] [--municipio <municipio>] [--categoria <categoria>] [--area <area>...] [--json]",
	Short: "Searches private entities and reads the registration of each one found.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		query := entityQuery
		query.Environment, err = transferegov.ParseEnvironment(*entityEnvironment, "")
		if err != nil {
			return err
		}
		run, outcome, err := a.service.Entity(ctx, query)
		if err != nil {
			return err
		}

		if *entityJson {
			return writeJson(os.Stdout, outcome)
		}
		renderRun(os.Stdout, run)
		renderEntities(os.Stdout, outcome.Results)
		renderErrors(os.Stdout, outcome.Errors)
		return nil
	},
}
