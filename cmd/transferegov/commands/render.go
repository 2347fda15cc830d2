package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
	"transferegov-backend/internal/scrapers/transferegov"
	"transferegov-backend/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func writeJson(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func renderRun(out io.Writer, run store.Run) {
	fmt.Fprintf(out, "%s (%s, %s): %s\n", run.ID, run.Environment, run.Username, run.Status)
}

func renderInstruments(out io.Writer, records []transferegov.Instrument) {
	t := newTable(out)
	t.AppendHeader(table.Row{
		"Número", "Processo", "Publicação", "Nº processo", "Situação",
		"Situação origem", "Sistema origem", "Aceite", "Envio p/ aceite",
	})
	for _, r := range records {
		t.AppendRow(table.Row{
			r.Numero, r.ProcessoExecucao, r.DataPublicacao, r.NumeroProcesso, r.Situacao,
			r.SituacaoOrigem, r.SistemaOrigem, r.AceiteExecucao, r.DataEnvioAceite,
		})
	}
	t.Render()
}

func renderStoredInstruments(out io.Writer, rows []store.StoredInstrument) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Execução", "Número", "Processo", "Situação", "Aceite", "Envio p/ aceite"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.RunID, r.Numero, r.ProcessoExecucao, r.Situacao, r.AceiteExecucao, r.DataEnvioAceite})
	}
	t.Render()
}

func renderEntities(out io.Writer, records []transferegov.Entity) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Entidade", "CNPJ", "Razão social", "Mandato", "Dirigentes", "Membros"})
	for _, r := range records {
		razao := ""
		if r.DadosBasicos != nil {
			razao = r.DadosBasicos.RazaoSocial
		}
		mandate := ""
		dirigentes := 0
		if r.Responsaveis != nil {
			mandate = r.Responsaveis.DataInicioMandato + " a " + r.Responsaveis.DataFimMandato
			dirigentes = len(r.Responsaveis.Dirigentes)
		}
		t.AppendRow(table.Row{r.Entidade, r.CNPJ, razao, mandate, dirigentes, len(r.Membros)})
	}
	t.Render()
}

func renderErrors(out io.Writer, errs []string) {
	if len(errs) == 0 {
		return
	}
	t := newTable(out)
	t.AppendHeader(table.Row{"#", "Erro"})
	for i, err := range errs {
		t.AppendRow(table.Row{i + 1, err})
	}
	t.Render()
}

func renderHistory(out io.Writer, runs []store.Run, loc *time.Location) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Execução", "Data", "Procedimento", "Chave", "Ambiente", "Usuário", "Status", "Erros"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID,
			run.CreatedAt.In(loc).Format("02/01/2006 15:04"),
			run.Procedure,
			run.Key,
			run.Environment,
			run.Username,
			run.Status,
			run.Errors,
		})
	}
	t.Render()
}
