package transferegov

import (
	"context"
	"fmt"
	"transferegov-backend/internal/remote"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	menuExecucao           = "Execução"
	linkConsultarConvenios = "Consultar Instrumentos/Pré-Instrumentos"
)

var (
	convenioInput  = remote.Name("numeroConvenio")
	consultarInput = remote.CSS("input[name='consultarPropostaPreenchaOsDadosDaConsultaConsultarForm'][value='Consultar']")
	listaResultado = remote.ID("listaResultado")
)

// ConsultarInstrumento looks an instrument up by its number and extracts the
// procurement listing (licitações) of its execution.
//
// Only a failure to start the browser or to log in returns an error, a
// *FatalError carrying the error trail. Anything else ends up in the
// outcome's errors next to whatever could be extracted.
func (a Automator) ConsultarInstrumento(ctx context.Context, query InstrumentQuery) (Outcome[Instrument], error) {
	ctx, span := tracer.Start(ctx, "ConsultarInstrumento")
	defer span.End()
	span.SetAttributes(
		attribute.String("numero_convenio", query.NumeroConvenio),
		attribute.String("environment", string(query.Environment)),
	)

	w := newWorkflow[Instrument](a, query.Environment, "instrumento")
	defer w.Close(ctx)

	outcome, err := consultarInstrumento(ctx, w, query.NumeroConvenio)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		fatalCounter.Add(ctx, 1, procedureAttrs("instrumento", w.target.Environment))
	}
	countRun(ctx, "instrumento", w.target.Environment, w.state.Settled())
	return outcome, err
}

func (w *Workflow[T]) settledLabel(executed string) string {
	switch w.state.Settled() {
	case StatusQueryExecuted, StatusResultsExtracted:
		return executed
	}
	return ""
}

func consultarInstrumento(ctx context.Context, w *Workflow[Instrument], numeroConvenio string) (Outcome[Instrument], error) {
	err := w.Initialize(ctx)
	if err != nil {
		return Outcome[Instrument]{}, w.fatal("initialize", err)
	}
	err = w.Login(ctx)
	if err != nil {
		return Outcome[Instrument]{}, w.fatal("login", err)
	}

	executed := fmt.Sprintf("Instrumento %s consultado", numeroConvenio)

	w.NavigateToMenu(ctx, menuExecucao)
	w.ClickLinkByText(ctx, linkConsultarConvenios)
	w.step(ctx, "SubmitQuery", func(ctx context.Context) error {
		err := w.session.Type(ctx, convenioInput, numeroConvenio)
		if err != nil {
			return err
		}
		err = w.session.Click(ctx, consultarInput)
		if err != nil {
			return err
		}
		_, err = w.session.WaitFor(ctx, listaResultado, w.opts.Session.WaitTimeout)
		if err != nil {
			return err
		}
		w.state.Advance(StatusQueryExecuted)
		return nil
	})

	if w.CheckNoResults(ctx) {
		w.state.Advance(StatusNoResultsFound)
		return w.outcome(""), nil
	}

	w.SelectRow(ctx, numeroConvenio)
	w.step(ctx, "NavigateToListing", func(ctx context.Context) error {
		return w.session.Navigate(ctx, w.target.LicitacoesURL())
	})

	if w.interrupted(ctx) {
		return w.outcome(""), nil
	}
	ExtractListing(ctx, w)
	if w.interrupted(ctx) {
		return w.outcome(""), nil
	}
	return w.outcome(w.settledLabel(executed)), nil
}
